// Package catalog lists the schools of a week and the workbook each one is
// stored in.
//
// The built-in list can be replaced by a schools.toml file at the root of
// the weeks directory:
//
//	[[school]]
//	key = "ecole_a"
//	name = "A"
//	file = "ecole_a.xlsx"
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the catalog override file.
const FileName = "schools.toml"

var (
	// ErrUnknownSchool is returned when a name matches no catalog entry.
	ErrUnknownSchool = errors.New("unknown school")

	// ErrInvalidCatalog is returned for a catalog file with missing or
	// duplicate entries.
	ErrInvalidCatalog = errors.New("invalid school catalog")
)

// School is one catalog entry.
type School struct {
	Key  string `toml:"key"`
	Name string `toml:"name"`
	File string `toml:"file"`
}

// Catalog is an ordered list of schools.
type Catalog struct {
	Schools []School `toml:"school"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{Schools: []School{
		{Key: "ecole_a", Name: "A", File: "ecole_a.xlsx"},
		{Key: "ecole_b", Name: "B", File: "ecole_b.xlsx"},
		{Key: "ecole_c_cs", Name: "C/CS", File: "ECOLE_C_cours_standard.xlsx"},
		{Key: "ecole_c_ci", Name: "C/CI", File: "ECOLE_C_cours_intensif.xlsx"},
		{Key: "ecole_morning", Name: "Morning", File: "MORNING.xlsx"},
		{Key: "ecole_premium_cs", Name: "Premium/CS", File: "ECOLE_PREMIUM_cours_standard.xlsx"},
		{Key: "ecole_premium_ci", Name: "Premium/CI", File: "ECOLE_PREMIUM_cours_intensifs.xlsx"},
	}}
}

// Load reads root/schools.toml, falling back to Default when the file does
// not exist.
func Load(root string) (*Catalog, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read school catalog: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes a catalog document and validates it.
func Parse(doc string) (*Catalog, error) {
	var c Catalog
	if _, err := toml.Decode(doc, &c); err != nil {
		return nil, fmt.Errorf("failed to parse school catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that every entry is complete and keys and names are
// unique.
func (c *Catalog) Validate() error {
	if len(c.Schools) == 0 {
		return fmt.Errorf("%w: no schools", ErrInvalidCatalog)
	}
	seen := make(map[string]bool)
	for i, s := range c.Schools {
		if s.Key == "" || s.Name == "" || s.File == "" {
			return fmt.Errorf("%w: entry %d needs key, name and file", ErrInvalidCatalog, i+1)
		}
		for _, id := range []string{"key:" + strings.ToLower(s.Key), "name:" + strings.ToLower(s.Name)} {
			if seen[id] {
				return fmt.Errorf("%w: duplicate %s", ErrInvalidCatalog, id)
			}
			seen[id] = true
		}
	}
	return nil
}

// Lookup finds a school by display name or key, ignoring case.
func (c *Catalog) Lookup(name string) (School, error) {
	name = strings.TrimSpace(name)
	for _, s := range c.Schools {
		if strings.EqualFold(s.Name, name) || strings.EqualFold(s.Key, name) {
			return s, nil
		}
	}
	return School{}, fmt.Errorf("%w: %q", ErrUnknownSchool, name)
}

// Names returns the display names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Schools))
	for i, s := range c.Schools {
		names[i] = s.Name
	}
	return names
}
