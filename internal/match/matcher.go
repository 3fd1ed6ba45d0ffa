// Package match resolves a person's name in one store to a record in another.
//
// Names are typed independently in each workbook, so the same student may
// appear as "Dupont Marie" in the roster and "dupont  marie" in a class list.
// A Chain tries strategies from strict to loose and stops at the first
// strategy that finds anything.
package match

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNoMatch is matched by every MissError.
	ErrNoMatch = errors.New("no matching name")

	// ErrAmbiguous is returned under RejectAmbiguous when a strategy
	// matches more than one candidate.
	ErrAmbiguous = errors.New("ambiguous name")
)

// MissError reports a name that no candidate matched.
type MissError struct {
	Name string
}

func (e *MissError) Error() string {
	return fmt.Sprintf("no match for name %q", e.Name)
}

// Is makes errors.Is(err, ErrNoMatch) true.
func (e *MissError) Is(target error) bool {
	return target == ErrNoMatch
}

// Strategy decides whether a name designates a candidate.
type Strategy interface {
	Name() string
	Match(name, candidate string) bool
}

// Result is a successful resolution.
type Result struct {
	Index     int
	Candidate string
	Strategy  string
}

// Matcher resolves a name against a candidate list.
type Matcher interface {
	Resolve(name string, candidates []string) (Result, error)
}

// Policy governs ties within one strategy.
type Policy int

const (
	// FirstFound picks the first matching candidate in list order.
	FirstFound Policy = iota
	// RejectAmbiguous fails when several candidates match.
	RejectAmbiguous
)

// ParsePolicy maps a config value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return FirstFound, nil
	case "strict", "reject":
		return RejectAmbiguous, nil
	default:
		return FirstFound, fmt.Errorf("unknown match policy %q", s)
	}
}

// Chain tries its strategies in order.
type Chain struct {
	strategies []Strategy
	policy     Policy
}

// NewChain builds a chain from strategies.
func NewChain(policy Policy, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, policy: policy}
}

// Default returns exact, then normalized, then substring matching with the
// first-found tie policy.
func Default() *Chain {
	return NewChain(FirstFound, Exact{}, Normalized{}, Substring{})
}

// Resolve implements Matcher.
func (c *Chain) Resolve(name string, candidates []string) (Result, error) {
	if strings.TrimSpace(name) == "" {
		return Result{}, &MissError{Name: name}
	}

	for _, s := range c.strategies {
		found := -1
		for i, cand := range candidates {
			if strings.TrimSpace(cand) == "" || !s.Match(name, cand) {
				continue
			}
			if found >= 0 {
				return Result{}, fmt.Errorf("%w: %q matches %q and %q", ErrAmbiguous, name, candidates[found], cand)
			}
			found = i
			if c.policy == FirstFound {
				break
			}
		}
		if found >= 0 {
			return Result{Index: found, Candidate: candidates[found], Strategy: s.Name()}, nil
		}
	}

	return Result{}, &MissError{Name: name}
}

// Exact matches trimmed, case-sensitive equality.
type Exact struct{}

func (Exact) Name() string { return "exact" }

func (Exact) Match(name, candidate string) bool {
	return strings.TrimSpace(name) == strings.TrimSpace(candidate)
}

// Normalized matches equality after Fold.
type Normalized struct{}

func (Normalized) Name() string { return "normalized" }

func (Normalized) Match(name, candidate string) bool {
	return Fold(name) == Fold(candidate)
}

// Substring matches when either folded name contains the other.
type Substring struct{}

func (Substring) Name() string { return "substring" }

func (Substring) Match(name, candidate string) bool {
	a, b := Fold(name), Fold(candidate)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Normalize trims, lowercases and collapses inner whitespace.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Fold is Normalize with diacritics removed.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return Normalize(s)
	}
	return Normalize(folded)
}

// SameName is the duplicate check used when inserting into a list: equality
// after Normalize, with no substring tolerance.
func SameName(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}

// IndexOf returns the position of the first entry SameName-equal to name.
func IndexOf(list []string, name string) int {
	for i, entry := range list {
		if SameName(entry, name) {
			return i
		}
	}
	return -1
}
