package sync

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ecoles/roster/internal/schema"
	"github.com/ecoles/roster/internal/store"
	"github.com/ecoles/roster/internal/week"
)

func fieldValue(st store.Student, f schema.Field) string {
	switch f {
	case schema.Level:
		return st.Level
	case schema.School:
		return st.School
	case schema.Slot:
		return st.Slot
	case schema.Class:
		return st.Class
	}
	return ""
}

func checkImportFields(fields []schema.Field) ([]schema.Field, error) {
	if len(fields) == 0 {
		return ImportFields, nil
	}
	for _, f := range fields {
		known := false
		for _, k := range ImportFields {
			if f == k {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, f)
		}
	}
	return fields, nil
}

// ImportWeek implements Syncer.ImportWeek.
func (e *engine) ImportWeek(ctx context.Context, s *Session, source *week.Week, fields []schema.Field) (imported []Imported, err error) {
	defer func() {
		e.record(ctx, s, "import-week", fmt.Sprintf("from %s: %d students", source.Name(), len(imported)), err)
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fields, err = checkImportFields(fields)
	if err != nil {
		return nil, err
	}
	if filepath.Clean(source.Dir) == filepath.Clean(s.Week.Dir) {
		return nil, fmt.Errorf("cannot import %s into itself", source.Name())
	}

	src, err := store.LoadRoster(s.Backend, source.RosterPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load source roster: %w", err)
	}
	if len(src.Students()) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, source.RosterPath())
	}

	roster, err := s.Roster()
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	for _, st := range roster.Students() {
		from, ok := src.Lookup(st.Name)
		if !ok {
			continue
		}
		copied := make(map[schema.Field]string)
		for _, f := range fields {
			if fieldValue(st, f) != "" {
				continue
			}
			v := fieldValue(from, f)
			if v == "" {
				continue
			}
			if roster.Set(st.Row, f, v) {
				copied[f] = v
			}
		}
		if len(copied) > 0 {
			imported = append(imported, Imported{Student: st.Name, Fields: copied})
		}
	}

	if err := roster.Save(s.Backend); err != nil {
		return nil, fmt.Errorf("failed to save roster: %w", err)
	}
	e.logger.Printf("Imported %d students from %s", len(imported), source.Name())
	return imported, nil
}
