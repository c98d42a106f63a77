package schema

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSchema = errors.New("invalid schema")
)

// Schema describes one collection: its columns in declared order, the indexes the
// storage maintains for it and the relations leaving it.
type Schema struct {
	Name    string         `json:"name"`
	Columns []SchemaColumn `json:"columns"`

	Indexes []IndexDef `json:"indexes,omitempty"`
	Links   []LinkDef  `json:"links,omitempty"`
}

// ColumnIndex returns the position of the column or -1.
func (s *Schema) ColumnIndex(name string) int {
	for idx, it := range s.Columns {
		if it.Name == name {
			return idx
		}
	}
	return -1
}

func (s *Schema) Column(name string) (SchemaColumn, bool) {
	idx := s.ColumnIndex(name)
	if idx < 0 {
		return SchemaColumn{}, false
	}
	return s.Columns[idx], true
}

func (s *Schema) Index(name string) (IndexDef, bool) {
	for _, it := range s.Indexes {
		if it.Name == name {
			return it, true
		}
	}
	return IndexDef{}, false
}

func (s *Schema) Link(name string) (LinkDef, bool) {
	for _, it := range s.Links {
		if it.Name == name {
			return it, true
		}
	}
	return LinkDef{}, false
}

// Validate checks the schema on its own. Link targets are checked by the registry,
// it is the only place that knows the other collections.
func (s *Schema) Validate() error {

	if s.Name == "" {
		return fmt.Errorf("%w: empty collection name", ErrInvalidSchema)
	}

	if len(s.Columns) == 0 {
		return fmt.Errorf("%w: collection `%s` has no columns", ErrInvalidSchema, s.Name)
	}

	seen := map[string]struct{}{}
	for _, col := range s.Columns {
		if col.Name == "" {
			return fmt.Errorf("%w: empty column name in `%s`", ErrInvalidSchema, s.Name)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("%w: duplicate column `%s` in `%s`", ErrInvalidSchema, col.Name, s.Name)
		}
		if col.Type.String() == "" {
			return fmt.Errorf("%w: column `%s` has unknown type %d", ErrInvalidSchema, col.Name, col.Type)
		}
		seen[col.Name] = struct{}{}
	}

	indexNames := map[string]struct{}{}
	for _, idx := range s.Indexes {
		if idx.Name == "" || len(idx.Fields) == 0 {
			return fmt.Errorf("%w: index in `%s` needs a name and at least one field", ErrInvalidSchema, s.Name)
		}
		if _, dup := indexNames[idx.Name]; dup {
			return fmt.Errorf("%w: duplicate index `%s` in `%s`", ErrInvalidSchema, idx.Name, s.Name)
		}
		indexNames[idx.Name] = struct{}{}

		for _, f := range idx.Fields {
			if s.ColumnIndex(f) < 0 {
				return fmt.Errorf("%w: index `%s` references unknown column `%s`", ErrInvalidSchema, idx.Name, f)
			}
		}
	}

	linkNames := map[string]struct{}{}
	for _, l := range s.Links {
		if l.Name == "" || l.Target == "" {
			return fmt.Errorf("%w: link in `%s` needs a name and a target", ErrInvalidSchema, s.Name)
		}
		if l.Backlink && l.Via == "" {
			return fmt.Errorf("%w: backlink `%s` in `%s` needs the forward link name", ErrInvalidSchema, l.Name, s.Name)
		}
		if _, dup := linkNames[l.Name]; dup {
			return fmt.Errorf("%w: duplicate link `%s` in `%s`", ErrInvalidSchema, l.Name, s.Name)
		}
		if _, clash := seen[l.Name]; clash {
			return fmt.Errorf("%w: link `%s` clashes with a column in `%s`", ErrInvalidSchema, l.Name, s.Name)
		}
		linkNames[l.Name] = struct{}{}
	}

	return nil
}
