package meta

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dot5enko/simple-object-db/schema"
)

var (
	ErrSchemaExists = errors.New("schema already registered")
)

// MetaManager is the schema registry. Registered schemas are never modified.
type MetaManager struct {
	schemas map[string]*schema.Schema
	lock    sync.RWMutex
}

func NewMetaManager() *MetaManager {
	return &MetaManager{
		schemas: map[string]*schema.Schema{},
	}
}

// AddSchema registers schemas together, so links between them may reference each other.
func (qp *MetaManager) AddSchema(schemaObjects ...*schema.Schema) error {

	qp.lock.Lock()
	defer qp.lock.Unlock()

	known := make(map[string]*schema.Schema, len(qp.schemas)+len(schemaObjects))
	for name, s := range qp.schemas {
		known[name] = s
	}

	for _, s := range schemaObjects {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, exists := known[s.Name]; exists {
			return fmt.Errorf("%w: `%s`", ErrSchemaExists, s.Name)
		}
		known[s.Name] = s
	}

	for _, s := range schemaObjects {
		if err := validateLinks(s, known); err != nil {
			return err
		}
	}

	for _, s := range schemaObjects {
		qp.schemas[s.Name] = s
		slog.Info("schema registered", "schema_name", s.Name, "columns", len(s.Columns), "indexes", len(s.Indexes), "links", len(s.Links))
	}

	return nil
}

func validateLinks(s *schema.Schema, known map[string]*schema.Schema) error {
	for _, l := range s.Links {

		target, ok := known[l.Target]
		if !ok {
			return fmt.Errorf("%w: link `%s.%s` targets unknown collection `%s`", schema.ErrInvalidSchema, s.Name, l.Name, l.Target)
		}

		if !l.Backlink {
			continue
		}

		via, ok := target.Link(l.Via)
		if !ok || via.Backlink || via.Target != s.Name {
			return fmt.Errorf("%w: backlink `%s.%s` needs a forward link `%s.%s` to `%s`", schema.ErrInvalidSchema, s.Name, l.Name, l.Target, l.Via, s.Name)
		}
	}
	return nil
}

func (qp *MetaManager) GetSchema(name string) *schema.Schema {
	qp.lock.RLock()
	defer qp.lock.RUnlock()

	return qp.schemas[name]
}

// Names lists registered collections sorted by name.
func (qp *MetaManager) Names() []string {
	qp.lock.RLock()
	defer qp.lock.RUnlock()

	out := make([]string, 0, len(qp.schemas))
	for name := range qp.schemas {
		out = append(out, name)
	}
	sort.Strings(out)

	return out
}
