package schema

import (
	"fmt"
	"strings"
)

// Record is a fully decoded object. Values are aligned with Schema.Columns.
type Record struct {
	Id     uint64
	Schema *Schema
	Values []Value
}

func (r *Record) Get(field string) Value {
	idx := r.Schema.ColumnIndex(field)
	if idx < 0 || idx >= len(r.Values) {
		return Null()
	}
	return r.Values[idx]
}

// Map returns plain go values keyed by column name.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.Values))
	for idx, col := range r.Schema.Columns {
		out[col.Name] = r.Values[idx].Any()
	}
	return out
}

func (r *Record) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s#%d{", r.Schema.Name, r.Id)
	for idx, col := range r.Schema.Columns {
		if idx > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col.Name)
		sb.WriteString(": ")
		sb.WriteString(r.Values[idx].String())
	}
	sb.WriteString("}")

	return sb.String()
}

// NewRecordValues converts named go values into a column aligned, type coerced value list.
// Missing columns are null.
func NewRecordValues(s *Schema, input map[string]any) ([]Value, error) {

	values := make([]Value, len(s.Columns))

	for name := range input {
		if s.ColumnIndex(name) < 0 {
			return nil, fmt.Errorf("column `%s` not found on schema `%s`", name, s.Name)
		}
	}

	for idx, col := range s.Columns {

		raw, ok := input[col.Name]
		if !ok {
			raw = nil
		}

		v, err := ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("column `%s`: %w", col.Name, err)
		}

		v, err = col.Type.Coerce(v)
		if err != nil {
			return nil, fmt.Errorf("column `%s`: %w", col.Name, err)
		}

		if v.IsNull() && !col.Nullable {
			return nil, fmt.Errorf("%w: column `%s` of `%s` is not nullable", ErrValueType, col.Name, s.Name)
		}

		values[idx] = v
	}

	return values, nil
}
