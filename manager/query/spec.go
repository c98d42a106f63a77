package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Spec describes a plan without compile time knowledge of the schema. It supports the same
// primitives as Builder and compiles through it.
type Spec struct {
	Collection string      `json:"collection"`
	Filter     *FilterSpec `json:"filter,omitempty"`

	Index      string `json:"index,omitempty"`
	Descending bool   `json:"descending,omitempty"`

	Sort     []SortSpec     `json:"sort,omitempty"`
	Distinct []DistinctSpec `json:"distinct,omitempty"`

	Offset int  `json:"offset,omitempty"`
	Limit  *int `json:"limit,omitempty"`

	Property string `json:"property,omitempty"`
	Terminal string `json:"terminal,omitempty"`
}

type SortSpec struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

type DistinctSpec struct {
	Field           string `json:"field"`
	CaseInsensitive bool   `json:"caseInsensitive,omitempty"`
}

// FilterSpec is one node of a dynamic predicate. Op is one of and, or, not, group, link,
// eq, gt, lt, between, isNull, startsWith, contains, endsWith, matches.
type FilterSpec struct {
	Op string `json:"op"`

	Field string `json:"field,omitempty"`
	Value any    `json:"value,omitempty"`
	Upper any    `json:"upper,omitempty"`

	Include         bool `json:"include,omitempty"`
	ExcludeLower    bool `json:"excludeLower,omitempty"`
	ExcludeUpper    bool `json:"excludeUpper,omitempty"`
	CaseInsensitive bool `json:"caseInsensitive,omitempty"`

	Relation string       `json:"relation,omitempty"`
	Args     []FilterSpec `json:"args,omitempty"`
}

const specJSONSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "filter": {
      "type": "object",
      "required": ["op"],
      "properties": {
        "op": {"enum": ["and", "or", "not", "group", "link", "eq", "gt", "lt", "between", "isNull", "startsWith", "contains", "endsWith", "matches"]},
        "field": {"type": "string"},
        "relation": {"type": "string"},
        "include": {"type": "boolean"},
        "excludeLower": {"type": "boolean"},
        "excludeUpper": {"type": "boolean"},
        "caseInsensitive": {"type": "boolean"},
        "args": {"type": "array", "items": {"$ref": "#/definitions/filter"}}
      }
    }
  },
  "type": "object",
  "required": ["collection"],
  "properties": {
    "collection": {"type": "string", "minLength": 1},
    "filter": {"$ref": "#/definitions/filter"},
    "index": {"type": "string"},
    "descending": {"type": "boolean"},
    "sort": {"type": "array", "items": {"type": "object", "required": ["field"], "properties": {"field": {"type": "string"}, "desc": {"type": "boolean"}}}},
    "distinct": {"type": "array", "items": {"type": "object", "required": ["field"], "properties": {"field": {"type": "string"}, "caseInsensitive": {"type": "boolean"}}}},
    "offset": {"type": "integer"},
    "limit": {"type": "integer"},
    "property": {"type": "string"},
    "terminal": {"enum": ["findAll", "findFirst", "count", "deleteFirst", "deleteAll", "property", "min", "max", "sum", "average"]}
  }
}`

var (
	specSchemaOnce sync.Once
	specSchema     *gojsonschema.Schema
	specSchemaErr  error
)

func loadSpecSchema() (*gojsonschema.Schema, error) {
	specSchemaOnce.Do(func() {
		specSchema, specSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(specJSONSchema))
	})
	return specSchema, specSchemaErr
}

// ParseSpec validates a JSON query description and decodes it. Numbers keep their integer
// precision.
func ParseSpec(data []byte) (Spec, error) {

	var spec Spec

	compiled, err := loadSpecSchema()
	if err != nil {
		return spec, fmt.Errorf("query spec schema: %w", err)
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return spec, fmt.Errorf("%w: %s", ErrInvalidSpec, err.Error())
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return spec, fmt.Errorf("%w: %s", ErrInvalidSpec, strings.Join(errs, "; "))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(&spec); err != nil {
		return spec, fmt.Errorf("%w: %s", ErrInvalidSpec, err.Error())
	}

	return spec, nil
}

func specValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// Compile builds the plan a Spec describes.
func Compile(catalog Catalog, spec Spec) (*QueryPlan, error) {

	b := NewBuilder(catalog, spec.Collection)

	if spec.Filter != nil {
		applyFilter(b, *spec.Filter)
	}

	if spec.Index != "" {
		b.UseIndex(spec.Index)
	}
	if spec.Descending {
		b.Descending()
	}

	for idx, s := range spec.Sort {
		dir := Asc
		if s.Desc {
			dir = Desc
		}
		if idx == 0 {
			b.SortBy(s.Field, dir)
		} else {
			b.ThenBy(s.Field, dir)
		}
	}

	for _, d := range spec.Distinct {
		if d.CaseInsensitive {
			b.DistinctBy(d.Field, CaseInsensitive())
		} else {
			b.DistinctBy(d.Field)
		}
	}

	b.Offset(spec.Offset)
	if spec.Limit != nil {
		b.Limit(*spec.Limit)
	}

	if spec.Property != "" {
		b.Property(spec.Property)
	}

	if spec.Terminal != "" {
		t, ok := ParseTerminal(spec.Terminal)
		if !ok {
			b.fail("", "terminal", fmt.Errorf("%w: unknown terminal `%s`", ErrInvalidSpec, spec.Terminal))
		}
		b.Select(t)
	}

	return b.Build()
}

func (f FilterSpec) options() []CondOption {
	var opts []CondOption
	if f.CaseInsensitive {
		opts = append(opts, CaseInsensitive())
	}
	if f.Include {
		opts = append(opts, Inclusive())
	}
	if f.ExcludeLower {
		opts = append(opts, ExcludeLower())
	}
	if f.ExcludeUpper {
		opts = append(opts, ExcludeUpper())
	}
	return opts
}

func (f FilterSpec) text() (string, bool) {
	s, ok := f.Value.(string)
	return s, ok
}

// applyFilter adds one spec node to b as a single operand of the current chain.
func applyFilter(b *Builder, f FilterSpec) {

	switch f.Op {
	case "and", "or":
		sub := b.Sub()
		for _, arg := range f.Args {
			if f.Op == "or" {
				sub.Or()
			}
			applyFilter(sub, arg)
		}
		b.Group(sub)

	case "group":
		sub := b.Sub()
		for _, arg := range f.Args {
			applyFilter(sub, arg)
		}
		b.Group(sub)

	case "not":
		if len(f.Args) != 1 {
			b.fail("", "not", fmt.Errorf("%w: not takes exactly one argument", ErrInvalidSpec))
			return
		}
		sub := b.Sub()
		applyFilter(sub, f.Args[0])
		b.Not().Group(sub)

	case "link":
		var sub *Builder
		if len(f.Args) > 0 {
			sub = b.Related(f.Relation)
			for _, arg := range f.Args {
				applyFilter(sub, arg)
			}
		}
		b.LinkExists(f.Relation, sub)

	case "eq":
		b.EqualTo(f.Field, specValue(f.Value), f.options()...)
	case "gt":
		b.GreaterThan(f.Field, specValue(f.Value), f.options()...)
	case "lt":
		b.LessThan(f.Field, specValue(f.Value), f.options()...)
	case "between":
		b.Between(f.Field, specValue(f.Value), specValue(f.Upper), f.options()...)
	case "isNull":
		b.IsNull(f.Field)

	case "startsWith", "contains", "endsWith", "matches":
		s, ok := f.text()
		if !ok {
			b.fail(f.Field, f.Op, fmt.Errorf("%w: %s needs a string value", ErrTypeMismatch, f.Op))
			return
		}
		switch f.Op {
		case "startsWith":
			b.StartsWith(f.Field, s, f.options()...)
		case "contains":
			b.Contains(f.Field, s, f.options()...)
		case "endsWith":
			b.EndsWith(f.Field, s, f.options()...)
		default:
			b.Matches(f.Field, s, f.options()...)
		}

	default:
		b.fail(f.Field, f.Op, fmt.Errorf("%w: unknown op `%s`", ErrInvalidSpec, f.Op))
	}
}
