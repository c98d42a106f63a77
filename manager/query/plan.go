package query

import (
	"fmt"
	"strings"

	"github.com/dot5enko/simple-object-db/schema"
)

type Terminal byte

const (
	FindAllTerminal Terminal = iota
	FindFirstTerminal
	CountTerminal
	DeleteFirstTerminal
	DeleteAllTerminal
	PropertyTerminal
	MinTerminal
	MaxTerminal
	SumTerminal
	AverageTerminal
)

func (t Terminal) String() string {
	switch t {
	case FindAllTerminal:
		return "findAll"
	case FindFirstTerminal:
		return "findFirst"
	case CountTerminal:
		return "count"
	case DeleteFirstTerminal:
		return "deleteFirst"
	case DeleteAllTerminal:
		return "deleteAll"
	case PropertyTerminal:
		return "property"
	case MinTerminal:
		return "min"
	case MaxTerminal:
		return "max"
	case SumTerminal:
		return "sum"
	case AverageTerminal:
		return "average"
	default:
		return fmt.Sprintf("Terminal(%d)", byte(t))
	}
}

func ParseTerminal(name string) (Terminal, bool) {
	for t := FindAllTerminal; t <= AverageTerminal; t++ {
		if strings.EqualFold(t.String(), name) {
			return t, true
		}
	}
	return 0, false
}

// IsAggregate reports terminals that consume a single projected property.
func (t Terminal) IsAggregate() bool {
	return t >= MinTerminal
}

type SortKey struct {
	Field  string
	Column int
	Desc   bool
}

type DistinctKey struct {
	Field           string
	Column          int
	CaseInsensitive bool
}

// WhereClause is the part of the predicate answered by traversal. A nil Index means a scan
// in id order.
type WhereClause struct {
	Index *schema.IndexDef

	// Bounds are per leading index field, every one but the last is a point.
	Bounds   []schema.Bounds
	Absorbed []*FilterCondition
}

func (w WhereClause) IsScan() bool {
	return w.Index == nil
}

// PointFields is the number of leading index fields fixed to a single value.
func (w WhereClause) PointFields() int {
	n := 0
	for _, b := range w.Bounds {
		if !b.IsPoint() {
			break
		}
		n++
	}
	return n
}

func (w WhereClause) String() string {
	if w.IsScan() {
		return "scan"
	}

	parts := make([]string, len(w.Bounds))
	for i, b := range w.Bounds {
		parts[i] = w.Index.Fields[i] + " " + b.String()
	}
	return fmt.Sprintf("index %s [%s]", w.Index.Name, strings.Join(parts, ", "))
}

// QueryPlan is produced by Builder.Build or Compile and must not be modified afterwards.
// One plan can be executed any number of times, concurrently, against fresh snapshots.
type QueryPlan struct {
	Schema *schema.Schema

	Where  WhereClause
	Filter Predicate

	// Predicate is the full tree as built, before index absorption.
	Predicate Predicate
	IndexHint string

	Descending bool

	Sort     []SortKey
	Distinct []DistinctKey

	Offset int
	// Limit < 0 is unbounded.
	Limit int

	Property       string
	PropertyColumn int
	PropertyType   schema.FieldType

	Terminal Terminal
}

// With returns a copy of the plan running another terminal.
func (p *QueryPlan) With(t Terminal) *QueryPlan {
	cp := *p
	cp.Terminal = t
	return &cp
}

func (p *QueryPlan) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s via %s", p.Terminal.String(), p.Schema.Name, p.Where.String())
	if p.Descending {
		sb.WriteString(" desc")
	}

	if p.Filter != nil {
		sb.WriteString(" filter ")
		sb.WriteString(p.Filter.String())
	}

	if len(p.Sort) > 0 {
		sb.WriteString(" sort")
		for _, k := range p.Sort {
			dir := "asc"
			if k.Desc {
				dir = "desc"
			}
			fmt.Fprintf(&sb, " %s %s", k.Field, dir)
		}
	}

	for _, d := range p.Distinct {
		sb.WriteString(" distinct ")
		sb.WriteString(d.Field)
		if d.CaseInsensitive {
			sb.WriteString(" ci")
		}
	}

	if p.Offset > 0 {
		fmt.Fprintf(&sb, " offset %d", p.Offset)
	}
	if p.Limit >= 0 {
		fmt.Fprintf(&sb, " limit %d", p.Limit)
	}
	if p.Property != "" {
		fmt.Fprintf(&sb, " property %s", p.Property)
	}

	return sb.String()
}

// Validate checks the terminal against the projected property.
func (p *QueryPlan) Validate() error {
	if err := checkTerminal(p); err != nil {
		return &ConstructionError{Collection: p.Schema.Name, Field: p.Property, Op: p.Terminal.String(), Err: err}
	}
	return nil
}
