package query

import (
	"fmt"
	"slices"

	"github.com/dot5enko/simple-object-db/schema"
)

// Catalog resolves collection schemas, it is implemented by the meta manager.
type Catalog interface {
	GetSchema(name string) *schema.Schema
}

type Direction bool

const (
	Asc  Direction = false
	Desc Direction = true
)

type combinator byte

const (
	noCombinator combinator = iota
	andCombinator
	orCombinator
)

type condOptions struct {
	caseSensitive bool
	include       bool
	excludeLower  bool
	excludeUpper  bool
}

type CondOption func(*condOptions)

// CaseInsensitive switches string comparison and distinct keys to case folding.
func CaseInsensitive() CondOption {
	return func(o *condOptions) { o.caseSensitive = false }
}

// Inclusive makes GreaterThan and LessThan accept the bound itself.
func Inclusive() CondOption {
	return func(o *condOptions) { o.include = true }
}

func ExcludeLower() CondOption {
	return func(o *condOptions) { o.excludeLower = true }
}

func ExcludeUpper() CondOption {
	return func(o *condOptions) { o.excludeUpper = true }
}

func applyOptions(opts []CondOption) condOptions {
	o := condOptions{caseSensitive: true}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Builder accumulates a query. Conditions combine left to right with equal precedence,
// AND unless Or was called in between. Use Group for explicit precedence.
// A builder is not safe for concurrent use, the plans it builds are.
type Builder struct {
	catalog Catalog
	schema  *schema.Schema

	root    Predicate
	pending combinator
	negate  bool

	hint       string
	descending bool

	sort     []SortKey
	distinct []DistinctKey

	offset int
	limit  int

	property string
	terminal Terminal

	err error
}

func NewBuilder(catalog Catalog, collection string) *Builder {
	b := &Builder{catalog: catalog, limit: -1}

	if catalog != nil {
		b.schema = catalog.GetSchema(collection)
	}

	if b.schema == nil {
		b.schema = &schema.Schema{Name: collection}
		b.fail("", "query", fmt.Errorf("%w: `%s`", ErrCollectionNotFound, collection))
	}

	return b
}

// Sub returns an empty builder over the same collection, for Group.
func (b *Builder) Sub() *Builder {
	return &Builder{catalog: b.catalog, schema: b.schema, limit: -1}
}

// Clone copies the builder so a terminal or projection set on the copy leaves b untouched.
// Predicate nodes are never modified after creation and are shared.
func (b *Builder) Clone() *Builder {
	c := *b
	c.sort = slices.Clone(b.sort)
	c.distinct = slices.Clone(b.distinct)
	return &c
}

func (b *Builder) Schema() *schema.Schema {
	return b.schema
}

// Err is the first construction error recorded so far.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(field, op string, err error) {
	if b.err != nil {
		return
	}
	b.err = &ConstructionError{Collection: b.schema.Name, Field: field, Op: op, Err: err}
}

func (b *Builder) add(p Predicate) *Builder {

	if b.negate {
		p = Not{Inner: p}
		b.negate = false
	}

	switch {
	case b.root == nil:
		b.root = p
	case b.pending == orCombinator:
		b.root = Or{Left: b.root, Right: p}
	default:
		b.root = And{Left: b.root, Right: p}
	}

	b.pending = noCombinator

	return b
}

// And is the implicit combinator, calling it only documents intent.
func (b *Builder) And() *Builder {
	if b.root != nil {
		b.pending = andCombinator
	}
	return b
}

// Or combines the tree so far with the next condition. Ignored on an empty tree.
func (b *Builder) Or() *Builder {
	if b.root != nil {
		b.pending = orCombinator
	}
	return b
}

// Not negates the next condition or group.
func (b *Builder) Not() *Builder {
	b.negate = !b.negate
	return b
}

func (b *Builder) Group(sub *Builder) *Builder {

	if sub == nil {
		return b
	}

	if sub.err != nil {
		if b.err == nil {
			b.err = sub.err
		}
		return b
	}

	if sub.schema != b.schema {
		b.fail("", "group", fmt.Errorf("%w: group over `%s` inside `%s`", ErrTypeMismatch, sub.schema.Name, b.schema.Name))
		return b
	}

	if sub.root == nil {
		b.negate = false
		return b
	}

	return b.add(Group{Inner: sub.root})
}

// Related returns an empty builder over the target collection of a relation, for LinkExists.
func (b *Builder) Related(relation string) *Builder {

	sub := &Builder{catalog: b.catalog, limit: -1}

	link, ok := b.schema.Link(relation)
	if !ok {
		sub.schema = &schema.Schema{Name: relation}
		sub.fail("", "link", fmt.Errorf("%w: `%s` on `%s`", ErrUnknownRelation, relation, b.schema.Name))
		return sub
	}

	if b.catalog != nil {
		sub.schema = b.catalog.GetSchema(link.Target)
	}
	if sub.schema == nil {
		sub.schema = &schema.Schema{Name: link.Target}
		sub.fail("", "link", fmt.Errorf("%w: `%s` targeted by `%s`", ErrCollectionNotFound, link.Target, relation))
	}

	return sub
}

// LinkExists adds a condition that holds when a record linked through relation matches sub.
// A nil sub matches any linked record.
func (b *Builder) LinkExists(relation string, sub *Builder) *Builder {

	link, ok := b.schema.Link(relation)
	if !ok {
		b.fail("", "link", fmt.Errorf("%w: `%s` on `%s`", ErrUnknownRelation, relation, b.schema.Name))
		return b
	}

	target := b.Related(relation)
	if target.err != nil {
		if b.err == nil {
			b.err = target.err
		}
		return b
	}

	node := LinkExists{Relation: relation, Link: link, Target: target.schema}

	if sub != nil {
		if sub.err != nil {
			if b.err == nil {
				b.err = sub.err
			}
			return b
		}
		if sub.schema != target.schema {
			b.fail("", "link", fmt.Errorf("%w: `%s` leads to `%s`, condition is over `%s`", ErrTypeMismatch, relation, target.schema.Name, sub.schema.Name))
			return b
		}
		node.Inner = sub.root
	}

	return b.add(node)
}

// Optional applies fn only when cond holds.
func (b *Builder) Optional(cond bool, fn func(b *Builder)) *Builder {
	if cond {
		fn(b)
	}
	return b
}

// Repeat threads the builder through fn once per value.
func Repeat[T any](b *Builder, values []T, fn func(b *Builder, v T)) *Builder {
	for _, v := range values {
		fn(b, v)
	}
	return b
}

// AnyOf adds a group matching any of the values, an OR chain of EqualTo.
func AnyOf[T any](b *Builder, field string, values []T, opts ...CondOption) *Builder {
	sub := b.Sub()
	Repeat(sub, values, func(s *Builder, v T) {
		s.Or().EqualTo(field, v, opts...)
	})
	return b.Group(sub)
}

func (b *Builder) column(field, op string) (schema.SchemaColumn, int, bool) {
	idx := b.schema.ColumnIndex(field)
	if idx < 0 {
		b.fail(field, op, fmt.Errorf("%w: `%s` on `%s`", ErrUnknownField, field, b.schema.Name))
		return schema.SchemaColumn{}, -1, false
	}
	return b.schema.Columns[idx], idx, true
}

func (b *Builder) operand(col schema.SchemaColumn, op string, raw any, allowNull bool) (schema.Value, bool) {

	v, err := schema.ValueOf(raw)
	if err != nil {
		b.fail(col.Name, op, fmt.Errorf("%w: %s", ErrTypeMismatch, err.Error()))
		return v, false
	}

	if v.IsNull() && !allowNull {
		b.fail(col.Name, op, fmt.Errorf("%w: null operand", ErrTypeMismatch))
		return v, false
	}

	if !col.Type.Accepts(v.Kind()) {
		b.fail(col.Name, op, fmt.Errorf("%w: %s operand for %s field", ErrTypeMismatch, v.Kind().String(), col.Type.String()))
		return v, false
	}

	// float operands carry the precision of the stored column
	if col.Type.IsFloat() && !v.IsNull() {
		if v, err = col.Type.Coerce(v); err != nil {
			b.fail(col.Name, op, fmt.Errorf("%w: %s", ErrTypeMismatch, err.Error()))
			return v, false
		}
	}

	return v, true
}

func (b *Builder) leaf(col schema.SchemaColumn, idx int, op CondOperand, o condOptions) *FilterCondition {
	return &FilterCondition{
		Field:         col.Name,
		Column:        idx,
		Type:          col.Type,
		Operand:       op,
		CaseSensitive: o.caseSensitive,
	}
}

// EqualTo with a nil value is IsNull.
func (b *Builder) EqualTo(field string, value any, opts ...CondOption) *Builder {
	col, idx, ok := b.column(field, "equalTo")
	if !ok {
		return b
	}

	v, ok := b.operand(col, "equalTo", value, true)
	if !ok {
		return b
	}

	if v.IsNull() {
		return b.add(Leaf{Cond: b.leaf(col, idx, IS_NULL, applyOptions(opts))})
	}

	cond := b.leaf(col, idx, EQ, applyOptions(opts))
	cond.Bounds = schema.Point(v)

	return b.add(Leaf{Cond: cond})
}

// GreaterThan never matches null.
func (b *Builder) GreaterThan(field string, bound any, opts ...CondOption) *Builder {
	col, idx, ok := b.column(field, "greaterThan")
	if !ok {
		return b
	}

	v, ok := b.operand(col, "greaterThan", bound, false)
	if !ok {
		return b
	}

	o := applyOptions(opts)
	cond := b.leaf(col, idx, GT, o)
	cond.Bounds = schema.Bounds{Lower: v, HasLower: true, IncludeLower: o.include}

	return b.add(Leaf{Cond: cond})
}

// LessThan matches null, it sorts below every value.
func (b *Builder) LessThan(field string, bound any, opts ...CondOption) *Builder {
	col, idx, ok := b.column(field, "lessThan")
	if !ok {
		return b
	}

	v, ok := b.operand(col, "lessThan", bound, false)
	if !ok {
		return b
	}

	o := applyOptions(opts)
	cond := b.leaf(col, idx, LT, o)
	cond.Bounds = schema.Bounds{Upper: v, HasUpper: true, IncludeUpper: o.include}

	return b.add(Leaf{Cond: cond})
}

// Between includes both bounds unless ExcludeLower or ExcludeUpper is given.
func (b *Builder) Between(field string, lower, upper any, opts ...CondOption) *Builder {
	col, idx, ok := b.column(field, "between")
	if !ok {
		return b
	}

	lo, ok := b.operand(col, "between", lower, false)
	if !ok {
		return b
	}
	hi, ok := b.operand(col, "between", upper, false)
	if !ok {
		return b
	}

	o := applyOptions(opts)
	cond := b.leaf(col, idx, RANGE, o)
	cond.Bounds = schema.Bounds{
		Lower: lo, HasLower: true, IncludeLower: !o.excludeLower,
		Upper: hi, HasUpper: true, IncludeUpper: !o.excludeUpper,
	}

	return b.add(Leaf{Cond: cond})
}

func (b *Builder) IsNull(field string) *Builder {
	col, idx, ok := b.column(field, "isNull")
	if !ok {
		return b
	}
	return b.add(Leaf{Cond: b.leaf(col, idx, IS_NULL, applyOptions(nil))})
}

func (b *Builder) NotNull(field string) *Builder {
	return b.Not().IsNull(field)
}

func (b *Builder) stringLeaf(field string, op CondOperand, text string, opts []CondOption) *FilterCondition {
	name := op.String()

	col, idx, ok := b.column(field, name)
	if !ok {
		return nil
	}

	if col.Type != schema.StringFieldType {
		b.fail(field, name, fmt.Errorf("%w: %s needs a String field, `%s` is %s", ErrTypeMismatch, name, field, col.Type.String()))
		return nil
	}

	cond := b.leaf(col, idx, op, applyOptions(opts))
	cond.Text = text

	return cond
}

func (b *Builder) StartsWith(field, prefix string, opts ...CondOption) *Builder {
	if cond := b.stringLeaf(field, STARTS_WITH, prefix, opts); cond != nil {
		b.add(Leaf{Cond: cond})
	}
	return b
}

func (b *Builder) Contains(field, sub string, opts ...CondOption) *Builder {
	if cond := b.stringLeaf(field, CONTAINS, sub, opts); cond != nil {
		b.add(Leaf{Cond: cond})
	}
	return b
}

func (b *Builder) EndsWith(field, suffix string, opts ...CondOption) *Builder {
	if cond := b.stringLeaf(field, ENDS_WITH, suffix, opts); cond != nil {
		b.add(Leaf{Cond: cond})
	}
	return b
}

// Matches adds a whole string wildcard match: `*` any run, `?` one character, `\` escapes.
func (b *Builder) Matches(field, pattern string, opts ...CondOption) *Builder {
	cond := b.stringLeaf(field, MATCHES, pattern, opts)
	if cond == nil {
		return b
	}

	w, err := compilePattern(pattern, cond.CaseSensitive)
	if err != nil {
		b.fail(field, "matches", fmt.Errorf("%w: %s", ErrPatternError, err.Error()))
		return b
	}
	cond.pattern = w

	return b.add(Leaf{Cond: cond})
}

// SortBy replaces any previous sort keys.
func (b *Builder) SortBy(field string, dir Direction) *Builder {
	b.sort = nil
	return b.ThenBy(field, dir)
}

func (b *Builder) ThenBy(field string, dir Direction) *Builder {
	_, idx, ok := b.column(field, "sortBy")
	if !ok {
		return b
	}
	b.sort = append(b.sort, SortKey{Field: field, Column: idx, Desc: bool(dir)})
	return b
}

// DistinctBy keeps the first record per value of field. Chained calls reduce in turn.
func (b *Builder) DistinctBy(field string, opts ...CondOption) *Builder {
	col, idx, ok := b.column(field, "distinctBy")
	if !ok {
		return b
	}

	o := applyOptions(opts)
	b.distinct = append(b.distinct, DistinctKey{
		Field:           field,
		Column:          idx,
		CaseInsensitive: !o.caseSensitive && col.Type == schema.StringFieldType,
	})
	return b
}

func (b *Builder) Offset(n int) *Builder {
	b.offset = max(n, 0)
	return b
}

// Limit with a negative value removes the bound.
func (b *Builder) Limit(n int) *Builder {
	if n < 0 {
		n = -1
	}
	b.limit = n
	return b
}

// UseIndex hints an index. A hint the predicate can not use turns into a scan.
func (b *Builder) UseIndex(name string) *Builder {
	b.hint = name
	return b
}

// Descending reverses the traversal order.
func (b *Builder) Descending() *Builder {
	b.descending = true
	return b
}

// Property projects the query to a single field for Property and aggregate terminals.
func (b *Builder) Property(field string) *Builder {
	if _, _, ok := b.column(field, "property"); ok {
		b.property = field
	}
	return b
}

func (b *Builder) Select(t Terminal) *Builder {
	b.terminal = t
	return b
}

func (b *Builder) Build() (*QueryPlan, error) {

	if b.err != nil {
		return nil, b.err
	}

	plan := &QueryPlan{
		Schema:         b.schema,
		Predicate:      b.root,
		IndexHint:      b.hint,
		Descending:     b.descending,
		Sort:           append([]SortKey(nil), b.sort...),
		Distinct:       append([]DistinctKey(nil), b.distinct...),
		Offset:         b.offset,
		Limit:          b.limit,
		PropertyColumn: -1,
		Terminal:       b.terminal,
	}

	if b.property != "" {
		plan.Property = b.property
		plan.PropertyColumn = b.schema.ColumnIndex(b.property)
		plan.PropertyType = b.schema.Columns[plan.PropertyColumn].Type
	}

	if err := checkTerminal(plan); err != nil {
		b.fail(plan.Property, b.terminal.String(), err)
		return nil, b.err
	}

	plan.Where, plan.Filter = selectWhere(b.schema, b.root, b.hint)

	return plan, nil
}

// checkTerminal validates a terminal against the projected property.
func checkTerminal(plan *QueryPlan) error {

	t := plan.Terminal

	if t != PropertyTerminal && !t.IsAggregate() {
		return nil
	}

	if plan.PropertyColumn < 0 {
		return fmt.Errorf("%w: %s needs a property", ErrUnknownField, t.String())
	}

	if (t == SumTerminal || t == AverageTerminal) && !plan.PropertyType.IsNumeric() {
		return fmt.Errorf("%w: %s over %s property `%s`", ErrTypeMismatch, t.String(), plan.PropertyType.String(), plan.Property)
	}

	return nil
}
