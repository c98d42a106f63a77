package query

import (
	"errors"
	"testing"

	"github.com/dot5enko/simple-object-db/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalog map[string]*schema.Schema

func (c catalog) GetSchema(name string) *schema.Schema {
	return c[name]
}

func testCatalog() catalog {
	shoe := &schema.Schema{
		Name: "Shoe",
		Columns: []schema.SchemaColumn{
			{Name: "model", Type: schema.StringFieldType},
			{Name: "size", Type: schema.Int16FieldType, Nullable: true},
			{Name: "color", Type: schema.StringFieldType},
			{Name: "price", Type: schema.Float64FieldType},
		},
		Indexes: []schema.IndexDef{
			{Name: "by_size", Fields: []string{"size"}},
			{Name: "by_model", Fields: []string{"model"}},
			{Name: "by_model_size", Fields: []string{"model", "size"}},
			{Name: "by_color", Fields: []string{"color"}},
		},
		Links: []schema.LinkDef{
			{Name: "brand", Target: "Brand"},
		},
	}

	brand := &schema.Schema{
		Name: "Brand",
		Columns: []schema.SchemaColumn{
			{Name: "name", Type: schema.StringFieldType},
		},
		Links: []schema.LinkDef{
			{Name: "shoes", Target: "Shoe", Backlink: true, Via: "brand"},
		},
	}

	return catalog{"Shoe": shoe, "Brand": brand}
}

func TestBuilderCombinesLeftToRight(t *testing.T) {
	c := testCatalog()

	plan, err := NewBuilder(c, "Shoe").
		EqualTo("color", "red").
		Or().
		EqualTo("color", "blue").
		GreaterThan("price", 10).
		UseIndex("missing").
		Build()
	require.NoError(t, err)

	and, ok := plan.Predicate.(And)
	require.True(t, ok, "top node is %T", plan.Predicate)
	_, ok = and.Left.(Or)
	assert.True(t, ok, "left of AND is %T", and.Left)
	assert.True(t, plan.Where.IsScan())
}

func TestBuilderGroupAndNot(t *testing.T) {
	b := NewBuilder(testCatalog(), "Shoe")

	plan, err := b.
		EqualTo("model", "Runner").
		Not().Group(b.Sub().EqualTo("color", "red").Or().EqualTo("color", "blue")).
		Build()
	require.NoError(t, err)

	assert.Equal(t, `model = "Runner" AND NOT (color = "red" OR color = "blue")`, plan.Predicate.String())
}

func TestOrOnEmptyTreeIsIgnored(t *testing.T) {
	plan, err := NewBuilder(testCatalog(), "Shoe").Or().EqualTo("color", "red").Build()
	require.NoError(t, err)

	_, isLeaf := plan.Predicate.(Leaf)
	assert.True(t, isLeaf)
}

func TestRepeatMatchesManualChain(t *testing.T) {
	c := testCatalog()
	colors := []string{"red", "blue", "green"}

	manual, err := NewBuilder(c, "Shoe").
		EqualTo("color", "red").Or().EqualTo("color", "blue").Or().EqualTo("color", "green").
		Build()
	require.NoError(t, err)

	repeated, err := Repeat(NewBuilder(c, "Shoe"), colors, func(b *Builder, v string) {
		b.Or().EqualTo("color", v)
	}).Build()
	require.NoError(t, err)

	assert.Equal(t, manual.Predicate, repeated.Predicate)

	anyOf, err := AnyOf(NewBuilder(c, "Shoe"), "color", colors).Build()
	require.NoError(t, err)
	assert.Equal(t, Group{Inner: manual.Predicate}, anyOf.Predicate)
}

func TestOptional(t *testing.T) {
	c := testCatalog()

	build := func(withColor bool) *QueryPlan {
		plan, err := NewBuilder(c, "Shoe").
			EqualTo("model", "Runner").
			Optional(withColor, func(b *Builder) { b.EqualTo("color", "red") }).
			Build()
		require.NoError(t, err)
		return plan
	}

	assert.Equal(t, `model = "Runner"`, build(false).Predicate.String())
	assert.Equal(t, `model = "Runner" AND color = "red"`, build(true).Predicate.String())
}

func TestConstructionErrors(t *testing.T) {
	c := testCatalog()

	cases := []struct {
		name string
		b    *Builder
		err  error
	}{
		{"string op on number", NewBuilder(c, "Shoe").StartsWith("size", "4"), ErrTypeMismatch},
		{"string operand on number", NewBuilder(c, "Shoe").EqualTo("size", "forty"), ErrTypeMismatch},
		{"null bound", NewBuilder(c, "Shoe").GreaterThan("size", nil), ErrTypeMismatch},
		{"sum of string", NewBuilder(c, "Shoe").Property("model").Select(SumTerminal), ErrTypeMismatch},
		{"aggregate without property", NewBuilder(c, "Shoe").Select(MaxTerminal), ErrUnknownField},
		{"dangling escape", NewBuilder(c, "Shoe").Matches("model", `Run\`), ErrPatternError},
		{"unknown relation", NewBuilder(c, "Shoe").LinkExists("maker", nil), ErrUnknownRelation},
		{"unknown field", NewBuilder(c, "Shoe").EqualTo("weight", 3), ErrUnknownField},
		{"unknown collection", NewBuilder(c, "Boot"), ErrCollectionNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.b.Build()
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.err)

			var ce *ConstructionError
			assert.True(t, errors.As(err, &ce))
		})
	}
}

func TestRelatedBuilderChecksTarget(t *testing.T) {
	c := testCatalog()
	b := NewBuilder(c, "Brand")

	plan, err := b.LinkExists("shoes", b.Related("shoes").GreaterThan("size", 44)).Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"shoes"}, Relations(plan.Predicate))

	_, err = b.LinkExists("shoes", b.Sub().EqualTo("name", "x")).Build()
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = NewBuilder(c, "Brand").LinkExists("owner", nil).Build()
	assert.ErrorIs(t, err, ErrUnknownRelation)
}

func TestIndexSelectionLongestPrefix(t *testing.T) {
	c := testCatalog()

	plan, err := NewBuilder(c, "Shoe").
		EqualTo("color", "red").
		EqualTo("model", "Runner").
		GreaterThan("size", 40).
		Build()
	require.NoError(t, err)

	require.False(t, plan.Where.IsScan())
	assert.Equal(t, "by_model_size", plan.Where.Index.Name)
	assert.Len(t, plan.Where.Bounds, 2)
	assert.Equal(t, 1, plan.Where.PointFields())
	assert.Equal(t, `color = "red"`, plan.Filter.String())
}

func TestIndexSelectionTieBreakIsDeclarationOrder(t *testing.T) {
	c := testCatalog()

	for range 10 {
		plan, err := NewBuilder(c, "Shoe").
			EqualTo("color", "red").
			EqualTo("model", "Runner").
			Build()
		require.NoError(t, err)

		// by_model, by_model_size and by_color all match one field
		assert.Equal(t, "by_model", plan.Where.Index.Name)
		assert.Equal(t, `color = "red"`, plan.Filter.String())
	}
}

func TestIndexSelectionDoesNotCrossOr(t *testing.T) {
	plan, err := NewBuilder(testCatalog(), "Shoe").
		EqualTo("model", "Runner").Or().EqualTo("size", 40).
		Build()
	require.NoError(t, err)

	assert.True(t, plan.Where.IsScan())
	assert.Equal(t, plan.Predicate, plan.Filter)
}

func TestIndexSelectionIntersectsRanges(t *testing.T) {
	plan, err := NewBuilder(testCatalog(), "Shoe").
		GreaterThan("size", 39).
		LessThan("size", 46, Inclusive()).
		Build()
	require.NoError(t, err)

	require.Equal(t, "by_size", plan.Where.Index.Name)
	assert.Nil(t, plan.Filter)
	assert.Equal(t, "(39, 46]", plan.Where.Bounds[0].String())
}

func TestCaseInsensitiveEqualityStaysInFilter(t *testing.T) {
	plan, err := NewBuilder(testCatalog(), "Shoe").
		EqualTo("model", "runner", CaseInsensitive()).
		Build()
	require.NoError(t, err)

	assert.True(t, plan.Where.IsScan())
	assert.NotNil(t, plan.Filter)
}

func TestIndexHint(t *testing.T) {
	c := testCatalog()

	plan, err := NewBuilder(c, "Shoe").
		EqualTo("color", "red").
		EqualTo("model", "Runner").
		UseIndex("by_color").
		Build()
	require.NoError(t, err)
	assert.Equal(t, "by_color", plan.Where.Index.Name)

	plan, err = NewBuilder(c, "Shoe").
		EqualTo("model", "Runner").
		UseIndex("by_size").
		Build()
	require.NoError(t, err)
	assert.True(t, plan.Where.IsScan())
	assert.NotNil(t, plan.Filter)
}

func TestLeafNullSemantics(t *testing.T) {
	c := testCatalog()

	leafOf := func(b *Builder) *FilterCondition {
		plan, err := b.UseIndex("none").Build()
		require.NoError(t, err)
		return plan.Filter.(Leaf).Cond
	}

	lt := leafOf(NewBuilder(c, "Shoe").LessThan("size", 40))
	assert.True(t, lt.Test(schema.Null()))
	assert.True(t, lt.Test(schema.Int(39)))
	assert.False(t, lt.Test(schema.Int(40)))

	gt := leafOf(NewBuilder(c, "Shoe").GreaterThan("size", 40, Inclusive()))
	assert.False(t, gt.Test(schema.Null()))
	assert.True(t, gt.Test(schema.Int(40)))

	sw := leafOf(NewBuilder(c, "Shoe").StartsWith("model", "run", CaseInsensitive()))
	assert.True(t, sw.Test(schema.String("Runner")))
	assert.False(t, sw.Test(schema.Null()))

	eq := leafOf(NewBuilder(c, "Shoe").EqualTo("model", "RUNNER", CaseInsensitive()))
	assert.True(t, eq.Test(schema.String("runner")))
	assert.False(t, eq.Test(schema.String("runners")))
}

func TestCloneLeavesBuilderUntouched(t *testing.T) {
	b := NewBuilder(testCatalog(), "Shoe").GreaterThan("size", 40).SortBy("model", Asc)

	c := b.Clone().Property("size").Select(MaxTerminal).ThenBy("price", Desc)
	_, err := c.Build()
	require.NoError(t, err)

	c.Property("nope")
	assert.Error(t, c.Err())
	require.NoError(t, b.Err())

	plan, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, FindAllTerminal, plan.Terminal)
	assert.Equal(t, -1, plan.PropertyColumn)
	assert.Len(t, plan.Sort, 1)
}

func TestFloatOperandsTakeColumnPrecision(t *testing.T) {
	c := catalog{"Parcel": &schema.Schema{
		Name: "Parcel",
		Columns: []schema.SchemaColumn{
			{Name: "w32", Type: schema.Float32FieldType},
			{Name: "w64", Type: schema.Float64FieldType},
		},
	}}

	leafOf := func(b *Builder) *FilterCondition {
		plan, err := b.Build()
		require.NoError(t, err)
		return plan.Filter.(Leaf).Cond
	}

	eq32 := leafOf(NewBuilder(c, "Parcel").EqualTo("w32", 0.1))
	assert.Equal(t, float64(float32(0.1)), eq32.Bounds.Lower.Float())
	assert.True(t, eq32.Test(schema.Float(float64(float32(0.1)))))

	eq64 := leafOf(NewBuilder(c, "Parcel").EqualTo("w64", 0.1))
	assert.Equal(t, 0.1, eq64.Bounds.Lower.Float())

	// integer operands on float columns become floats
	gt := leafOf(NewBuilder(c, "Parcel").GreaterThan("w64", 2))
	assert.Equal(t, schema.FloatKind, gt.Bounds.Lower.Kind())
}

func TestPlanString(t *testing.T) {
	plan, err := NewBuilder(testCatalog(), "Shoe").
		GreaterThan("size", 42).
		SortBy("price", Desc).
		DistinctBy("model", CaseInsensitive()).
		Offset(-5).
		Limit(10).
		Build()
	require.NoError(t, err)

	assert.Equal(t, 0, plan.Offset)
	assert.Equal(t, "findAll Shoe via index by_size [size (42, +inf)] sort price desc distinct model ci limit 10", plan.String())
}
