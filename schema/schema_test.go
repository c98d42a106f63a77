package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shoeSchema() *Schema {
	return &Schema{
		Name: "Shoe",
		Columns: []SchemaColumn{
			{Name: "model", Type: StringFieldType},
			{Name: "size", Type: Int16FieldType, Nullable: true},
			{Name: "price", Type: Float32FieldType, Nullable: true},
		},
		Indexes: []IndexDef{{Name: "by_size", Fields: []string{"size"}}},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, shoeSchema().Validate())

	broken := []func(s *Schema){
		func(s *Schema) { s.Name = "" },
		func(s *Schema) { s.Columns = nil },
		func(s *Schema) { s.Columns = append(s.Columns, SchemaColumn{Name: "size", Type: Int8FieldType}) },
		func(s *Schema) { s.Columns[0].Type = FieldType(99) },
		func(s *Schema) { s.Indexes = append(s.Indexes, IndexDef{Name: "by_size", Fields: []string{"model"}}) },
		func(s *Schema) { s.Indexes[0].Fields = []string{"weight"} },
		func(s *Schema) { s.Links = []LinkDef{{Name: "brand"}} },
		func(s *Schema) { s.Links = []LinkDef{{Name: "model", Target: "Brand"}} },
		func(s *Schema) { s.Links = []LinkDef{{Name: "makers", Target: "Brand", Backlink: true}} },
	}

	for i, mutate := range broken {
		s := shoeSchema()
		mutate(s)
		assert.ErrorIs(t, s.Validate(), ErrInvalidSchema, "case %d", i)
	}
}

func TestNewRecordValues(t *testing.T) {
	s := shoeSchema()

	values, err := NewRecordValues(s, map[string]any{"model": "Runner", "size": 42.0})
	require.NoError(t, err)
	assert.Equal(t, []Value{String("Runner"), Int(42), Null()}, values)

	_, err = NewRecordValues(s, map[string]any{"model": "Runner", "weight": 3})
	assert.Error(t, err)

	_, err = NewRecordValues(s, map[string]any{"size": 40})
	assert.ErrorIs(t, err, ErrValueType)

	_, err = NewRecordValues(s, map[string]any{"model": "Runner", "size": 70000})
	assert.ErrorIs(t, err, ErrValueType)

	_, err = NewRecordValues(s, map[string]any{"model": "Runner", "size": 40.5})
	assert.ErrorIs(t, err, ErrValueType)

	_, err = NewRecordValues(s, map[string]any{"model": 12})
	assert.ErrorIs(t, err, ErrValueType)
}

func TestCompareNullFirst(t *testing.T) {
	assert.Equal(t, -1, Null().Compare(Int(-1000)))
	assert.Equal(t, 1, String("").Compare(Null()))
	assert.Equal(t, 0, Null().Compare(Null()))

	assert.Equal(t, 0, Int(3).Compare(Float(3)))
	assert.Equal(t, -1, Int(3).Compare(Float(3.5)))
	assert.Equal(t, 1, String("b").Compare(String("a")))
	assert.Equal(t, 0, String("Runner").CompareFold(String("RUNNER")))

	assert.Equal(t, Int(3).Key(false), Float(3).Key(false))
	assert.NotEqual(t, String("Red").Key(false), String("red").Key(false))
	assert.Equal(t, String("Red").Key(true), String("red").Key(true))

	// long s folds with s although strings.ToLower keeps it apart
	assert.Equal(t, 0, String("\u017f").CompareFold(String("S")))
	assert.Equal(t, String("\u017f").Key(true), String("s").Key(true))
	assert.Equal(t, String("\u212a").Key(true), String("K").Key(true))
}

func TestCoerceFloat32Rounds(t *testing.T) {
	v, err := Float32FieldType.Coerce(Float(0.1))
	require.NoError(t, err)
	assert.Equal(t, float64(float32(0.1)), v.Float())
	assert.NotEqual(t, 0.1, v.Float())

	v, err = Float64FieldType.Coerce(Float(0.1))
	require.NoError(t, err)
	assert.Equal(t, 0.1, v.Float())

	v, err = Float32FieldType.Coerce(Int(3))
	require.NoError(t, err)
	assert.Equal(t, Float(3), v)
}

func TestBoundsMorph(t *testing.T) {
	b := Unbounded()
	assert.True(t, b.Contains(Null()))

	changed := b.Morph(Bounds{Lower: Int(39), HasLower: true})
	assert.True(t, changed)
	assert.Equal(t, "(39, +inf)", b.String())
	assert.False(t, b.Contains(Null()))

	changed = b.Morph(Bounds{Upper: Int(46), HasUpper: true, IncludeUpper: true})
	assert.True(t, changed)
	assert.Equal(t, "(39, 46]", b.String())

	// looser bounds keep the current ones
	changed = b.Morph(Bounds{Lower: Int(10), HasLower: true, IncludeLower: true})
	assert.False(t, changed)

	changed = b.Morph(Bounds{Upper: Int(46), HasUpper: true})
	assert.True(t, changed)
	assert.Equal(t, "(39, 46)", b.String())

	assert.False(t, b.Contains(Int(39)))
	assert.True(t, b.Contains(Int(40)))
	assert.False(t, b.Contains(Int(46)))

	b.Morph(Bounds{Upper: Int(20), HasUpper: true})
	assert.True(t, b.IsEmpty())

	assert.True(t, Point(Int(4)).IsPoint())
	assert.Equal(t, "(-inf, 40]", Bounds{Upper: Int(40), HasUpper: true, IncludeUpper: true}.String())
}

func TestFieldTypeJSON(t *testing.T) {
	raw := `{"name": "Brand", "columns": [{"name": "name", "type": "string"}, {"name": "founded", "type": "Uint16", "nullable": true}]}`

	var s Schema
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, StringFieldType, s.Columns[0].Type)
	assert.Equal(t, Uint16FieldType, s.Columns[1].Type)

	out, err := json.Marshal(s.Columns[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "founded", "type": "Uint16", "nullable": true}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"name": "x", "type": "decimal"}`), &SchemaColumn{}))
}

func TestRecord(t *testing.T) {
	s := shoeSchema()
	r := &Record{Id: 7, Schema: s, Values: []Value{String("Runner"), Int(42), Null()}}

	assert.Equal(t, Int(42), r.Get("size"))
	assert.True(t, r.Get("missing").IsNull())
	assert.Equal(t, map[string]any{"model": "Runner", "size": int64(42), "price": nil}, r.Map())
	assert.Equal(t, `Shoe#7{model: "Runner", size: 42, price: null}`, r.String())
}
