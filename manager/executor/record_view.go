package executor

import (
	"github.com/dot5enko/simple-object-db/bits"
	"github.com/dot5enko/simple-object-db/schema"
)

// recordView reads properties of one candidate on demand and keeps what was read, so a
// record is only decoded in full when a terminal needs it.
type recordView struct {
	collection *schema.Schema
	id         uint64

	loaded bits.Bitset
	values []schema.Value

	record *schema.Record
}

func newRecordView(s *schema.Schema, id uint64) *recordView {
	return &recordView{collection: s, id: id}
}

func (v *recordView) prime(col int, val schema.Value) {
	if v.values == nil {
		v.values = make([]schema.Value, len(v.collection.Columns))
	}
	v.values[col] = val
	v.loaded.Set(col)
}

func (e *execution) get(v *recordView, col int) (schema.Value, error) {

	if v.record != nil {
		return v.record.Values[col], nil
	}

	if v.loaded.Has(col) {
		return v.values[col], nil
	}

	val, err := e.snap.Property(v.collection.Name, v.id, col)
	if err != nil {
		return schema.Null(), err
	}
	e.stats.PropertyReads++

	v.prime(col, val)

	return val, nil
}

func (e *execution) materialize(v *recordView) (*schema.Record, error) {

	if v.record != nil {
		return v.record, nil
	}

	rec, err := e.snap.Record(v.collection.Name, v.id)
	if err != nil {
		return nil, err
	}
	e.stats.Deserialized++

	v.record = rec
	return rec, nil
}

// valueAt returns an already loaded property.
func (v *recordView) valueAt(col int) schema.Value {
	if v.record != nil {
		return v.record.Values[col]
	}
	return v.values[col]
}
