package executor

import (
	"github.com/dot5enko/simple-object-db/manager/query"
	"github.com/dot5enko/simple-object-db/ops"
	"github.com/dot5enko/simple-object-db/schema"
)

// aggregator folds a projected property stream. Nulls do not contribute to any result.
type aggregator struct {
	typ schema.FieldType

	ints   ops.Accumulator[int64]
	floats ops.Accumulator[float64]

	// other kinds only need min and max
	min, max schema.Value
	others   int
}

func (a *aggregator) add(v schema.Value) {
	if v.IsNull() {
		return
	}

	switch {
	case a.typ.IsInteger():
		a.ints.Add(v.Int())
	case a.typ.IsFloat():
		a.floats.Add(v.Float())
	default:
		if a.others == 0 || v.Compare(a.min) < 0 {
			a.min = v
		}
		if a.others == 0 || v.Compare(a.max) > 0 {
			a.max = v
		}
		a.others++
	}
}

// result returns Null for min and max of an empty stream, 0 for sum and NaN for average.
func (a *aggregator) result(t query.Terminal) schema.Value {

	switch {
	case a.typ.IsInteger():
		switch t {
		case query.MinTerminal:
			if a.ints.Empty() {
				return schema.Null()
			}
			return schema.Int(a.ints.Min)
		case query.MaxTerminal:
			if a.ints.Empty() {
				return schema.Null()
			}
			return schema.Int(a.ints.Max)
		case query.SumTerminal:
			return schema.Int(a.ints.Sum)
		case query.AverageTerminal:
			return schema.Float(a.ints.Mean())
		}

	case a.typ.IsFloat():
		switch t {
		case query.MinTerminal:
			if a.floats.Empty() {
				return schema.Null()
			}
			return schema.Float(a.floats.Min)
		case query.MaxTerminal:
			if a.floats.Empty() {
				return schema.Null()
			}
			return schema.Float(a.floats.Max)
		case query.SumTerminal:
			return schema.Float(a.floats.Sum)
		case query.AverageTerminal:
			return schema.Float(a.floats.Mean())
		}

	default:
		switch t {
		case query.MinTerminal:
			return a.min
		case query.MaxTerminal:
			return a.max
		}
	}

	return schema.Null()
}
