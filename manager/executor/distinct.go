package executor

import (
	"github.com/dot5enko/simple-object-db/manager/query"
	"github.com/dot5enko/simple-object-db/schema"
)

// distinctReducer keeps the first record per value of one property. Reducers are chained
// in declaration order, each one sees what the previous one kept.
type distinctReducer struct {
	key  query.DistinctKey
	seen map[string]struct{}
}

func newDistinctReducers(keys []query.DistinctKey) []*distinctReducer {
	out := make([]*distinctReducer, len(keys))
	for i, k := range keys {
		out[i] = &distinctReducer{key: k, seen: map[string]struct{}{}}
	}
	return out
}

func (d *distinctReducer) keep(val schema.Value) bool {
	k := val.Key(d.key.CaseInsensitive)
	if _, dup := d.seen[k]; dup {
		return false
	}
	d.seen[k] = struct{}{}
	return true
}

// indexDistinct collapses adjacent equal index keys during traversal. It only applies
// when the first distinct field sits in the index right after the point constrained
// prefix and nothing reorders or drops records before the reduction.
type indexDistinct struct {
	position int

	prev    schema.Value
	started bool
}

func newIndexDistinct(plan *query.QueryPlan) *indexDistinct {

	if plan.Where.IsScan() || plan.Filter != nil || len(plan.Sort) > 0 || len(plan.Distinct) == 0 {
		return nil
	}

	first := plan.Distinct[0]
	if first.CaseInsensitive {
		return nil
	}

	fields := plan.Where.Index.Fields
	for pos, f := range fields {
		if pos > plan.Where.PointFields() {
			break
		}
		if f == first.Field {
			return &indexDistinct{position: pos}
		}
	}

	return nil
}

func (d *indexDistinct) keep(v *recordView, keyColumns []int) bool {
	val := v.valueAt(keyColumns[d.position])

	if d.started && val.Key(false) == d.prev.Key(false) {
		return false
	}

	d.prev = val
	d.started = true

	return true
}
