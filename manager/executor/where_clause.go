package executor

import (
	"log/slog"

	"github.com/dot5enko/simple-object-db/manager/query"
	"github.com/dot5enko/simple-object-db/schema"
)

// candidates emits record views in traversal order until fn returns false.
func (e *execution) candidates(fn func(v *recordView) (bool, error)) error {

	plan := e.plan
	s := plan.Schema

	var fnErr error
	emit := func(id uint64, key []schema.Value) bool {

		if fnErr = canceled(e.ctx); fnErr != nil {
			return false
		}

		e.stats.Candidates++

		v := newRecordView(s, id)
		for i, val := range key {
			v.prime(e.keyColumns[i], val)
		}

		next, err := fn(v)
		if err != nil {
			fnErr = err
			return false
		}
		return next
	}

	if e.reader == nil {
		if err := e.snap.Scan(s.Name, plan.Descending, func(id uint64) bool {
			return emit(id, nil)
		}); err != nil {
			return err
		}
		return fnErr
	}

	e.stats.Index = plan.Where.Index.Name

	if err := e.reader.Scan(plan.Where.Bounds, plan.Descending, emit); err != nil {
		return err
	}

	return fnErr
}

// matchAbsorbed re-checks the conditions an index would have answered.
func (e *execution) matchAbsorbed(v *recordView) (bool, error) {
	for _, cond := range e.absorbed {
		val, err := e.get(v, cond.Column)
		if err != nil {
			return false, err
		}
		if !cond.Test(val) {
			return false, nil
		}
	}
	return true, nil
}

func indexColumns(plan *query.QueryPlan) []int {
	if plan.Where.IsScan() {
		return nil
	}

	cols := make([]int, len(plan.Where.Index.Fields))
	for i, f := range plan.Where.Index.Fields {
		cols[i] = plan.Schema.ColumnIndex(f)
	}
	return cols
}

// openIndex binds the chosen index. A snapshot without it degrades to a scan that
// re-checks the absorbed conditions.
func (e *execution) openIndex() {
	plan := e.plan

	if plan.Where.IsScan() {
		return
	}

	reader, ok := e.snap.Index(plan.Schema.Name, plan.Where.Index.Name)
	if ok {
		e.reader = reader
		e.keyColumns = indexColumns(plan)
		e.idxDistinct = newIndexDistinct(plan)
		e.stats.IndexDistinct = e.idxDistinct != nil
		return
	}

	slog.Warn("index missing in snapshot, scanning", "collection", plan.Schema.Name, "index", plan.Where.Index.Name)
	e.absorbed = plan.Where.Absorbed
}
