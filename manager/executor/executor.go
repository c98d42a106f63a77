package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dot5enko/simple-object-db/manager/query"
	"github.com/dot5enko/simple-object-db/schema"
)

// Result holds the outcome of one terminal. Only the fields of the plan's terminal are set.
type Result struct {
	Terminal query.Terminal

	Records []*schema.Record
	Values  []schema.Value
	Value   schema.Value

	// Count is the number of matching records for count and of removed ones for deletes.
	Count int

	Stats Stats
}

type execution struct {
	ctx  context.Context
	snap Snapshot
	plan *query.QueryPlan

	stats *Stats

	reader      IndexReader
	keyColumns  []int
	absorbed    []*query.FilterCondition
	idxDistinct *indexDistinct
}

// Run executes the plan against one snapshot, synchronously, in the fixed order:
// traversal, filter, sort, distinct, pagination, terminal.
func Run(ctx context.Context, snap Snapshot, plan *query.QueryPlan) (*Result, error) {

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()

	res := &Result{Terminal: plan.Terminal}
	res.Stats.Snapshot = snap.Id()

	e := &execution{
		ctx:   ctx,
		snap:  snap,
		plan:  plan,
		stats: &res.Stats,
	}
	e.openIndex()

	err := e.terminal(res)

	res.Stats.Duration = time.Since(started)

	if err != nil {
		slog.Debug("query failed", "plan", plan.String(), "stats", res.Stats, "err", err.Error())
		return res, err
	}

	slog.Debug("query executed", "plan", plan.String(), "stats", res.Stats)

	return res, nil
}

func (e *execution) terminal(res *Result) error {

	plan := e.plan

	switch plan.Terminal {

	case query.FindAllTerminal:
		return e.stream(func(v *recordView) (bool, error) {
			rec, err := e.materialize(v)
			if err != nil {
				return false, err
			}
			res.Records = append(res.Records, rec)
			return true, nil
		})

	case query.FindFirstTerminal:
		err := e.stream(func(v *recordView) (bool, error) {
			rec, err := e.materialize(v)
			if err != nil {
				return false, err
			}
			res.Records = append(res.Records, rec)
			return false, nil
		})
		if err == nil && len(res.Records) == 0 {
			return ErrNotFound
		}
		return err

	case query.CountTerminal:
		return e.stream(func(v *recordView) (bool, error) {
			res.Count++
			return true, nil
		})

	case query.DeleteFirstTerminal, query.DeleteAllTerminal:
		return e.delete(res)

	case query.PropertyTerminal:
		return e.stream(func(v *recordView) (bool, error) {
			val, err := e.get(v, plan.PropertyColumn)
			if err != nil {
				return false, err
			}
			res.Values = append(res.Values, val)
			return true, nil
		})

	case query.MinTerminal, query.MaxTerminal, query.SumTerminal, query.AverageTerminal:
		agg := &aggregator{typ: plan.PropertyType}
		err := e.stream(func(v *recordView) (bool, error) {
			val, err := e.get(v, plan.PropertyColumn)
			if err != nil {
				return false, err
			}
			agg.add(val)
			return true, nil
		})
		if err != nil {
			return err
		}
		res.Value = agg.result(plan.Terminal)
		return nil
	}

	return fmt.Errorf("unsupported terminal %s", plan.Terminal.String())
}

// delete collects the ids from the snapshot order first and removes them as one batch.
func (e *execution) delete(res *Result) error {

	deleter, ok := e.snap.(BatchDeleter)
	if !ok {
		return ErrReadOnly
	}

	first := e.plan.Terminal == query.DeleteFirstTerminal

	var ids []uint64
	err := e.stream(func(v *recordView) (bool, error) {
		ids = append(ids, v.id)
		return !first, nil
	})
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		if first {
			return ErrNotFound
		}
		return nil
	}

	if err := canceled(e.ctx); err != nil {
		return err
	}

	removed, err := deleter.DeleteBatch(e.plan.Schema.Name, ids)
	if err != nil {
		return fmt.Errorf("batch delete of %d records: %w", len(ids), err)
	}
	res.Count = removed

	return nil
}

// stream runs the pipeline and hands surviving records to sink until it returns false.
// Without sort keys records flow one by one and the traversal stops as soon as the page
// is full. With sort keys the filtered set is buffered first.
func (e *execution) stream(sink func(v *recordView) (bool, error)) error {

	plan := e.plan

	reducers := newDistinctReducers(plan.Distinct)
	if e.idxDistinct != nil {
		reducers = reducers[1:]
	}
	page := newPaginator(plan.Offset, plan.Limit)

	if page.full() {
		return nil
	}

	downstream := func(v *recordView) (bool, error) {

		if e.idxDistinct != nil && !e.idxDistinct.keep(v, e.keyColumns) {
			return true, nil
		}

		for _, r := range reducers {
			val, err := e.get(v, r.key.Column)
			if err != nil {
				return false, err
			}
			if !r.keep(val) {
				return true, nil
			}
		}

		if !page.admit() {
			return !page.full(), nil
		}
		e.stats.Emitted++

		next, err := sink(v)
		if err != nil || !next {
			return false, err
		}
		return !page.full(), nil
	}

	filtered := func(v *recordView) (bool, error) {
		if len(e.absorbed) > 0 {
			ok, err := e.matchAbsorbed(v)
			if err != nil || !ok {
				return false, err
			}
		}

		ok, err := e.eval(plan.Filter, v)
		if err != nil || !ok {
			return false, err
		}
		e.stats.Matched++

		return true, nil
	}

	if len(plan.Sort) == 0 {
		return e.candidates(func(v *recordView) (bool, error) {
			ok, err := filtered(v)
			if err != nil || !ok {
				return err == nil, err
			}
			return downstream(v)
		})
	}

	var buffer []*recordView
	err := e.candidates(func(v *recordView) (bool, error) {
		ok, err := filtered(v)
		if err != nil || !ok {
			return err == nil, err
		}
		buffer = append(buffer, v)
		return true, nil
	})
	if err != nil {
		return err
	}

	// stage boundary
	if err := canceled(e.ctx); err != nil {
		return err
	}

	if err := e.sortViews(buffer, plan.Sort); err != nil {
		return err
	}

	if err := canceled(e.ctx); err != nil {
		return err
	}

	for _, v := range buffer {
		next, err := downstream(v)
		if err != nil {
			return err
		}
		if !next {
			break
		}
	}

	return nil
}
