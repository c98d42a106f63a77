package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/dot5enko/simple-object-db/manager/executor"
	"github.com/dot5enko/simple-object-db/manager/query"
	"github.com/fatih/color"
	"github.com/panjf2000/ants/v2"
)

var (
	ErrQueueFull = errors.New("query queue is full")
	ErrPanicked  = errors.New("query execution panicked")
)

// AsyncResult is delivered once per submitted plan.
type AsyncResult struct {
	Plan   *query.QueryPlan
	Result *executor.Result
	Err    error
}

func (sm *Manager) startWorkers() (*ants.Pool, error) {

	options := []ants.Option{
		ants.WithPanicHandler(func(v any) {
			slog.Error("query worker panicked", "panic", v)
		}),
	}

	if sm.config.QueueSize > 0 {
		options = append(options, ants.WithMaxBlockingTasks(sm.config.QueueSize))
	}

	slog.Info("starting workers", "max_executors", sm.config.Workers)

	return ants.NewPool(sm.config.Workers, options...)
}

// Submit runs the plan on a worker against a snapshot taken now, so the result reflects
// the state at submission time. The returned channel yields exactly one AsyncResult.
func (sm *Manager) Submit(ctx context.Context, plan *query.QueryPlan) <-chan AsyncResult {

	out := make(chan AsyncResult, 1)

	snap := sm.store.Snapshot()

	task := func() {
		defer snap.Release()

		defer func() {
			if r := recover(); r != nil {
				color.Red("query on %s panicked: %v", plan.Schema.Name, r)
				slog.Debug("panic stack", "stack", string(debug.Stack()))

				out <- AsyncResult{Plan: plan, Err: fmt.Errorf("%w: %v", ErrPanicked, r)}
			}
		}()

		res, err := sm.RunOn(ctx, snap, plan)
		if err != nil && !errors.Is(err, executor.ErrNotFound) {
			color.Red("query on %s failed: %s", plan.Schema.Name, err.Error())
		}

		out <- AsyncResult{Plan: plan, Result: res, Err: err}
	}

	if err := sm.pool.Submit(task); err != nil {
		snap.Release()

		switch {
		case errors.Is(err, ants.ErrPoolClosed):
			err = ErrClosed
		case errors.Is(err, ants.ErrPoolOverload):
			err = ErrQueueFull
		}

		out <- AsyncResult{Plan: plan, Err: err}
	}

	return out
}
