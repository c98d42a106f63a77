package manager

import (
	"context"
	"fmt"

	"github.com/dot5enko/simple-object-db/manager/query"
	"github.com/dot5enko/simple-object-db/schema"
	"golang.org/x/sync/errgroup"
)

// FindAllBatch runs several findAll plans concurrently over one shared snapshot, so all of
// them observe the same state. The first failure cancels the rest.
func (sm *Manager) FindAllBatch(ctx context.Context, plans ...*query.QueryPlan) ([][]*schema.Record, error) {

	snap := sm.store.Snapshot()
	defer snap.Release()

	results := make([][]*schema.Record, len(plans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sm.config.Workers)

	for i, plan := range plans {
		g.Go(func() error {
			res, err := sm.RunOn(gctx, snap, plan.With(query.FindAllTerminal))
			if err != nil {
				return fmt.Errorf("plan %d over %s: %w", i, plan.Schema.Name, err)
			}
			results[i] = res.Records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
