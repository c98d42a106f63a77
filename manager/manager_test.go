package manager

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/dot5enko/simple-object-db/manager/executor"
	"github.com/dot5enko/simple-object-db/manager/query"
	"github.com/dot5enko/simple-object-db/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, reg prometheus.Registerer) *Manager {
	t.Helper()

	config := DefaultConfig()
	config.LogLevel = ""
	config.LogFormat = ""
	config.Workers = 2
	config.Registerer = reg

	sm, err := New(config)
	require.NoError(t, err)

	t.Cleanup(func() {
		sm.Close()
	})

	require.NoError(t, sm.CreateSchema(
		&schema.Schema{
			Name: "Shoe",
			Columns: []schema.SchemaColumn{
				{Name: "model", Type: schema.StringFieldType},
				{Name: "size", Type: schema.Uint8FieldType, Nullable: true},
				{Name: "price", Type: schema.Float32FieldType, Nullable: true},
			},
			Indexes: []schema.IndexDef{
				{Name: "by_size", Fields: []string{"size"}},
			},
			Links: []schema.LinkDef{{Name: "brand", Target: "Brand"}},
		},
		&schema.Schema{
			Name:    "Brand",
			Columns: []schema.SchemaColumn{{Name: "name", Type: schema.StringFieldType}},
			Links:   []schema.LinkDef{{Name: "shoes", Target: "Shoe", Backlink: true, Via: "brand"}},
		},
	))

	_, err = sm.Ingest("Shoe",
		map[string]any{"model": "Runner", "size": 42, "price": 120.0},
		map[string]any{"model": "Trail", "size": 39, "price": 99.5},
		map[string]any{"model": "Court", "size": 44},
		map[string]any{"model": "Runner"},
	)
	require.NoError(t, err)

	return sm
}

func TestTerminals(t *testing.T) {
	sm := newTestManager(t, nil)
	ctx := context.Background()

	all, err := sm.FindAll(ctx, sm.Query("Shoe").GreaterThan("size", 40))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	first, err := sm.FindFirst(ctx, sm.Query("Shoe").EqualTo("model", "Trail"))
	require.NoError(t, err)
	assert.Equal(t, int64(39), first.Get("size").Int())

	_, err = sm.FindFirst(ctx, sm.Query("Shoe").EqualTo("model", "Boot"))
	assert.ErrorIs(t, err, executor.ErrNotFound)

	count, err := sm.Count(ctx, sm.Query("Shoe").IsNull("price"))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	sizes, err := sm.Properties(ctx, sm.Query("Shoe"), "size")
	require.NoError(t, err)
	assert.Len(t, sizes, 4)
	assert.True(t, sizes[3].IsNull())

	minSize, err := sm.Min(ctx, sm.Query("Shoe"), "size")
	require.NoError(t, err)
	assert.Equal(t, int64(39), minSize.Int())

	maxModel, err := sm.Max(ctx, sm.Query("Shoe"), "model")
	require.NoError(t, err)
	assert.Equal(t, "Trail", maxModel.Str())

	sum, err := sm.Sum(ctx, sm.Query("Shoe"), "price")
	require.NoError(t, err)
	assert.InDelta(t, 219.5, sum.Float(), 0.001)

	avg, err := sm.Average(ctx, sm.Query("Shoe").EqualTo("model", "Boot"), "price")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(avg))

	_, err = sm.Sum(ctx, sm.Query("Shoe"), "model")
	assert.ErrorIs(t, err, query.ErrTypeMismatch)

	_, err = sm.FindAll(ctx, sm.Query("Sandal"))
	assert.ErrorIs(t, err, query.ErrCollectionNotFound)
}

func TestBuilderIsReusable(t *testing.T) {
	sm := newTestManager(t, nil)
	ctx := context.Background()

	b := sm.Query("Shoe").NotNull("size")

	sizes, err := sm.Properties(ctx, b, "size")
	require.NoError(t, err)
	assert.Len(t, sizes, 3)

	_, err = sm.Sum(ctx, b, "model")
	assert.ErrorIs(t, err, query.ErrTypeMismatch)

	count, err := sm.Count(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	all, err := sm.FindAll(ctx, b)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	maxPrice, err := sm.Max(ctx, b, "price")
	require.NoError(t, err)
	assert.InDelta(t, 120.0, maxPrice.Float(), 0.001)

	require.NoError(t, b.Err())

	plan, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, query.FindAllTerminal, plan.Terminal)
	assert.Equal(t, -1, plan.PropertyColumn)
}

func TestDeletes(t *testing.T) {
	sm := newTestManager(t, nil)
	ctx := context.Background()

	require.NoError(t, sm.DeleteFirst(ctx, sm.Query("Shoe").EqualTo("model", "Runner")))

	removed, err := sm.DeleteAll(ctx, sm.Query("Shoe").GreaterThan("size", 40))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	left, err := sm.FindAll(ctx, sm.Query("Shoe"))
	require.NoError(t, err)
	assert.Equal(t, []any{"Trail", "Runner"}, []any{left[0].Get("model").Any(), left[1].Get("model").Any()})

	assert.ErrorIs(t, sm.DeleteFirst(ctx, sm.Query("Shoe").EqualTo("model", "Court")), executor.ErrNotFound)
}

func TestSnapshotIsolation(t *testing.T) {
	sm := newTestManager(t, nil)
	ctx := context.Background()

	plan, err := sm.Query("Shoe").Select(query.CountTerminal).Build()
	require.NoError(t, err)

	snap := sm.Snapshot()
	defer snap.Release()

	_, err = sm.Ingest("Shoe", map[string]any{"model": "Boot", "size": 45})
	require.NoError(t, err)
	_, err = sm.DeleteAll(ctx, sm.Query("Shoe").EqualTo("model", "Trail"))
	require.NoError(t, err)

	old, err := sm.RunOn(ctx, snap, plan)
	require.NoError(t, err)
	assert.Equal(t, 4, old.Count)

	current, err := sm.Run(ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, 4, current.Count)

	pinned, err := sm.RunOn(ctx, snap, plan.With(query.FindAllTerminal))
	require.NoError(t, err)
	for _, r := range pinned.Records {
		assert.NotEqual(t, "Boot", r.Get("model").Str())
	}
}

func TestSubmit(t *testing.T) {
	sm := newTestManager(t, nil)
	ctx := context.Background()

	plans := []*query.QueryPlan{}
	for _, size := range []int{39, 42, 44, 50} {
		plan, err := sm.Query("Shoe").EqualTo("size", size).Select(query.CountTerminal).Build()
		require.NoError(t, err)
		plans = append(plans, plan)
	}

	channels := make([]<-chan AsyncResult, len(plans))
	for i, plan := range plans {
		channels[i] = sm.Submit(ctx, plan)
	}

	counts := make([]int, len(plans))
	for i, ch := range channels {
		res := <-ch
		require.NoError(t, res.Err)
		assert.Same(t, plans[i], res.Plan)
		counts[i] = res.Result.Count
	}
	assert.Equal(t, []int{1, 1, 1, 0}, counts)

	first, err := sm.Query("Shoe").EqualTo("model", "Boot").Select(query.FindFirstTerminal).Build()
	require.NoError(t, err)
	res := <-sm.Submit(ctx, first)
	assert.ErrorIs(t, res.Err, executor.ErrNotFound)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	res = <-sm.Submit(canceled, plans[0])
	assert.ErrorIs(t, res.Err, executor.ErrCanceled)

	assert.Eventually(t, func() bool {
		return sm.store.OpenSnapshots() == 0
	}, testTimeout, testTick)
}

func TestSubmitAfterClose(t *testing.T) {
	sm := newTestManager(t, nil)

	plan, err := sm.Query("Shoe").Build()
	require.NoError(t, err)

	require.NoError(t, sm.Close())

	res := <-sm.Submit(context.Background(), plan)
	assert.ErrorIs(t, res.Err, ErrClosed)
	assert.Equal(t, int64(0), sm.store.OpenSnapshots())
}

func TestFindAllBatch(t *testing.T) {
	sm := newTestManager(t, nil)
	ctx := context.Background()

	brands, err := sm.Ingest("Brand", map[string]any{"name": "Acme"})
	require.NoError(t, err)
	require.NoError(t, sm.Link("Shoe", "brand", 1, brands[0]))
	require.NoError(t, sm.Link("Shoe", "brand", 3, brands[0]))

	build := func(b *query.Builder) *query.QueryPlan {
		plan, err := b.Build()
		require.NoError(t, err)
		return plan
	}

	brand := sm.Query("Brand")
	results, err := sm.FindAllBatch(ctx,
		build(sm.Query("Shoe").LessThan("size", 43)),
		build(sm.Query("Shoe").Select(query.CountTerminal)),
		build(brand.LinkExists("shoes", brand.Related("shoes").EqualTo("model", "Court"))),
	)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Len(t, results[0], 3)
	assert.Len(t, results[1], 4)
	require.Len(t, results[2], 1)
	assert.Equal(t, "Acme", results[2][0].Get("name").Str())

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = sm.FindAllBatch(canceled, build(sm.Query("Shoe")))
	assert.ErrorIs(t, err, executor.ErrCanceled)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sm := newTestManager(t, reg)
	ctx := context.Background()

	_, err := sm.FindAll(ctx, sm.Query("Shoe").GreaterThan("size", 40))
	require.NoError(t, err)
	_, err = sm.FindFirst(ctx, sm.Query("Shoe").EqualTo("model", "Boot"))
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				byName[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				byName[mf.GetName()] += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				byName[mf.GetName()] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, 2.0, byName["sodb_queries_total"])
	assert.Equal(t, 2.0, byName["sodb_query_duration_seconds"])
	assert.Equal(t, 4.0, byName["sodb_ingested_records_total"])
	assert.Equal(t, 0.0, byName["sodb_open_snapshots"])
	assert.Equal(t, 6.0, byName["sodb_query_candidates_total"])
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	sm := newTestManager(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := sm.Ingest("Shoe", map[string]any{"model": "Boot", "size": 30 + i%10})
			assert.NoError(t, err)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				n, err := sm.Count(ctx, sm.Query("Shoe").LessThan("size", 40, query.Inclusive()))
				assert.NoError(t, err)
				assert.GreaterOrEqual(t, n, 2)
			}
		}()
	}

	wg.Wait()

	n, err := sm.Count(ctx, sm.Query("Shoe").EqualTo("model", "Boot"))
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}
