package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dot5enko/simple-object-db/codec"
	"github.com/dot5enko/simple-object-db/logger"
	"github.com/dot5enko/simple-object-db/manager/executor"
	"github.com/dot5enko/simple-object-db/manager/meta"
	"github.com/dot5enko/simple-object-db/manager/query"
	"github.com/dot5enko/simple-object-db/schema"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrClosed = errors.New("manager closed")
)

const closeTimeout = 10 * time.Second

type ManagerConfig struct {
	// Workers bounds the number of asynchronous executions running at once.
	Workers int `mapstructure:"workers"`
	// QueueSize is how many submissions may wait for a worker, 0 is unbounded.
	QueueSize int `mapstructure:"queue_size"`

	// records encoded larger than this are lz4 compressed, 0 disables compression
	CompressThreshold int `mapstructure:"compress_threshold"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Registerer prometheus.Registerer `mapstructure:"-"`
}

func DefaultConfig() ManagerConfig {
	return ManagerConfig{
		Workers:           4,
		QueueSize:         256,
		CompressThreshold: 256,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Manager owns the schema registry, the record store and the pool asynchronous queries
// run on.
type Manager struct {
	Meta  *meta.MetaManager
	store *meta.Store

	config ManagerConfig

	pool    *ants.Pool
	metrics *metrics
}

func New(config ManagerConfig) (*Manager, error) {

	if config.LogLevel != "" || config.LogFormat != "" {
		logger.Init(logger.Config{Level: config.LogLevel, Format: config.LogFormat})
	}

	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}

	metaManager := meta.NewMetaManager()
	store := meta.NewStore(metaManager, codec.Codec{CompressThreshold: config.CompressThreshold})

	sm := &Manager{
		Meta:   metaManager,
		store:  store,
		config: config,
	}

	pool, err := sm.startWorkers()
	if err != nil {
		return nil, fmt.Errorf("unable to start query workers: %w", err)
	}
	sm.pool = pool

	sm.metrics = newMetrics(config.Registerer, store)

	slog.Info("manager started", "workers", config.Workers, "queue_size", config.QueueSize, "compress_threshold", config.CompressThreshold)

	return sm, nil
}

// CreateSchema registers collections. Schemas linking to each other may be passed together.
func (sm *Manager) CreateSchema(schemas ...*schema.Schema) error {
	return sm.Meta.AddSchema(schemas...)
}

func (sm *Manager) Ingest(collection string, rows ...map[string]any) ([]uint64, error) {

	ids, err := sm.store.Ingest(collection, rows)
	if err != nil {
		return nil, err
	}
	sm.metrics.ingested.WithLabelValues(collection).Add(float64(len(ids)))

	return ids, nil
}

func (sm *Manager) Link(collection, relation string, from uint64, to ...uint64) error {
	return sm.store.Link(collection, relation, from, to...)
}

// Query starts a builder over the collection. Construction errors surface from Build or
// from the terminal methods.
func (sm *Manager) Query(collection string) *query.Builder {
	return query.NewBuilder(sm.Meta, collection)
}

// Snapshot pins the current state. The caller must Release it.
func (sm *Manager) Snapshot() *meta.Snapshot {
	return sm.store.Snapshot()
}

// Run executes a plan on a fresh snapshot.
func (sm *Manager) Run(ctx context.Context, plan *query.QueryPlan) (*executor.Result, error) {
	snap := sm.store.Snapshot()
	defer snap.Release()

	return sm.RunOn(ctx, snap, plan)
}

// RunOn executes a plan on a snapshot the caller holds.
func (sm *Manager) RunOn(ctx context.Context, snap executor.Snapshot, plan *query.QueryPlan) (*executor.Result, error) {

	started := time.Now()

	res, err := executor.Run(ctx, snap, plan)

	sm.metrics.observe(plan, res, err, time.Since(started))

	return res, err
}

// exec builds from a copy, a builder stays reusable across terminals.
func (sm *Manager) exec(ctx context.Context, b *query.Builder, t query.Terminal) (*executor.Result, error) {
	plan, err := b.Clone().Select(t).Build()
	if err != nil {
		return nil, err
	}
	return sm.Run(ctx, plan)
}

func (sm *Manager) FindAll(ctx context.Context, b *query.Builder) ([]*schema.Record, error) {
	res, err := sm.exec(ctx, b, query.FindAllTerminal)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// FindFirst returns executor.ErrNotFound when nothing matches.
func (sm *Manager) FindFirst(ctx context.Context, b *query.Builder) (*schema.Record, error) {
	res, err := sm.exec(ctx, b, query.FindFirstTerminal)
	if err != nil {
		return nil, err
	}
	return res.Records[0], nil
}

func (sm *Manager) Count(ctx context.Context, b *query.Builder) (int, error) {
	res, err := sm.exec(ctx, b, query.CountTerminal)
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

func (sm *Manager) DeleteFirst(ctx context.Context, b *query.Builder) error {
	_, err := sm.exec(ctx, b, query.DeleteFirstTerminal)
	return err
}

// DeleteAll returns the number of removed records.
func (sm *Manager) DeleteAll(ctx context.Context, b *query.Builder) (int, error) {
	res, err := sm.exec(ctx, b, query.DeleteAllTerminal)
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Properties projects every matching record to one field, nulls included.
func (sm *Manager) Properties(ctx context.Context, b *query.Builder, field string) ([]schema.Value, error) {
	res, err := sm.exec(ctx, b.Clone().Property(field), query.PropertyTerminal)
	if err != nil {
		return nil, err
	}
	return res.Values, nil
}

func (sm *Manager) aggregate(ctx context.Context, b *query.Builder, field string, t query.Terminal) (schema.Value, error) {
	res, err := sm.exec(ctx, b.Clone().Property(field), t)
	if err != nil {
		return schema.Null(), err
	}
	return res.Value, nil
}

// Min is null when no non-null value matched.
func (sm *Manager) Min(ctx context.Context, b *query.Builder, field string) (schema.Value, error) {
	return sm.aggregate(ctx, b, field, query.MinTerminal)
}

// Max is null when no non-null value matched.
func (sm *Manager) Max(ctx context.Context, b *query.Builder, field string) (schema.Value, error) {
	return sm.aggregate(ctx, b, field, query.MaxTerminal)
}

// Sum is zero of the field's kind when no non-null value matched.
func (sm *Manager) Sum(ctx context.Context, b *query.Builder, field string) (schema.Value, error) {
	return sm.aggregate(ctx, b, field, query.SumTerminal)
}

// Average is NaN when no non-null value matched.
func (sm *Manager) Average(ctx context.Context, b *query.Builder, field string) (float64, error) {
	v, err := sm.aggregate(ctx, b, field, query.AverageTerminal)
	if err != nil {
		return 0, err
	}
	return v.Float(), nil
}

// Close waits for running asynchronous executions and stops the pool.
func (sm *Manager) Close() error {
	if err := sm.pool.ReleaseTimeout(closeTimeout); err != nil {
		return fmt.Errorf("stopping query workers: %w", err)
	}
	slog.Info("manager stopped", "open_snapshots", sm.store.OpenSnapshots())
	return nil
}
