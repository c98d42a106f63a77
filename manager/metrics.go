package manager

import (
	"errors"
	"time"

	"github.com/dot5enko/simple-object-db/manager/executor"
	"github.com/dot5enko/simple-object-db/manager/meta"
	"github.com/dot5enko/simple-object-db/manager/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	queries    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	candidates *prometheus.CounterVec
	ingested   *prometheus.CounterVec
}

// newMetrics registers on reg. A nil registerer keeps the collectors unregistered.
func newMetrics(reg prometheus.Registerer, store *meta.Store) *metrics {

	factory := promauto.With(reg)

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sodb_open_snapshots",
			Help: "Number of snapshots not released yet",
		},
		func() float64 {
			return float64(store.OpenSnapshots())
		},
	)

	return &metrics{
		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sodb_queries_total",
				Help: "Executed query plans by terminal, traversal and outcome",
			},
			[]string{"collection", "terminal", "via", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sodb_query_duration_seconds",
				Help:    "Query execution latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00005, 4, 10),
			},
			[]string{"collection", "terminal"},
		),
		candidates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sodb_query_candidates_total",
				Help: "Records visited by traversal before filtering",
			},
			[]string{"collection", "via"},
		),
		ingested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sodb_ingested_records_total",
				Help: "Records ingested per collection",
			},
			[]string{"collection"},
		),
	}
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, executor.ErrNotFound):
		return "not_found"
	case errors.Is(err, executor.ErrCanceled):
		return "canceled"
	default:
		return "error"
	}
}

func (m *metrics) observe(plan *query.QueryPlan, res *executor.Result, err error, took time.Duration) {

	collection := plan.Schema.Name
	terminal := plan.Terminal.String()

	via := "scan"
	if res != nil {
		if res.Stats.Index != "" {
			via = res.Stats.Index
		}
		m.candidates.WithLabelValues(collection, via).Add(float64(res.Stats.Candidates))
	}

	m.queries.WithLabelValues(collection, terminal, via, status(err)).Inc()
	m.duration.WithLabelValues(collection, terminal).Observe(took.Seconds())
}
