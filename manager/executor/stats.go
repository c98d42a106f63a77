package executor

import (
	"log/slog"
	"time"
)

// Stats describes the work done by one execution.
type Stats struct {
	Snapshot string
	Index    string

	Candidates     int
	Matched        int
	Emitted        int
	PropertyReads  int
	Deserialized   int
	LinkTraversals int

	// IndexDistinct is set when the first distinct reduction was answered from index keys.
	IndexDistinct bool

	Duration time.Duration
}

func (s Stats) LogValue() slog.Value {
	index := s.Index
	if index == "" {
		index = "scan"
	}

	return slog.GroupValue(
		slog.String("snapshot", s.Snapshot),
		slog.String("via", index),
		slog.Int("candidates", s.Candidates),
		slog.Int("matched", s.Matched),
		slog.Int("emitted", s.Emitted),
		slog.Int("property_reads", s.PropertyReads),
		slog.Int("deserialized", s.Deserialized),
		slog.Int("link_traversals", s.LinkTraversals),
		slog.Bool("index_distinct", s.IndexDistinct),
		slog.Duration("took", s.Duration),
	)
}
