package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

type Config struct {
	Level  string // debug, info, warn, error
	Format string // text, json

	Output io.Writer
}

// ParseLevel falls back to info for anything it does not know.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func NewHandler(cfg Config) slog.Handler {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

// Init installs the default slog logger once. Later calls are no-ops.
func Init(cfg Config) {
	once.Do(func() {
		logger = slog.New(NewHandler(cfg))
		slog.SetDefault(logger)
	})
}

func Get() *slog.Logger {
	if logger == nil {
		Init(Config{})
	}
	return logger
}
