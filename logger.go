package vexec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hupe1980/vexec/config"
	"github.com/hupe1980/vexec/index"
)

// Logger wraps slog.Logger with segment-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// NewLoggerFromConfig builds a Logger writing to w with the configured level
// and format.
func NewLoggerFromConfig(c config.LoggingConfig, w io.Writer) (*Logger, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Format) {
	case "", "text":
		return NewLogger(slog.NewTextHandler(w, opts)), nil
	case "json":
		return NewLogger(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("vexec: unknown log format %q", c.Format)
	}
}

// ParseLevel parses debug, info, warn or error. An empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("vexec: unknown log level %q", s)
	}
	return level, nil
}

// WithLocation adds a segment location field to the logger.
func (l *Logger) WithLocation(location string) *Logger {
	return &Logger{
		Logger: l.Logger.With("location", location),
	}
}

// WithEngineType adds an engine type field to the logger.
func (l *Logger) WithEngineType(t index.EngineType) *Logger {
	return &Logger{
		Logger: l.Logger.With("engine_type", t.String()),
	}
}

// LogLoad logs a segment load.
func (l *Logger) LogLoad(ctx context.Context, location string, count int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"location", location,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "segment loaded",
			"location", location,
			"count", count,
			"duration", d,
		)
	}
}

// LogMerge logs a merge of source into target.
func (l *Logger) LogMerge(ctx context.Context, target, source string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "merge failed",
			"target", target,
			"source", source,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "merge completed",
			"target", target,
			"source", source,
			"count", count,
		)
	}
}

// LogBuild logs a bulk build from source into target.
func (l *Logger) LogBuild(ctx context.Context, source, target string, t index.EngineType, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"source", source,
			"target", target,
			"engine_type", t.String(),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"source", source,
			"target", target,
			"engine_type", t.String(),
			"duration", d,
		)
	}
}
