package coltab

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with table-specific context.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithTable adds the table id to the logger.
func (l *Logger) WithTable(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("table", id),
	}
}

// WithColumn adds a column field to the logger.
func (l *Logger) WithColumn(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("column", name),
	}
}

// LogFinalize logs a finalize pass.
func (l *Logger) LogFinalize(ctx context.Context, rows, columns int, duration time.Duration) {
	l.InfoContext(ctx, "table finalized",
		"rows", rows,
		"columns", columns,
		"duration", duration,
	)
}

// LogDerivation logs the outcome of one derived column. Per-cell errors are
// reported once per column.
func (l *Logger) LogDerivation(ctx context.Context, column string, updated, failed int64, err error) {
	switch {
	case err != nil:
		l.WarnContext(ctx, "derivation completed with failures",
			"column", column,
			"updated", updated,
			"failed", failed,
			"error", err,
		)
	default:
		l.DebugContext(ctx, "derivation completed",
			"column", column,
			"updated", updated,
		)
	}
}

// LogDerivationAborted logs a generation stopped by a fatal error.
func (l *Logger) LogDerivationAborted(ctx context.Context, err error) {
	l.ErrorContext(ctx, "derivation aborted",
		"error", err,
	)
}

// LogCompaction logs a row compaction.
func (l *Logger) LogCompaction(ctx context.Context, removed, remaining int) {
	l.InfoContext(ctx, "rows compacted",
		"removed", removed,
		"remaining", remaining,
	)
}

// LogSort logs a sort operation.
func (l *Logger) LogSort(ctx context.Context, column string, strategy string, descending bool, duration time.Duration) {
	l.DebugContext(ctx, "rows sorted",
		"column", column,
		"strategy", strategy,
		"descending", descending,
		"duration", duration,
	)
}

// LogSimilarity logs a similarity run.
func (l *Logger) LogSimilarity(ctx context.Context, column string, scored, failed int, cached bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "similarity failed",
			"column", column,
			"error", err,
		)
		return
	}
	if failed > 0 {
		l.WarnContext(ctx, "similarity completed with failures",
			"column", column,
			"scored", scored,
			"failed", failed,
			"cached", cached,
		)
		return
	}
	l.DebugContext(ctx, "similarity completed",
		"column", column,
		"scored", scored,
		"cached", cached,
	)
}
