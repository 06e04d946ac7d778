package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type contextKey struct{}

// Setup installs the default logger. Logs go to stderr so command output on
// stdout stays clean.
func Setup(level string, format string) {
	slog.SetDefault(New(os.Stderr, level, format))
}

// New builds a logger writing to w.
func New(w io.Writer, level string, format string) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, contextKey{}, runID)
}

func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if runID, ok := ctx.Value(contextKey{}).(string); ok {
		logger = logger.With("run_id", runID)
	}
	return logger
}

// WithComponent returns the context logger tagged with a pipeline component.
func WithComponent(ctx context.Context, component string) *slog.Logger {
	return FromContext(ctx).With("component", component)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
