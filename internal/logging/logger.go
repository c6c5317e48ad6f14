// Package logging provides structured logging configuration using log/slog.
//
// Loggers taken from a request context carry chi's request id, and loggers
// taken from an export context carry the export id, so every line written
// while an export runs can be correlated with the HTTP request that
// started it.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const ctxKeyExportID contextKey = "export_id"

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w. The CLI uses it to log to stderr while
// CSV output goes to stdout.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
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

// WithExportID tags ctx with an export run id.
func WithExportID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyExportID, id)
}

// ExportIDFromContext returns the export run id, or "".
func ExportIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyExportID).(string); ok {
		return v
	}
	return ""
}

// FromContext returns a logger enriched with request_id and export_id when
// the context carries them.
//
// Usage:
//
//	func handleExport(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context())
//	    logger.Info("starting export", "exporter", kind)
//	}
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if exportID := ExportIDFromContext(ctx); exportID != "" {
		logger = logger.With("export_id", exportID)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// Usage:
//
//	exportLogger := logging.WithFields(ctx,
//	    "exporter", kind,
//	    "destination", dest,
//	)
//	exportLogger.Info("export started")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
