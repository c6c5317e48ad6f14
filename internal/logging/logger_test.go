package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromContext_ExportID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(New(&buf, "info", "json"))
	defer slog.SetDefault(prev)

	ctx := WithExportID(context.Background(), "exp-123")
	FromContext(ctx).Info("hello")

	if !strings.Contains(buf.String(), `"export_id":"exp-123"`) {
		t.Errorf("log line missing export_id: %s", buf.String())
	}
	if got := ExportIDFromContext(context.Background()); got != "" {
		t.Errorf("ExportIDFromContext(empty) = %q, want empty", got)
	}
}
