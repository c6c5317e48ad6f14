package core

import (
	"context"
	"testing"
	"time"
)

func TestMemoryHistory_ListNewestFirst(t *testing.T) {
	h := NewMemoryHistory(0)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		h.Record(ctx, HistoryEntry{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)})
	}

	got, err := h.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("List(2) = %+v, want c, b", got)
	}

	all, _ := h.List(ctx, 0)
	if len(all) != 3 {
		t.Errorf("List(0) = %d entries, want 3", len(all))
	}
}

func TestMemoryHistory_Bounded(t *testing.T) {
	h := NewMemoryHistory(2)
	ctx := context.Background()
	now := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		h.Record(ctx, HistoryEntry{ID: id, StartedAt: now.Add(time.Duration(i) * time.Second)})
	}

	got, _ := h.List(ctx, 0)
	if len(got) != 2 || got[1].ID != "b" {
		t.Errorf("List() = %+v, want the two newest entries", got)
	}
}

func TestMemoryHistory_Prune(t *testing.T) {
	h := NewMemoryHistory(0)
	ctx := context.Background()
	now := time.Now()

	h.Record(ctx, HistoryEntry{ID: "old", StartedAt: now.Add(-100 * 24 * time.Hour)})
	h.Record(ctx, HistoryEntry{ID: "new", StartedAt: now})

	pruned, err := h.Prune(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 1 {
		t.Errorf("Prune() = %d, want 1", pruned)
	}
	got, _ := h.List(ctx, 0)
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("remaining = %+v", got)
	}
}

func TestRetentionConfig_Defaults(t *testing.T) {
	cfg := RetentionConfig{}.withDefaults()
	if cfg.MaxAge != 90*24*time.Hour {
		t.Errorf("MaxAge = %v, want 90 days", cfg.MaxAge)
	}
	if cfg.CheckInterval != 24*time.Hour {
		t.Errorf("CheckInterval = %v, want 24h", cfg.CheckInterval)
	}
}

func TestPruneHistory(t *testing.T) {
	h := NewMemoryHistory(0)
	svc := NewService(nil, h, ServiceConfig{})
	ctx := context.Background()

	h.Record(ctx, HistoryEntry{ID: "stale", StartedAt: time.Now().Add(-2 * time.Hour)})
	svc.pruneHistory(ctx, RetentionConfig{MaxAge: time.Hour, CheckInterval: time.Hour})

	if got, _ := h.List(ctx, 0); len(got) != 0 {
		t.Errorf("entries after prune = %d, want 0", len(got))
	}
}
