package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/carpenters/internal/config"
	"github.com/JonMunkholm/carpenters/internal/core"
)

func seededHistory(t *testing.T, now time.Time) *History {
	t.Helper()
	store := core.NewMemoryHistory(0)
	for i, age := range []time.Duration{time.Hour, 48 * time.Hour, 100 * 24 * time.Hour} {
		err := store.Record(context.Background(), core.HistoryEntry{
			ID:        string(rune('a' + i)),
			Exporter:  "metadata",
			Status:    core.StatusSucceeded,
			StartedAt: now.Add(-age),
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	return &History{Store: store, Now: func() time.Time { return now }}
}

func TestPruneOlderThan(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h := seededHistory(t, now)

	n, err := h.PruneOlderThan(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("PruneOlderThan() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	left, err := h.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(left) != 1 || left[0].ID != "a" {
		t.Errorf("List() = %+v, want only the recent entry", left)
	}
}

func TestPruneOlderThan_RejectsNonPositiveAge(t *testing.T) {
	h := seededHistory(t, time.Now())
	if _, err := h.PruneOlderThan(context.Background(), 0); err == nil {
		t.Error("PruneOlderThan(0) should fail")
	}
}

func TestResetAll(t *testing.T) {
	h := seededHistory(t, time.Now())

	n, err := h.ResetAll(context.Background())
	if err != nil {
		t.Fatalf("ResetAll() error = %v", err)
	}
	if n != 3 {
		t.Errorf("deleted = %d, want 3", n)
	}
}

func TestNoStore(t *testing.T) {
	h := &History{}
	if _, err := h.ResetAll(context.Background()); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("ResetAll() error = %v, want ErrNoDatabase", err)
	}
	if _, err := h.List(context.Background(), 10); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("List() error = %v, want ErrNoDatabase", err)
	}
	if got := core.MapError(ErrNoDatabase).Code; got != "DB003" {
		t.Errorf("MapError(ErrNoDatabase).Code = %q, want DB003", got)
	}
}

func TestConnect_NoURL(t *testing.T) {
	if _, err := Connect(context.Background(), config.DatabaseConfig{}); !errors.Is(err, ErrNoDatabase) {
		t.Errorf("Connect() error = %v, want ErrNoDatabase", err)
	}
}
