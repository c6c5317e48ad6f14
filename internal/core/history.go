package core

// history.go records one entry per export run.
//
// PgHistory persists entries in Postgres when a database is configured.
// MemoryHistory keeps a bounded in-process list otherwise. Both are pruned
// by the scheduler in scheduler.go.

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExportStatus is the terminal state of an export run.
type ExportStatus string

const (
	StatusSucceeded ExportStatus = "succeeded"
	StatusFailed    ExportStatus = "failed"
)

// HistoryEntry is a single export run.
type HistoryEntry struct {
	ID          string        `json:"id"`
	Exporter    string        `json:"exporter"`
	Label       string        `json:"label"`
	Status      ExportStatus  `json:"status"`
	Destination string        `json:"destination"`
	ProjectPath string        `json:"projectPath"`
	Objects     int           `json:"objects"`
	Files       int           `json:"files"`
	Error       string        `json:"error,omitempty"`
	Requester   string        `json:"requester,omitempty"`
	UserAgent   string        `json:"userAgent,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
}

// HistoryStore persists export history.
type HistoryStore interface {
	Record(ctx context.Context, e HistoryEntry) error
	// List returns the most recent entries first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]HistoryEntry, error)
	// Prune deletes entries that started before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// DefaultMemoryHistorySize bounds MemoryHistory.
const DefaultMemoryHistorySize = 500

// MemoryHistory is an in-process HistoryStore.
type MemoryHistory struct {
	mu      sync.RWMutex
	entries []HistoryEntry
	max     int
}

// NewMemoryHistory keeps at most max entries, dropping the oldest.
func NewMemoryHistory(max int) *MemoryHistory {
	if max <= 0 {
		max = DefaultMemoryHistorySize
	}
	return &MemoryHistory{max: max}
}

func (h *MemoryHistory) Record(_ context.Context, e HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, e)
	if over := len(h.entries) - h.max; over > 0 {
		h.entries = append([]HistoryEntry(nil), h.entries[over:]...)
	}
	return nil
}

func (h *MemoryHistory) List(_ context.Context, limit int) ([]HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *MemoryHistory) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.entries[:0]
	var pruned int64
	for _, e := range h.entries {
		if e.StartedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, e)
	}
	h.entries = kept
	return pruned, nil
}

const historySchema = `
CREATE TABLE IF NOT EXISTS export_history (
    id           TEXT PRIMARY KEY,
    exporter     TEXT NOT NULL,
    label        TEXT NOT NULL,
    status       TEXT NOT NULL,
    destination  TEXT NOT NULL,
    project_path TEXT NOT NULL,
    objects      INTEGER NOT NULL DEFAULT 0,
    files        INTEGER NOT NULL DEFAULT 0,
    error        TEXT NOT NULL DEFAULT '',
    requester    TEXT NOT NULL DEFAULT '',
    user_agent   TEXT NOT NULL DEFAULT '',
    started_at   TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS export_history_started_at_idx ON export_history (started_at DESC);
`

// PgHistory stores export history in Postgres.
type PgHistory struct {
	pool *pgxpool.Pool
}

// NewPgHistory creates the export_history table if needed.
func NewPgHistory(ctx context.Context, pool *pgxpool.Pool) (*PgHistory, error) {
	if _, err := pool.Exec(ctx, historySchema); err != nil {
		return nil, fmt.Errorf("create export_history: %w", err)
	}
	return &PgHistory{pool: pool}, nil
}

func (h *PgHistory) Record(ctx context.Context, e HistoryEntry) error {
	_, err := h.pool.Exec(ctx, `
		INSERT INTO export_history
		    (id, exporter, label, status, destination, project_path, objects, files,
		     error, requester, user_agent, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.Exporter, e.Label, string(e.Status), e.Destination, e.ProjectPath,
		e.Objects, e.Files, e.Error, e.Requester, e.UserAgent, e.StartedAt,
		e.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record export history: %w", err)
	}
	return nil
}

func (h *PgHistory) List(ctx context.Context, limit int) ([]HistoryEntry, error) {
	query := `
		SELECT id, exporter, label, status, destination, project_path, objects, files,
		       error, requester, user_agent, started_at, duration_ms
		FROM export_history
		ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := h.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list export history: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (HistoryEntry, error) {
		var (
			e          HistoryEntry
			status     string
			durationMS int64
		)
		err := row.Scan(&e.ID, &e.Exporter, &e.Label, &status, &e.Destination, &e.ProjectPath,
			&e.Objects, &e.Files, &e.Error, &e.Requester, &e.UserAgent, &e.StartedAt, &durationMS)
		e.Status = ExportStatus(status)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("list export history: %w", err)
	}
	return entries, nil
}

func (h *PgHistory) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := h.pool.Exec(ctx, `DELETE FROM export_history WHERE started_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune export history: %w", err)
	}
	return tag.RowsAffected(), nil
}
