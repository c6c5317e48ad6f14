// Package admin provides maintenance operations for the export history
// database.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/carpenters/internal/config"
	"github.com/JonMunkholm/carpenters/internal/core"
)

// ResetTimeout is the maximum duration for history maintenance operations.
const ResetTimeout = 30 * time.Second

// pingTimeout bounds the connectivity check in Connect.
const pingTimeout = 10 * time.Second

// ErrNoDatabase is returned when maintenance is requested without a
// configured database. In-memory history lives only as long as the server.
var ErrNoDatabase = errors.New("no history database configured")

// Connect opens and pings the history database pool.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, ErrNoDatabase
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// History runs maintenance against a history store.
type History struct {
	Store core.HistoryStore
	Now   func() time.Time
}

func (h *History) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// List returns the most recent entries first.
func (h *History) List(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	if h.Store == nil {
		return nil, fmt.Errorf("history list: %w", ErrNoDatabase)
	}
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()
	return h.Store.List(ctx, limit)
}

// PruneOlderThan deletes entries that started more than age ago.
func (h *History) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		return 0, fmt.Errorf("history prune: age must be positive, got %s", age)
	}
	return h.prune(ctx, "history prune", h.now().Add(-age))
}

// ResetAll deletes every entry.
// This is a destructive operation - use with caution.
func (h *History) ResetAll(ctx context.Context) (int64, error) {
	// Entries never start in the future, so any later cutoff clears all.
	return h.prune(ctx, "history reset", h.now().AddDate(1, 0, 0))
}

func (h *History) prune(ctx context.Context, op string, cutoff time.Time) (int64, error) {
	if h.Store == nil {
		return 0, fmt.Errorf("%s: %w", op, ErrNoDatabase)
	}

	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	n, err := h.Store.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	slog.Info(op, "deleted", n, "cutoff", cutoff)
	return n, nil
}
