package core

// scheduler.go prunes old export history in the background.
//
// The pruner is long-running and context-aware for graceful shutdown. It
// logs failures but never stops the application.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig holds configuration for the history pruner.
type RetentionConfig struct {
	MaxAge        time.Duration // entries older than this are deleted (default: 90 days)
	CheckInterval time.Duration // how often to run (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.MaxAge <= 0 {
		c.MaxAge = 90 * 24 * time.Hour
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartHistoryPruner runs until ctx is cancelled. It prunes immediately on
// start, then every CheckInterval.
func (s *Service) StartHistoryPruner(ctx context.Context, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("history pruner started",
		"max_age", cfg.MaxAge.String(),
		"check_interval", cfg.CheckInterval.String(),
	)

	s.pruneHistory(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history pruner stopped")
			return
		case <-ticker.C:
			s.pruneHistory(ctx, cfg)
		}
	}
}

func (s *Service) pruneHistory(ctx context.Context, cfg RetentionConfig) {
	start := time.Now()
	pruned, err := s.history.Prune(ctx, start.Add(-cfg.MaxAge))
	if err != nil {
		slog.Error("history prune failed", "error", err)
		return
	}
	slog.Info("pruned export history",
		"entries_pruned", pruned,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
