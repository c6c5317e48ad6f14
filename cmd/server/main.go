package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/carpenters/internal/admin"
	"github.com/JonMunkholm/carpenters/internal/config"
	"github.com/JonMunkholm/carpenters/internal/core"
	_ "github.com/JonMunkholm/carpenters/internal/core/exports" // Register all exporters
	"github.com/JonMunkholm/carpenters/internal/logging"
	"github.com/JonMunkholm/carpenters/internal/watch"
	"github.com/JonMunkholm/carpenters/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	// Export history: Postgres when configured, memory otherwise
	var history core.HistoryStore
	if cfg.Database.URL != "" {
		pool, err := admin.Connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg, err := core.NewPgHistory(ctx, pool)
		if err != nil {
			slog.Error("failed to prepare export history", "error", err)
			os.Exit(1)
		}
		history = pg
	} else {
		slog.Info("no database configured, keeping export history in memory",
			"max_entries", cfg.History.MemorySize,
		)
		history = core.NewMemoryHistory(cfg.History.MemorySize)
	}

	lineEnding, err := core.ParseLineEnding(cfg.Export.LineEnding)
	if err != nil {
		slog.Error("invalid line ending", "error", err)
		os.Exit(1)
	}

	service := core.NewService(core.NewStore(), history, core.ServiceConfig{
		Username:      cfg.Export.Username,
		LineEnding:    lineEnding,
		ExportTimeout: cfg.Export.Timeout,
		HTTPClient:    &http.Client{Timeout: cfg.Project.FetchTimeout},
	})

	if err := loadProject(ctx, service, cfg.Project); err != nil {
		slog.Error("failed to load project", "error", err)
		os.Exit(1)
	}

	slog.Info("exporters registered", "count", core.ExporterCount())
	for _, def := range core.AllExporters() {
		slog.Debug("exporter", "key", def.Key, "needs_map", def.NeedsMap)
	}

	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(ctx)

	go service.StartHistoryPruner(jobCtx, core.RetentionConfig{
		MaxAge:        cfg.History.MaxAge(),
		CheckInterval: cfg.History.CheckInterval,
	})

	if cfg.Watch.Enabled {
		go watch.Follow(jobCtx, service.Store(), cfg.Watch.Debounce, slog.Default())
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Cancel running exports and wait for the guard to drain
		if status := service.Guard().Status(); status.Busy {
			slog.Info("stopping running operation", "operation", status.Operation)
		}
		if err := service.Shutdown(shutdownCtx); err != nil {
			slog.Warn("operation did not stop in time", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// loadProject loads the configured MAP, vocabulary and project document.
// Each is optional.
func loadProject(ctx context.Context, service *core.Service, cfg config.ProjectConfig) error {
	if src := cfg.MapSource(); src != "" {
		if err := service.LoadSchema(ctx, src); err != nil {
			return err
		}
		m, _ := service.Schema()
		slog.Info("MAP loaded", "source", src, "fields", len(m))
	}
	if src := cfg.VocabularySource(); src != "" {
		if err := service.LoadVocabulary(ctx, src); err != nil {
			return err
		}
		slog.Info("vocabulary loaded", "source", src)
	}
	if cfg.Path != "" {
		snap, err := service.Store().Open(cfg.Path)
		if err != nil {
			return err
		}
		slog.Info("project opened", "path", snap.Path, "objects", len(snap.Project.Objects))
	}
	return nil
}
