// Package main provides the carp command line tool. It validates archival
// projects against a MAP and builds export packages without the server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/carpenters/internal/admin"
	"github.com/JonMunkholm/carpenters/internal/config"
	"github.com/JonMunkholm/carpenters/internal/core"
	_ "github.com/JonMunkholm/carpenters/internal/core/exports" // Register all exporters
	"github.com/JonMunkholm/carpenters/internal/logging"
)

const (
	Version = "0.1.0"
	appName = "carp"
)

func main() {
	// Environment values from .env fill in flag defaults; real env wins.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorText(err))
		os.Exit(1)
	}
}

// errorText prefers the coded user message when err has one.
func errorText(err error) string {
	if core.IsUserFacing(err) {
		return core.FormatUserError(err) + "\n  " + err.Error()
	}
	return err.Error()
}

// options are the flags shared by every command.
type options struct {
	project   string
	mapSource string
	vocab     string
	logLevel  string
	logFormat string
}

func rootCmd() *cobra.Command {
	cfg, err := config.Load()
	if err != nil {
		// Flags still work without a valid environment.
		cfg = &config.Config{}
	}

	opts := &options{}
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Validate and export archival projects",
		Long: `carp validates the objects of a .carp project against a MAP and its
controlled vocabulary, and builds export packages (Armand, Avalon,
preservation SIPs, modified masters, metadata and shotlist CSVs).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.project, "project", "p", cfg.Project.Path, "Project document (.carp)")
	flags.StringVar(&opts.mapSource, "map", cfg.Project.MapSource(), "MAP file or URL")
	flags.StringVar(&opts.vocab, "vocab", cfg.Project.VocabularySource(), "Vocabulary file or URL (Turtle)")
	flags.StringVar(&opts.logLevel, "log-level", orDefault(cfg.Logging.Level, "info"), "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", orDefault(cfg.Logging.Format, "text"), "Log format (text, json)")

	cmd.AddCommand(
		validateCmd(opts, cfg),
		exportCmd(opts, cfg),
		exportersCmd(),
		historyCmd(cfg),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

// newService opens the project and loads the MAP and vocabulary named by
// opts.
func newService(ctx context.Context, opts *options, cfg *config.Config, username, lineEnding string) (*core.Service, error) {
	if opts.project == "" {
		return nil, fmt.Errorf("%w: use --project", core.ErrNoProject)
	}

	le := ""
	if lineEnding != "" {
		var err error
		if le, err = core.ParseLineEnding(lineEnding); err != nil {
			return nil, err
		}
	}

	svcCfg := core.ServiceConfig{
		Username:      username,
		LineEnding:    le,
		ExportTimeout: cfg.Export.Timeout,
	}
	if cfg.Project.FetchTimeout > 0 {
		svcCfg.HTTPClient = &http.Client{Timeout: cfg.Project.FetchTimeout}
	}
	svc := core.NewService(core.NewStore(), core.NewMemoryHistory(0), svcCfg)

	if _, err := svc.Store().Open(opts.project); err != nil {
		return nil, err
	}
	if opts.mapSource != "" {
		if err := svc.LoadSchema(ctx, opts.mapSource); err != nil {
			return nil, err
		}
	}
	if opts.vocab != "" {
		if err := svc.LoadVocabulary(ctx, opts.vocab); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

func validateCmd(opts *options, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate every object against the MAP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd.Context(), opts, cfg, "", "")
			if err != nil {
				return err
			}
			if m, _ := svc.Schema(); m == nil {
				slog.Warn("no MAP given, every object is valid")
			}

			results, err := svc.ValidateProject()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			invalid := 0
			for _, res := range results {
				if res.Valid {
					continue
				}
				invalid++
				fmt.Fprintf(out, "%s  %s\n", res.UUID, res.Title)
				for _, verr := range res.Errors {
					fmt.Fprintf(out, "    %s\n", verr.Error())
				}
			}
			fmt.Fprintf(out, "%d objects, %d invalid\n", len(results), invalid)
			if invalid > 0 {
				return fmt.Errorf("%d invalid objects", invalid)
			}
			return nil
		},
	}
}

func exportCmd(opts *options, cfg *config.Config) *cobra.Command {
	var (
		dest       string
		username   string
		lineEnding string
	)

	cmd := &cobra.Command{
		Use:   "export KIND",
		Short: "Build an export package",
		Long: `Build an export package. KIND is one of the keys listed by
"carp exporters". The destination is a CSV file for the metadata and
shotlist exporters and a directory for the others.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(cmd.Context(), opts, cfg, username, lineEnding)
			if err != nil {
				return err
			}

			kind := args[0]
			logger := slog.With("exporter", kind)
			last := ""
			progress := func(p core.Progress) {
				if p.Description != last {
					logger.Info(p.Description, "progress", fmt.Sprintf("%.0f%%", p.Fraction()*100))
					last = p.Description
				}
				logger.Debug("step", "item", p.Subdescription, "value", p.Fraction())
			}

			summary, err := svc.Export(cmd.Context(), kind, dest, core.ExportOptions{Progress: progress})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s to %s\n", summary.Message(), summary.Destination)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Destination file or directory")
	cmd.Flags().StringVar(&username, "username", cfg.Export.Username, "User name written to the Avalon manifest")
	cmd.Flags().StringVar(&lineEnding, "line-ending", orDefault(cfg.Export.LineEnding, "platform"), "CSV line ending (platform, lf, crlf)")
	_ = cmd.MarkFlagRequired("dest")
	return cmd
}

func exportersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exporters",
		Short: "List the available exporters",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tNAME\tNEEDS MAP\tDESCRIPTION")
			for _, def := range core.AllExporters() {
				needsMap := "no"
				if def.NeedsMap {
					needsMap = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.Key, def.Label, needsMap, def.Description)
			}
			tw.Flush()
		},
	}
}

// openHistory connects to the configured history database.
func openHistory(ctx context.Context, cfg *config.Config) (*admin.History, func(), error) {
	pool, err := admin.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	store, err := core.NewPgHistory(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return &admin.History{Store: store}, pool.Close, nil
}

func historyCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and prune the export history database",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent export runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, closeFn, err := openHistory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := h.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tEXPORTER\tSTATUS\tOBJECTS\tFILES\tDESTINATION")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					e.StartedAt.Format(time.RFC3339), e.Exporter, e.Status, e.Objects, e.Files, e.Destination)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to show (0 for all)")

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete export runs older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, closeFn, err := openHistory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := h.PruneOlderThan(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries\n", n)
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", cfg.History.MaxAge(), "Delete entries older than this age")

	var confirm bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Delete every export run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("history reset deletes every entry; pass --yes to confirm")
			}
			h, closeFn, err := openHistory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := h.ResetAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries\n", n)
			return nil
		},
	}
	reset.Flags().BoolVar(&confirm, "yes", false, "Confirm deleting the whole history")

	cmd.AddCommand(list, prune, reset)
	return cmd
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
