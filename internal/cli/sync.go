package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsfolk/manifest-dns-sync/internal/config"
	"github.com/opsfolk/manifest-dns-sync/internal/history"
	"github.com/opsfolk/manifest-dns-sync/internal/logger"
	"github.com/opsfolk/manifest-dns-sync/internal/manifest"
	"github.com/opsfolk/manifest-dns-sync/internal/metrics"
	"github.com/opsfolk/manifest-dns-sync/internal/provider/cloudflare"
	"github.com/opsfolk/manifest-dns-sync/internal/reconcile"
)

var (
	syncDryRun      bool
	syncConcurrency int
)

var syncCmd = &cobra.Command{
	Use:   "sync <credential> <dir>=<zoneId> [<dir>=<zoneId> ...]",
	Short: "Reconcile manifest directories against their zones",
	Long: "Run one reconciliation pass for each <dir>=<zoneId> pair.\n" +
		"Exits 0 if every pair synced cleanly, 1 if any pair failed.",
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runSync(args, false)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan <credential> <dir>=<zoneId> [<dir>=<zoneId> ...]",
	Short: "Show pending operations without applying them",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runSync(args, true)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Log operations without applying them")
	syncCmd.Flags().IntVar(&syncConcurrency, "concurrency", 0, "Zones reconciled in parallel (default from config)")

	rootCmd.AddCommand(planCmd)
	planCmd.Flags().IntVar(&syncConcurrency, "concurrency", 0, "Zones reconciled in parallel (default from config)")
}

func runSync(args []string, planOnly bool) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The CLI credential wins over env and config file.
	if args[0] != "" {
		cfg.Token = args[0]
	}
	pairs, err := config.ParseZonePairs(args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if syncDryRun || planOnly {
		cfg.Reconcile.DryRun = true
	}
	if syncConcurrency > 0 {
		cfg.Reconcile.Concurrency = syncConcurrency
	}

	logger.Configure(cfg.Log.Level, cfg.Log.Env)

	m := metrics.New(true)
	orch, err := buildOrchestrator(cfg, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	reports, failed := orch.Run(context.Background(), pairs)
	printReports(reports, cfg.Reconcile.DryRun)

	if !cfg.Reconcile.DryRun {
		saveHistory(cfg, m, reports)
	}

	if failed {
		os.Exit(1)
	}
}

func buildOrchestrator(cfg *config.Config, m *metrics.Metrics) (*reconcile.Orchestrator, error) {
	cf, err := cloudflare.New(cfg.Token, cfg.Provider.PageSize, m)
	if err != nil {
		return nil, err
	}

	loader := manifest.NewLoader(cfg.Reconcile.SkipNames)
	executor := reconcile.NewExecutor(cf, m, cfg.Reconcile.DryRun)
	engine := reconcile.NewEngine(loader, cf, executor, m, cfg.Reconcile)
	return reconcile.NewOrchestrator(engine, m, cfg.Reconcile.Concurrency), nil
}

func printReports(reports []reconcile.Report, dryRun bool) {
	for _, r := range reports {
		status := "ok"
		if r.Failed {
			status = "failed"
		} else if dryRun {
			status = "planned"
		}
		fmt.Printf("%s (%s): created=%d updated=%d deleted=%d [%s]\n",
			r.ZoneLabel, r.ZoneID, r.Created, r.Updated, r.Deleted, status)
	}
}

func saveHistory(cfg *config.Config, m *metrics.Metrics, reports []reconcile.Report) {
	if cfg.StatePath == "" {
		return
	}
	store, err := history.Open(cfg.StatePath, m)
	if err != nil {
		slog.Warn("Failed to open history store", "path", cfg.StatePath, "error", err)
		return
	}
	defer store.Close()

	entries := make([]history.Entry, 0, len(reports))
	now := time.Now().Unix()
	for _, r := range reports {
		entries = append(entries, history.Entry{Report: r, SyncedAt: now})
	}
	if err := store.Save(context.Background(), entries); err != nil {
		slog.Warn("Failed to save sync history", "error", err)
	}
}
