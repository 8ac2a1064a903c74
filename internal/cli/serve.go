package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsfolk/manifest-dns-sync/internal/config"
	"github.com/opsfolk/manifest-dns-sync/internal/history"
	"github.com/opsfolk/manifest-dns-sync/internal/logger"
	"github.com/opsfolk/manifest-dns-sync/internal/metrics"
	"github.com/opsfolk/manifest-dns-sync/internal/reconcile"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run periodic reconciliation with a metrics endpoint",
	Long: "Reconcile the zone pairs from the config file on an interval,\n" +
		"exposing prometheus metrics until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if len(cfg.Zones) == 0 {
		fmt.Fprintln(os.Stderr, "Error: serve needs zone pairs in the config file")
		os.Exit(1)
	}

	logger.Configure(cfg.Log.Level, cfg.Log.Env)

	m := metrics.New(true)

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: mux,
	}

	go func() {
		slog.Info("Starting metrics server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orch, err := buildOrchestrator(cfg, m)
	if err != nil {
		slog.Error("Failed to initialize DNS provider", "error", err)
		os.Exit(1)
	}

	var store history.Store
	if cfg.StatePath != "" && !cfg.Reconcile.DryRun {
		store, err = history.Open(cfg.StatePath, m)
		if err != nil {
			slog.Error("Failed to open history store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	slog.Info("Starting manifest-dns-sync service", "interval", cfg.SyncInterval, "zones", len(cfg.Zones))

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go runSyncLoop(ctx, wg, orch, store, cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("Shutdown signal received")
	cancel()

	serverShutdownCtx, cancelServer := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelServer()
	if err := server.Shutdown(serverShutdownCtx); err != nil {
		slog.Error("Metrics server shutdown error", "error", err)
	}

	wg.Wait()
	slog.Info("Service shutdown complete")
}

func runSyncLoop(ctx context.Context, wg *sync.WaitGroup, orch *reconcile.Orchestrator, store history.Store, cfg *config.Config) {
	defer wg.Done()
	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	for {
		slog.Info("Starting sync operation")
		reports, failed := orch.Run(ctx, cfg.Zones)
		if failed {
			slog.Error("Sync operation finished with failures")
		}
		if store != nil {
			entries := make([]history.Entry, 0, len(reports))
			now := time.Now().Unix()
			for _, r := range reports {
				entries = append(entries, history.Entry{Report: r, SyncedAt: now})
			}
			if err := store.Save(ctx, entries); err != nil {
				slog.Warn("Failed to save sync history", "error", err)
			}
		}

		select {
		case <-ticker.C:
			continue
		case <-ctx.Done():
			slog.Info("Stopping sync loop")
			return
		}
	}
}
