package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opsfolk/manifest-dns-sync/internal/config"
	"github.com/opsfolk/manifest-dns-sync/internal/metrics"
)

// Orchestrator runs every (directory, zone) pair through the engine. Zones
// share no mutable state, so pairs run under a bounded worker pool; the
// delete, update, create ordering stays strictly sequential inside a zone.
type Orchestrator struct {
	engine      *Engine
	metrics     *metrics.Metrics
	concurrency int
}

func NewOrchestrator(engine *Engine, m *metrics.Metrics, concurrency int) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		engine:      engine,
		metrics:     m,
		concurrency: concurrency,
	}
}

// Run reconciles all pairs and reports whether any of them failed. One
// zone's failure never prevents the others from being attempted.
func (o *Orchestrator) Run(ctx context.Context, pairs []config.ZonePair) ([]Report, bool) {
	start := time.Now()
	reports := make([]Report, len(pairs))

	sem := make(chan struct{}, o.concurrency)
	wg := &sync.WaitGroup{}
	for i, pair := range pairs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, pair config.ZonePair) {
			defer wg.Done()
			defer func() { <-sem }()
			reports[i] = o.engine.SyncZone(ctx, pair)
		}(i, pair)
	}
	wg.Wait()

	failed := false
	for _, report := range reports {
		if report.Failed {
			failed = true
		}
	}

	o.metrics.SetSyncDuration(time.Since(start))
	o.metrics.IncSyncRun(!failed)
	slog.Info("Reconciliation run complete", "zones", len(pairs), "failed", failed, "duration", time.Since(start))
	return reports, failed
}
