package reconcile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/opsfolk/manifest-dns-sync/internal/config"
	"github.com/opsfolk/manifest-dns-sync/internal/manifest"
	"github.com/opsfolk/manifest-dns-sync/internal/metrics"
	"github.com/opsfolk/manifest-dns-sync/internal/provider"
)

// Engine reconciles a single zone: load manifests, fetch live state, diff,
// apply. Desired and live state are recomputed from scratch on every run;
// nothing is cached between runs.
type Engine struct {
	loader   *manifest.Loader
	provider provider.Provider
	executor *Executor
	metrics  *metrics.Metrics
	policy   config.DuplicatePolicy
	skip     []string
}

func NewEngine(loader *manifest.Loader, p provider.Provider, executor *Executor, m *metrics.Metrics, cfg config.Reconcile) *Engine {
	return &Engine{
		loader:   loader,
		provider: p,
		executor: executor,
		metrics:  m,
		policy:   cfg.DuplicatePolicy,
		skip:     cfg.SkipNames,
	}
}

// SyncZone runs one full reconciliation pass for a (directory, zone) pair.
// Any failure is captured in the report; it never panics or aborts other
// zones.
func (e *Engine) SyncZone(ctx context.Context, pair config.ZonePair) Report {
	report := Report{ZoneLabel: pair.Label(), ZoneID: pair.ZoneID}

	desired, loadErrs, err := e.loader.LoadDir(pair.Dir)
	if err != nil {
		slog.Error("Failed to load manifests", "zone", report.ZoneLabel, "dir", pair.Dir, "error", err)
		report.Failed = true
		return report
	}
	for _, loadErr := range loadErrs {
		slog.Warn("Skipping malformed manifest", "zone", report.ZoneLabel, "file", loadErr.Path, "error", loadErr.Err)
		e.metrics.IncManifestError(report.ZoneLabel)
	}

	// An empty desired set is deliberate, not a request to delete the zone.
	if len(desired) == 0 {
		slog.Info("No usable manifests, skipping zone", "zone", report.ZoneLabel, "dir", pair.Dir)
		return report
	}

	live, err := e.provider.Records(ctx, pair.ZoneID)
	if err != nil {
		slog.Error("Failed to fetch live records", "zone", report.ZoneLabel, "error", err)
		report.Failed = true
		return report
	}
	live = e.filterSkipped(live)

	diff, err := ComputeDiff(desired, live, e.policy)
	if err != nil {
		slog.Error("Failed to diff zone", "zone", report.ZoneLabel, "error", err)
		report.Failed = true
		return report
	}

	// Summary goes out before any mutating call.
	slog.Info("Zone reconciliation plan",
		"zone", report.ZoneLabel,
		"create", len(diff.Create),
		"update", len(diff.Update),
		"delete", len(diff.Delete))
	if diff.Empty() {
		return report
	}

	created, updated, deleted, err := e.executor.Apply(ctx, report.ZoneLabel, pair.ZoneID, diff)
	report.Created = created
	report.Updated = updated
	report.Deleted = deleted
	if err != nil {
		slog.Error("Apply halted", "zone", report.ZoneLabel, "error", err)
		report.Failed = true
	}
	return report
}

// filterSkipped drops live records whose name matches the skip-list so they
// are never deleted or flagged for update.
func (e *Engine) filterSkipped(live []provider.Record) []provider.Record {
	if len(e.skip) == 0 {
		return live
	}
	kept := live[:0]
	for _, r := range live {
		if e.nameSkipped(r.Name) {
			slog.Debug("Ignoring live record matching skip-list", "type", r.Type, "name", r.Name)
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func (e *Engine) nameSkipped(name string) bool {
	for _, fragment := range e.skip {
		if fragment != "" && strings.Contains(name, fragment) {
			return true
		}
	}
	return false
}
