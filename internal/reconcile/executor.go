package reconcile

import (
	"context"
	"log/slog"

	"github.com/opsfolk/manifest-dns-sync/internal/manifest"
	"github.com/opsfolk/manifest-dns-sync/internal/metrics"
	"github.com/opsfolk/manifest-dns-sync/internal/provider"
)

// Executor applies a diff to one zone in the fixed order delete, update,
// create. Deletes run first so freed name/type slots cannot collide with the
// records that replace them. The first provider failure halts the zone;
// there is no rollback of already-applied operations.
type Executor struct {
	provider provider.Provider
	metrics  *metrics.Metrics
	dryRun   bool
}

func NewExecutor(p provider.Provider, m *metrics.Metrics, dryRun bool) *Executor {
	return &Executor{
		provider: p,
		metrics:  m,
		dryRun:   dryRun,
	}
}

// Apply executes the diff against the zone and returns how many operations
// of each phase were applied before success or the first failure.
func (e *Executor) Apply(ctx context.Context, zoneLabel, zoneID string, diff Diff) (created, updated, deleted int, err error) {
	for _, record := range diff.Delete {
		e.metrics.IncPlannedOp("delete", zoneLabel, record.Type)
		if e.dryRun {
			slog.Info("Dry run, would delete record", "zone", zoneLabel, "type", record.Type, "name", record.Name, "id", record.ID)
			deleted++
			continue
		}
		slog.Info("Deleting record", "zone", zoneLabel, "type", record.Type, "name", record.Name, "id", record.ID)
		if err := e.provider.Delete(ctx, zoneID, record.ID); err != nil {
			return created, updated, deleted, &ApplyError{Op: "delete", Type: record.Type, Name: record.Name, Err: err}
		}
		deleted++
	}

	for _, pair := range diff.Update {
		e.metrics.IncPlannedOp("update", zoneLabel, pair.Desired.Type)
		if e.dryRun {
			slog.Info("Dry run, would update record", "zone", zoneLabel, "type", pair.Desired.Type, "name", pair.Desired.Name, "source", pair.Desired.SourceFile)
			updated++
			continue
		}
		slog.Info("Updating record", "zone", zoneLabel, "type", pair.Desired.Type, "name", pair.Desired.Name, "source", pair.Desired.SourceFile)
		record := toProviderRecord(pair.Desired)
		if err := e.provider.Update(ctx, zoneID, pair.Existing.ID, record); err != nil {
			return created, updated, deleted, &ApplyError{Op: "update", Type: pair.Desired.Type, Name: pair.Desired.Name, Err: err}
		}
		updated++
	}

	for _, desired := range diff.Create {
		e.metrics.IncPlannedOp("create", zoneLabel, desired.Type)
		if e.dryRun {
			slog.Info("Dry run, would create record", "zone", zoneLabel, "type", desired.Type, "name", desired.Name, "source", desired.SourceFile)
			created++
			continue
		}
		slog.Info("Creating record", "zone", zoneLabel, "type", desired.Type, "name", desired.Name, "source", desired.SourceFile)
		record := toProviderRecord(desired)
		if err := e.provider.Create(ctx, zoneID, record); err != nil {
			return created, updated, deleted, &ApplyError{Op: "create", Type: desired.Type, Name: desired.Name, Err: err}
		}
		created++
	}

	return created, updated, deleted, nil
}

// toProviderRecord builds the type-specific mutation payload: proxied only
// for proxyable types, priority and comment only when present.
func toProviderRecord(d manifest.Record) provider.Record {
	r := provider.Record{
		Type:     d.Type,
		Name:     d.Name,
		Content:  d.Content,
		TTL:      d.TTL,
		Priority: d.Priority,
		Comment:  d.Comment,
	}
	if provider.ProxyableType(d.Type) {
		r.Proxied = d.Proxied
	}
	return r
}
