package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/opsfolk/manifest-dns-sync/internal/config"
	"github.com/opsfolk/manifest-dns-sync/internal/manifest"
	"github.com/opsfolk/manifest-dns-sync/internal/provider"
)

// ComputeDiff classifies every desired and live record into create, update or
// delete by (type, name) key. It is a pure set comparison: input order only
// matters for picking the canonical record among duplicate live keys.
func ComputeDiff(desired []manifest.Record, live []provider.Record, policy config.DuplicatePolicy) (Diff, error) {
	var diff Diff

	liveByKey := make(map[string]provider.Record, len(live))
	duplicateIDs := make(map[string]bool)
	for _, r := range live {
		if _, ok := liveByKey[r.Key()]; ok {
			// First observed in fetch order stays canonical.
			diff.Duplicates = append(diff.Duplicates, r)
			duplicateIDs[r.ID] = true
			continue
		}
		liveByKey[r.Key()] = r
	}

	if len(diff.Duplicates) > 0 {
		if policy == config.DuplicateFail {
			return Diff{}, fmt.Errorf("zone has %d duplicate live records, first key %s", len(diff.Duplicates), diff.Duplicates[0].Key())
		}
		for _, r := range diff.Duplicates {
			slog.Warn("Duplicate live record, keeping first match as canonical", "type", r.Type, "name", r.Name, "id", r.ID)
		}
	}

	desiredByKey := make(map[string]manifest.Record, len(desired))
	for _, d := range desired {
		if prev, ok := desiredByKey[d.Key()]; ok {
			slog.Warn("Duplicate desired record, keeping first manifest", "type", d.Type, "name", d.Name, "kept", prev.SourceFile, "dropped", d.SourceFile)
			continue
		}
		desiredByKey[d.Key()] = d

		existing, ok := liveByKey[d.Key()]
		if !ok {
			diff.Create = append(diff.Create, d)
			continue
		}
		if !valuesEqual(d, existing) {
			diff.Update = append(diff.Update, UpdatePair{Existing: existing, Desired: d})
		}
	}

	for _, r := range live {
		if duplicateIDs[r.ID] {
			continue
		}
		if _, ok := desiredByKey[r.Key()]; !ok {
			diff.Delete = append(diff.Delete, r)
		}
	}

	return diff, nil
}

// valuesEqual compares the value fields of a matched key. Proxied only
// counts for types the provider can proxy, priority treats absent as null
// and comment treats absent as empty.
func valuesEqual(d manifest.Record, l provider.Record) bool {
	if d.Content != l.Content {
		return false
	}
	if d.TTL != l.TTL {
		return false
	}
	if provider.ProxyableType(d.Type) && boolValue(d.Proxied) != boolValue(l.Proxied) {
		return false
	}
	if !priorityEqual(d.Priority, l.Priority) {
		return false
	}
	if d.Comment != l.Comment {
		return false
	}
	return true
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

func priorityEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
