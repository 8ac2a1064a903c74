package reconcile

import (
	"fmt"

	"github.com/opsfolk/manifest-dns-sync/internal/manifest"
	"github.com/opsfolk/manifest-dns-sync/internal/provider"
)

// Diff is the set of operations needed to converge a zone's live records
// toward its desired records. The three sets are pairwise disjoint by
// (type, name) key; records that match exactly appear in none of them.
type Diff struct {
	Create []manifest.Record
	Update []UpdatePair
	Delete []provider.Record

	// Duplicates holds every live record sharing a key with an earlier one
	// in fetch order. They are surfaced but never mutated.
	Duplicates []provider.Record
}

// UpdatePair joins one live record with the desired record that should
// replace its value fields.
type UpdatePair struct {
	Existing provider.Record
	Desired  manifest.Record
}

func (d Diff) Empty() bool {
	return len(d.Create) == 0 && len(d.Update) == 0 && len(d.Delete) == 0
}

// Report is the outcome of reconciling one zone. Counts only cover
// operations that were actually applied.
type Report struct {
	ZoneLabel string `json:"zoneLabel"`
	ZoneID    string `json:"zoneId"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Deleted   int    `json:"deleted"`
	Failed    bool   `json:"failed"`
}

// ApplyError is a single failed create/update/delete call. It halts the
// remainder of the zone's apply phase; operations committed before it stay
// committed.
type ApplyError struct {
	Op   string
	Type string
	Name string
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Op, e.Type, e.Name, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}
