package provider

import (
	"context"
	"fmt"
)

// Provider is the remote DNS API the reconciler converges toward. Mutations
// address records by the provider-assigned id.
type Provider interface {
	Records(ctx context.Context, zoneID string) ([]Record, error)
	Create(ctx context.Context, zoneID string, record Record) error
	Update(ctx context.Context, zoneID string, id string, record Record) error
	Delete(ctx context.Context, zoneID string, id string) error
}

// Record is one record currently hosted by the provider, normalized to the
// reconciler's field set. ID is empty on records built from desired state.
type Record struct {
	ID       string
	Type     string
	Name     string
	Content  string
	TTL      int
	Proxied  *bool
	Priority *int
	Comment  string
}

// Key is the identity used to join desired and live sets. Value fields never
// participate in the key.
func (r Record) Key() string {
	return r.Type + "/" + r.Name
}

// FetchError means the live state of a zone could not be read completely.
// Diffing against a partial live set risks spurious deletes, so the whole
// fetch is discarded.
type FetchError struct {
	ZoneID string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch records for zone %s: %v", e.ZoneID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AllowedType reports whether the record type participates in reconciliation.
// Records of any other type are invisible and never touched.
func AllowedType(t string) bool {
	switch t {
	case "A", "AAAA", "CNAME", "TXT":
		return true
	}
	return false
}

// ProxyableType reports whether the provider supports the proxied flag for
// this record type.
func ProxyableType(t string) bool {
	switch t {
	case "A", "AAAA", "CNAME":
		return true
	}
	return false
}
