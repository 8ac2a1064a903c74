// Package history persists the outcome of past sync runs. It is
// observability only: the diff never reads it, desired and live state are
// always recomputed fresh.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/opsfolk/manifest-dns-sync/internal/metrics"
	"github.com/opsfolk/manifest-dns-sync/internal/reconcile"
)

const reportPrefix = "report:"

// Entry is the most recent sync outcome for one zone.
type Entry struct {
	Report   reconcile.Report `json:"report"`
	SyncedAt int64            `json:"syncedAt"`
}

type Store interface {
	Save(ctx context.Context, entries []Entry) error
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

type badgerStore struct {
	db      *badger.DB
	metrics *metrics.Metrics
}

func Open(path string, metrics *metrics.Metrics) (Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &badgerStore{db: db, metrics: metrics}, nil
}

// Save overwrites the stored entry for each zone in entries. Zones not
// mentioned keep their previous entry.
func (s *badgerStore) Save(ctx context.Context, entries []Entry) error {
	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			s.metrics.IncBadgerRequest("update", false)
			return err
		}
		key := reportPrefix + entry.Report.ZoneID
		if err := txn.Set([]byte(key), data); err != nil {
			s.metrics.IncBadgerRequest("update", false)
			return err
		}
	}

	err := txn.Commit()
	s.metrics.IncBadgerRequest("update", err == nil)
	return err
}

func (s *badgerStore) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(reportPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var entry Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	s.metrics.IncBadgerRequest("read", err == nil)
	return entries, err
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}
