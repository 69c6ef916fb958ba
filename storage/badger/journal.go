// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/yqlguard/core"
	"github.com/poiesic/yqlguard/storage"
)

// Journal implements storage.QueryJournal for BadgerDB.
type Journal struct {
	backend     *Backend
	ownsBackend bool
	now         func() time.Time
	logger      *slog.Logger
}

var _ storage.QueryJournal = (*Journal)(nil)

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) JournalOption {
	return func(j *Journal) {
		if logger == nil {
			logger = slog.Default()
		}
		j.logger = logger
	}
}

// WithClock replaces the clock used to stamp entries.
func WithClock(now func() time.Time) JournalOption {
	return func(j *Journal) {
		if now != nil {
			j.now = now
		}
	}
}

// NewJournal creates a journal on an open backend. Closing the journal
// leaves the backend open.
func NewJournal(backend *Backend, opts ...JournalOption) (*Journal, error) {
	if backend == nil {
		return nil, storage.ErrStorageClosed
	}
	j := &Journal{
		backend: backend,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.logger = j.logger.With("component", "journal")
	return j, nil
}

// OpenJournal opens a journal stored at path. Closing the journal closes the
// underlying database.
func OpenJournal(path string, opts ...JournalOption) (storage.QueryJournal, error) {
	j := &Journal{logger: slog.Default()}
	for _, opt := range opts {
		opt(j)
	}
	backend, err := OpenBackend(path, false, WithBackendLogger(j.logger))
	if err != nil {
		return nil, err
	}
	journal, err := NewJournal(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	journal.ownsBackend = true
	return journal, nil
}

// Close closes the backend if the journal opened it.
func (j *Journal) Close() error {
	if j.ownsBackend {
		return j.backend.Close()
	}
	return nil
}

func (j *Journal) checkOpen() error {
	if j.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// Record stores query as issued by identity.
func (j *Journal) Record(ctx context.Context, identity string, sources []core.Source, query core.ScopedQuery) (*core.JournalEntry, error) {
	if err := j.checkOpen(); err != nil {
		return nil, err
	}
	if query.YQL == "" {
		return nil, storage.ErrInvalidQuery
	}

	id := core.FingerprintQuery(identity, query)
	var entry *core.JournalEntry
	err := j.backend.Update(func(tx *badger.Txn) error {
		now := j.now().UTC().Truncate(time.Microsecond)
		existing, err := readEntry(tx, id)
		if err != nil {
			return err
		}

		if existing == nil {
			entry = &core.JournalEntry{
				Id:            id,
				Identity:      identity,
				Sources:       slices.Clone(sources),
				Profile:       query.Profile,
				YQL:           query.YQL,
				Count:         1,
				FirstIssuedAt: now,
				IssuedAt:      now,
			}
		} else {
			if err := deleteIndexes(tx, existing); err != nil {
				return err
			}
			entry = existing
			entry.Count++
			entry.IssuedAt = now
		}

		if err := tx.Set(makeEntryKey(id), storage.MarshalJournalEntry(entry)); err != nil {
			return err
		}
		if err := tx.Set(makeTimeKey(entry.IssuedAt, id), storage.MarshalID(id)); err != nil {
			return err
		}
		return tx.Set(makeIdentityKey(entry.Identity, entry.IssuedAt, id), storage.MarshalID(id))
	})
	if err != nil {
		j.logger.Error("error recording query", "id", id, "err", err)
		return nil, err
	}
	j.logger.Debug("recorded query", "id", id, "identity", identity, "count", entry.Count)
	return entry, nil
}

// Get retrieves an entry by fingerprint.
func (j *Journal) Get(ctx context.Context, id core.ID) (*core.JournalEntry, error) {
	if err := j.checkOpen(); err != nil {
		return nil, err
	}
	var entry *core.JournalEntry
	err := j.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		entry, err = readEntry(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, storage.ErrNotFound
	}
	return entry, nil
}

// Recent returns up to limit entries, most recently issued first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*core.JournalEntry, error) {
	return j.scanNewest(ctx, []byte(journalTimePrefix), limit)
}

// ByIdentity returns up to limit entries issued by identity, most recently
// issued first.
func (j *Journal) ByIdentity(ctx context.Context, identity string, limit int) ([]*core.JournalEntry, error) {
	return j.scanNewest(ctx, makeIdentityPrefix(identity), limit)
}

func (j *Journal) scanNewest(ctx context.Context, prefix []byte, limit int) ([]*core.JournalEntry, error) {
	if err := j.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.JournalEntry
	err := j.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(seekEnd(prefix)); iter.ValidForPrefix(prefix) && len(results) < limit; iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}
			entry, err := readEntry(tx, id)
			if err != nil {
				return err
			}
			if entry != nil {
				results = append(results, entry)
			}
		}
		return nil
	}, false)
	return results, err
}

// Prune removes entries last issued before cutoff.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	if err := j.checkOpen(); err != nil {
		return 0, err
	}

	var stale []*core.JournalEntry
	err := j.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(journalTimePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		end := makePartialTimeKey(cutoff)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if slices.Compare(iter.Item().Key(), end) >= 0 {
				break
			}
			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}
			entry, err := readEntry(tx, id)
			if err != nil {
				return err
			}
			if entry != nil {
				stale = append(stale, entry)
			}
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	batch := j.backend.db.NewWriteBatch()
	defer batch.Cancel()
	for _, entry := range stale {
		for _, key := range [][]byte{
			makeEntryKey(entry.Id),
			makeTimeKey(entry.IssuedAt, entry.Id),
			makeIdentityKey(entry.Identity, entry.IssuedAt, entry.Id),
		} {
			if err := batch.Delete(key); err != nil {
				return 0, err
			}
		}
	}
	if err := batch.Flush(); err != nil {
		return 0, err
	}
	j.logger.Debug("pruned journal", "removed", len(stale), "cutoff", cutoff)
	return len(stale), nil
}

// readEntry returns nil without error when the entry does not exist.
func readEntry(tx *badger.Txn, id core.ID) (*core.JournalEntry, error) {
	item, err := tx.Get(makeEntryKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry *core.JournalEntry
	err = item.Value(func(val []byte) error {
		var err error
		entry, err = storage.UnmarshalJournalEntry(val)
		return err
	})
	return entry, err
}

func deleteIndexes(tx *badger.Txn, entry *core.JournalEntry) error {
	if err := tx.Delete(makeTimeKey(entry.IssuedAt, entry.Id)); err != nil {
		return err
	}
	return tx.Delete(makeIdentityKey(entry.Identity, entry.IssuedAt, entry.Id))
}
