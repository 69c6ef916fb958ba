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


package storage

import (
	"context"
	"time"

	"github.com/poiesic/yqlguard/core"
)

// QueryJournal records compiled queries.
type QueryJournal interface {
	// Record stores query as issued by identity now. An existing entry with
	// the same fingerprint has its count incremented and IssuedAt updated.
	Record(ctx context.Context, identity string, sources []core.Source, query core.ScopedQuery) (*core.JournalEntry, error)

	// Get retrieves an entry by fingerprint.
	// Returns ErrNotFound if the entry doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.JournalEntry, error)

	// Recent returns up to limit entries, most recently issued first.
	Recent(ctx context.Context, limit int) ([]*core.JournalEntry, error)

	// ByIdentity returns up to limit entries issued by identity, most
	// recently issued first.
	ByIdentity(ctx context.Context, identity string, limit int) ([]*core.JournalEntry, error)

	// Prune removes entries last issued before cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases resources held by the journal.
	Close() error
}
