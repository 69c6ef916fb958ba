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


// Package storage provides the persistence abstraction for yqlguard.
//
// The only persistent state is the query journal: every compiled query that
// is sent to the search platform is recorded with the identity it was
// compiled for, its sources, ranking profile and timestamps. Entries are
// keyed by core.FingerprintQuery, so repeating a query updates its entry
// instead of adding a new one.
//
// # Usage
//
//	journal, err := badger.NewJournal(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer journal.Close()
//
//	entry, err := journal.Record(ctx, "a@b.com", sources, scoped)
//
// Use in tests with in-memory storage:
//
//	journal, backend, err := badger.NewMemoryJournal()
//
// # Thread Safety
//
// Journal implementations must be safe for concurrent use; the fetch
// package records from several pool workers at once.
package storage
