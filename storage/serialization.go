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
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/yqlguard/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// Timestamps are stored as Unix microseconds.

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

// journalEntrySize returns the encoded size of e.
func journalEntrySize(e *core.JournalEntry) int {
	size := varint.Uint64.Size(uint64(e.Id))
	size += ord.String.Size(e.Identity)
	size += varint.Int.Size(len(e.Sources))
	for _, s := range e.Sources {
		size += ord.String.Size(string(s))
	}
	size += ord.String.Size(e.Profile)
	size += ord.String.Size(e.YQL)
	size += varint.Int.Size(e.Count)
	size += sizeTime(e.FirstIssuedAt)
	size += sizeTime(e.IssuedAt)
	return size
}

// MarshalJournalEntry serializes a JournalEntry to bytes.
func MarshalJournalEntry(e *core.JournalEntry) []byte {
	buf := make([]byte, journalEntrySize(e))
	n := varint.Uint64.Marshal(uint64(e.Id), buf)
	n += ord.String.Marshal(e.Identity, buf[n:])
	n += varint.Int.Marshal(len(e.Sources), buf[n:])
	for _, s := range e.Sources {
		n += ord.String.Marshal(string(s), buf[n:])
	}
	n += ord.String.Marshal(e.Profile, buf[n:])
	n += ord.String.Marshal(e.YQL, buf[n:])
	n += varint.Int.Marshal(e.Count, buf[n:])
	n += marshalTime(e.FirstIssuedAt, buf[n:])
	marshalTime(e.IssuedAt, buf[n:])
	return buf
}

// UnmarshalJournalEntry deserializes a JournalEntry from bytes.
func UnmarshalJournalEntry(data []byte) (*core.JournalEntry, error) {
	var (
		e   core.JournalEntry
		off int
	)
	fail := func(field string, err error) (*core.JournalEntry, error) {
		return nil, fmt.Errorf("%w: journal entry %s: %w", ErrSerializationFailed, field, err)
	}

	id, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return fail("id", err)
	}
	e.Id = core.ID(id)
	off += n

	if e.Identity, n, err = ord.String.Unmarshal(data[off:]); err != nil {
		return fail("identity", err)
	}
	off += n

	count, n, err := varint.Int.Unmarshal(data[off:])
	if err != nil {
		return fail("sources", err)
	}
	off += n
	if count < 0 || count > len(data)-off {
		return fail("sources", ErrTruncatedData)
	}
	if count > 0 {
		e.Sources = make([]core.Source, count)
	}
	for i := range e.Sources {
		s, n, err := ord.String.Unmarshal(data[off:])
		if err != nil {
			return fail("sources", err)
		}
		e.Sources[i] = core.Source(s)
		off += n
	}

	if e.Profile, n, err = ord.String.Unmarshal(data[off:]); err != nil {
		return fail("profile", err)
	}
	off += n
	if e.YQL, n, err = ord.String.Unmarshal(data[off:]); err != nil {
		return fail("yql", err)
	}
	off += n
	if e.Count, n, err = varint.Int.Unmarshal(data[off:]); err != nil {
		return fail("count", err)
	}
	off += n
	if e.FirstIssuedAt, n, err = unmarshalTime(data[off:]); err != nil {
		return fail("firstIssuedAt", err)
	}
	off += n
	if e.IssuedAt, _, err = unmarshalTime(data[off:]); err != nil {
		return fail("issuedAt", err)
	}
	return &e, nil
}
