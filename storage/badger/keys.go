package badger

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/poiesic/yqlguard/core"
)

const (
	journalEntryPrefix    = "jrnent:"
	journalTimePrefix     = "jrntim:"
	journalIdentityPrefix = "jrnidn:"
)

// makeEntryKey generates a key for a journal entry by fingerprint.
func makeEntryKey(id core.ID) []byte {
	buf := make([]byte, len(journalEntryPrefix)+8)
	offset := copy(buf, journalEntryPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeTimeKey generates a composite key for the issued-at index.
// Format: prefix:timestamp:id
func makeTimeKey(issuedAt time.Time, id core.ID) []byte {
	buf := make([]byte, len(journalTimePrefix)+16)
	offset := copy(buf, journalTimePrefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(issuedAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialTimeKey generates a partial key for issued-at range scans.
// Format: prefix:timestamp
func makePartialTimeKey(issuedAt time.Time) []byte {
	buf := make([]byte, len(journalTimePrefix)+8)
	offset := copy(buf, journalTimePrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(issuedAt.UnixMicro()))
	return buf
}

// makeIdentityPrefix returns the prefix of all identity index keys for identity.
// Format: prefix:identity\x00
func makeIdentityPrefix(identity string) []byte {
	buf := make([]byte, 0, len(journalIdentityPrefix)+len(identity)+1)
	buf = append(buf, journalIdentityPrefix...)
	buf = append(buf, identity...)
	return append(buf, 0)
}

// makeIdentityKey generates a composite key for the identity index.
// Format: prefix:identity\x00timestamp:id
func makeIdentityKey(identity string, issuedAt time.Time, id core.ID) []byte {
	prefix := makeIdentityPrefix(identity)
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(issuedAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// seekEnd returns a key sorting after every index key that starts with prefix.
func seekEnd(prefix []byte) []byte {
	return append(append([]byte(nil), prefix...), bytes.Repeat([]byte{0xFF}, 17)...)
}
