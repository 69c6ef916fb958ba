package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for journal entries.
// It is derived from content so identical queries share an ID.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// FingerprintQuery identifies a compiled query issued on behalf of identity.
// The same identity, profile and query text always produce the same ID.
func FingerprintQuery(identity string, query ScopedQuery) ID {
	return IDFromContent(identity + "\x00" + query.Profile + "\x00" + query.YQL)
}

// Source identifies a document collection (schema) on the search platform.
type Source string

// Well-known collections. Applications may define more; any identifier
// accepted by ValidateSource works.
const (
	SourceUser           Source = "user"
	SourceFile           Source = "file"
	SourceMail           Source = "mail"
	SourceMailAttachment Source = "mail_attachment"
	SourceEvent          Source = "event"
	SourceChatMessage    Source = "chat_message"
	SourceChatContainer  Source = "chat_container"
	SourceChatUser       Source = "chat_user"
)

// IdentitySource is the user-directory collection. Its documents are scoped by
// the owner attribute instead of the permissions attribute.
const IdentitySource = SourceUser

// Access-control attribute names shared by every collection.
const (
	OwnerField       = "owner"
	PermissionsField = "permissions"
)

// Direction is an ordering direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ScopedQuery is a compiled query paired with the ranking profile it should be
// evaluated with.
type ScopedQuery struct {
	Profile string `json:"profile"`
	YQL     string `json:"yql"`
}

// Document is a schemaless document as returned by the search platform.
type Document struct {
	ID     string
	Source Source
	Fields map[string]any

	// Recalled lists the ranked sub-queries (rendered userInput/nearestNeighbor
	// primitives) that retrieved this document. Only used for local evaluation.
	Recalled map[string]bool
}

// Hit is a document returned by a search together with its relevance.
type Hit struct {
	Document  *Document
	Relevance float64
}

// JournalEntry records a compiled query that was sent to the search platform.
type JournalEntry struct {
	Id            ID
	Identity      string
	Sources       []Source
	Profile       string
	YQL           string
	Count         int       // Number of times the query has been issued
	FirstIssuedAt time.Time // When the query was first issued
	IssuedAt      time.Time // When the query was last issued
}
