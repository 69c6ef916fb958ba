package ai

import (
	"slices"
	"strings"
	"time"
)

// KnownApps lists the application names documents are tagged with in the
// app attribute. Extractors only emit app filters from this list.
var KnownApps = []string{
	"asana",
	"box",
	"calendar",
	"confluence",
	"docs",
	"drive",
	"dropbox",
	"github",
	"gmail",
	"hubspot",
	"jira",
	"linear",
	"notion",
	"outlook",
	"salesforce",
	"sharepoint",
	"slack",
	"teams",
	"zendesk",
}

// IsKnownApp reports whether name, compared case-insensitively, is in KnownApps.
func IsKnownApp(name string) bool {
	return slices.Contains(KnownApps, strings.ToLower(strings.TrimSpace(name)))
}

// ExtractedFilters are the structured constraints found in a natural-language
// search request.
type ExtractedFilters struct {
	// Apps restricts results to documents from these applications.
	Apps []string

	// Entities are people, teams or customers the request is about.
	Entities []string

	// From and To bound the document timestamp. A zero value is unbounded.
	From time.Time
	To   time.Time

	// Query is what remains of the request once filter phrases are removed.
	// Empty means the original text should be used as is.
	Query string
}

// HasTimeRange reports whether at least one time bound was extracted.
func (f ExtractedFilters) HasTimeRange() bool {
	return !f.From.IsZero() || !f.To.IsZero()
}

// IsEmpty reports whether no filter was extracted.
func (f ExtractedFilters) IsEmpty() bool {
	return len(f.Apps) == 0 && len(f.Entities) == 0 && !f.HasTimeRange()
}
