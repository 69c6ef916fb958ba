package search

import (
	"strings"

	"github.com/poiesic/yqlguard/core"
)

// Stop words to filter out when checking for verbatim matches
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// verbatimMatch reports whether every query word (after filtering) appears
// in the string value of field. Array values match when their elements
// together contain every word.
func verbatimMatch(doc *core.Document, field string, queryWords []string) bool {
	if len(queryWords) == 0 || doc == nil {
		return false
	}
	var text strings.Builder
	switch v := doc.Fields[field].(type) {
	case string:
		text.WriteString(v)
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				text.WriteString(s)
				text.WriteByte(' ')
			}
		}
	default:
		return false
	}

	docWords := make(map[string]bool)
	for _, word := range tokenizeAndFilter(text.String()) {
		docWords[word] = true
	}
	for _, word := range queryWords {
		if !docWords[word] {
			return false
		}
	}
	return true
}
