package mock

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/poiesic/yqlguard/ai"
)

// MockFilterExtractor is a test double for ai.FilterExtractor.
// It allows custom behavior injection via function fields.
type MockFilterExtractor struct {
	// ExtractFiltersFunc is called by ExtractFilters if set.
	// If nil, known app names found in the text become app filters.
	ExtractFiltersFunc func(ctx context.Context, text string, now time.Time) (*ai.ExtractedFilters, error)

	callCount atomic.Int64
}

// NewMockFilterExtractor creates a mock filter extractor with default behavior.
func NewMockFilterExtractor() *MockFilterExtractor {
	return &MockFilterExtractor{}
}

// ExtractFilters returns the known app names mentioned in text as app filters
// and the remaining words as the residual query.
func (m *MockFilterExtractor) ExtractFilters(ctx context.Context, text string, now time.Time) (*ai.ExtractedFilters, error) {
	m.callCount.Add(1)

	if m.ExtractFiltersFunc != nil {
		return m.ExtractFiltersFunc(ctx, text, now)
	}

	filters := &ai.ExtractedFilters{}
	var rest []string
	for _, word := range strings.Fields(text) {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:\"'()[]{}"))
		if ai.IsKnownApp(cleaned) {
			filters.Apps = append(filters.Apps, cleaned)
			continue
		}
		rest = append(rest, word)
	}
	if len(filters.Apps) > 0 {
		filters.Query = strings.Join(rest, " ")
	}
	return filters, nil
}

// CallCount returns the number of times ExtractFilters was called.
func (m *MockFilterExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockFilterExtractor) Reset() {
	m.callCount.Store(0)
	m.ExtractFiltersFunc = nil
}
