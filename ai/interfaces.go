package ai

import (
	"context"
	"time"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// FilterExtractor turns a natural-language search request into structured
// filters. Implementations must be thread-safe for concurrent use.
type FilterExtractor interface {
	// ExtractFilters analyzes text and returns the app, entity and time
	// constraints it expresses. Relative dates ("last week") are resolved
	// against now. Returns empty filters when the text has none.
	ExtractFilters(ctx context.Context, text string, now time.Time) (*ExtractedFilters, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// FilterExtractor returns the filter extraction service.
	FilterExtractor() FilterExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
