package mock

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/poiesic/yqlguard/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ai.AIProvider = (*MockProvider)(nil)

func TestMockEmbedderDeterministic(t *testing.T) {
	m := NewMockEmbedder()
	a, err := m.EmbedText(context.Background(), "budget")
	require.NoError(t, err)
	b, err := m.EmbedText(context.Background(), "budget")
	require.NoError(t, err)
	c, err := m.EmbedText(context.Background(), "roadmap")
	require.NoError(t, err)

	assert.Len(t, a, Dimensions)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 3, m.CallCount())

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)

	m.Reset()
	assert.Zero(t, m.CallCount())
}

func TestMockFilterExtractor(t *testing.T) {
	m := NewMockFilterExtractor()
	filters, err := m.ExtractFilters(context.Background(), "Slack notes about the launch", time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"slack"}, filters.Apps)
	assert.Equal(t, "notes about the launch", filters.Query)

	filters, err = m.ExtractFilters(context.Background(), "launch notes", time.Now())
	require.NoError(t, err)
	assert.True(t, filters.IsEmpty())
	assert.Empty(t, filters.Query)

	m.ExtractFiltersFunc = func(ctx context.Context, text string, now time.Time) (*ai.ExtractedFilters, error) {
		return &ai.ExtractedFilters{Entities: []string{"ada"}}, nil
	}
	filters, err = m.ExtractFilters(context.Background(), "anything", time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"ada"}, filters.Entities)
	assert.Equal(t, 3, m.CallCount())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	assert.Same(t, p.GetMockEmbedder(), p.Embedder())
	assert.Same(t, p.GetMockExtractor(), p.FilterExtractor())

	assert.False(t, p.Closed())
	require.NoError(t, p.Close())
	assert.True(t, p.Closed())
}
