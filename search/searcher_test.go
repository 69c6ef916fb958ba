package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/yqlguard/ai"
	"github.com/poiesic/yqlguard/ai/mock"
	"github.com/poiesic/yqlguard/condition"
	"github.com/poiesic/yqlguard/core"
	"github.com/poiesic/yqlguard/storage/badger"
	"github.com/poiesic/yqlguard/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingClient returns canned hits and keeps every request.
type recordingClient struct {
	mu       sync.Mutex
	requests []transport.Request
	hits     []*core.Hit
	err      error
}

func (c *recordingClient) Search(ctx context.Context, req transport.Request) (*transport.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	return &transport.Result{TotalCount: len(c.hits), Hits: c.hits}, nil
}

func (c *recordingClient) last() transport.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

func hit(id string, relevance float64, fields map[string]any) *core.Hit {
	return &core.Hit{Document: &core.Document{ID: id, Source: core.SourceFile, Fields: fields}, Relevance: relevance}
}

// stageMonitor records the order of monitor callbacks.
type stageMonitor struct {
	stages  []string
	dropped []string
}

func (m *stageMonitor) Start(_ Request) { m.stages = append(m.stages, "start") }
func (m *stageMonitor) AfterFilterExtraction(_ *ai.ExtractedFilters) {
	m.stages = append(m.stages, "filters")
}
func (m *stageMonitor) AfterEmbedding(_ int)              { m.stages = append(m.stages, "embedding") }
func (m *stageMonitor) AfterCompile(_ core.ScopedQuery)   { m.stages = append(m.stages, "compile") }
func (m *stageMonitor) AfterSearch(_ int, _ []*core.Hit)  { m.stages = append(m.stages, "search") }
func (m *stageMonitor) DroppedHit(h *core.Hit)            { m.dropped = append(m.dropped, h.Document.ID) }
func (m *stageMonitor) Finish(_ *Result)                  { m.stages = append(m.stages, "finish") }

func TestNewSearcher(t *testing.T) {
	client := &recordingClient{}

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(client, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		assert.NotNil(t, searcher.embedder)
		assert.NotNil(t, searcher.extractor)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(client, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher.logger)
	})

	t.Run("nil client", func(t *testing.T) {
		_, err := NewSearcher(nil)
		assert.Equal(t, ErrClientRequired, err)
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := NewSearcher(client, WithProfile("no spaces allowed"))
		assert.ErrorIs(t, err, core.ErrInvalidValue)
		_, err = NewSearcher(client, WithTargetHits(-1))
		assert.ErrorIs(t, err, core.ErrNegativeValue)
		_, err = NewSearcher(client, WithVectorField("chunk embeddings", "e"))
		assert.ErrorIs(t, err, core.ErrInvalidFieldName)
		_, err = NewSearcher(client, WithTimeField(""))
		assert.ErrorIs(t, err, core.ErrInvalidFieldName)
	})
}

func TestSearchContentCollections(t *testing.T) {
	client := &recordingClient{hits: []*core.Hit{hit("d1", 0.9, nil)}}
	searcher, err := NewSearcher(client, WithProvider(mock.NewMockProvider()), WithTargetHits(10))
	require.NoError(t, err)

	result, err := searcher.Search(context.Background(), Request{
		Identity: "a@b.com",
		Sources:  []core.Source{core.SourceFile, core.SourceMail},
		Text:     "quarterly report",
		Vector:   true,
		Apps:     []string{"gmail"},
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Nil(t, result.Filters)

	sent := client.last()
	query := sent.Query.YQL
	assert.Equal(t, DefaultProfile, sent.Query.Profile)
	assert.Contains(t, query, "from sources file, mail")
	assert.Contains(t, query, "({targetHits:10}userInput(@query))")
	assert.Contains(t, query, "({targetHits:10}nearestNeighbor(chunk_embeddings, e))")
	assert.Contains(t, query, "app contains 'gmail'")
	assert.Contains(t, query, "permissions contains a@b.com")
	assert.NotContains(t, query, "owner contains")
	assert.Contains(t, query, "limit 10")

	assert.Equal(t, "quarterly report", sent.Text)
	assert.Equal(t, "a@b.com", sent.Identity)
	assert.Equal(t, DefaultHits, sent.Hits)
	assert.Len(t, sent.Inputs[DefaultVectorInput], mock.Dimensions)
}

func TestSearchIdentityCollection(t *testing.T) {
	client := &recordingClient{}
	searcher, err := NewSearcher(client)
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), Request{
		Identity: "req@x.com",
		Sources:  []core.Source{core.SourceUser},
		Text:     "ada",
	})
	require.NoError(t, err)

	query := client.last().Query.YQL
	assert.Contains(t, query, "owner contains req@x.com")
	assert.NotContains(t, query, "permissions contains")
}

func TestSearchWithoutText(t *testing.T) {
	client := &recordingClient{}
	searcher, err := NewSearcher(client)
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), Request{
		Identity: "a@b.com",
		Sources:  []core.Source{core.SourceMail},
		Hits:     5,
	})
	require.NoError(t, err)
	assert.Equal(t, "select * from sources mail where (permissions contains a@b.com) limit 5", client.last().Query.YQL)
	assert.Empty(t, client.last().Text)
}

func TestSearchTimeRangeAndWhere(t *testing.T) {
	client := &recordingClient{}
	searcher, err := NewSearcher(client, WithTimeField("created"))
	require.NoError(t, err)

	after := time.UnixMilli(1700000000000)
	_, err = searcher.Search(context.Background(), Request{
		Identity: "a@b.com",
		Sources:  []core.Source{core.SourceFile},
		Text:     "roadmap",
		After:    after,
		Where:    condition.Must(condition.Contains("type", "doc")),
		Offset:   20,
		Timeout:  2 * time.Second,
		Profile:  "bm25",
	})
	require.NoError(t, err)

	sent := client.last()
	assert.Equal(t, "bm25", sent.Query.Profile)
	assert.Equal(t, 2*time.Second, sent.Timeout)
	assert.Contains(t, sent.Query.YQL, "type contains 'doc'")
	assert.Contains(t, sent.Query.YQL, "(created >= 1700000000000)")
	assert.True(t, strings.HasSuffix(sent.Query.YQL, "limit 10 offset 20 timeout 2000"), sent.Query.YQL)
}

func TestSearchExtractFilters(t *testing.T) {
	client := &recordingClient{}
	extractor := mock.NewMockFilterExtractor()
	from := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	var seenNow time.Time
	extractor.ExtractFiltersFunc = func(ctx context.Context, text string, at time.Time) (*ai.ExtractedFilters, error) {
		seenNow = at
		return &ai.ExtractedFilters{
			Apps:     []string{"slack", "Gmail"},
			Entities: []string{"ada"},
			From:     from,
			Query:    "budget",
		}, nil
	}
	searcher, err := NewSearcher(client,
		WithFilterExtractor(extractor),
		WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	monitor := &stageMonitor{}
	result, err := searcher.SearchWithMonitor(context.Background(), Request{
		Identity:       "a@b.com",
		Sources:        []core.Source{core.SourceChatMessage},
		Text:           "slack messages from ada about the budget last week",
		Apps:           []string{"gmail"},
		ExtractFilters: true,
	}, monitor)
	require.NoError(t, err)

	assert.Equal(t, now, seenNow)
	require.NotNil(t, result.Filters)
	assert.Equal(t, []string{"start", "filters", "compile", "search", "finish"}, monitor.stages)

	sent := client.last()
	assert.Equal(t, "budget", sent.Text)
	assert.Contains(t, sent.Query.YQL, "(app contains 'gmail' or app contains 'slack')")
	assert.Contains(t, sent.Query.YQL, "entity contains 'ada'")
	assert.Contains(t, sent.Query.YQL, "(timestamp >= "+itoa(from.UnixMilli())+")")
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestSearchErrors(t *testing.T) {
	ctx := context.Background()
	base := Request{Identity: "a@b.com", Sources: []core.Source{core.SourceFile}, Text: "x"}

	t.Run("vector without embedder", func(t *testing.T) {
		searcher, err := NewSearcher(&recordingClient{})
		require.NoError(t, err)
		req := base
		req.Vector = true
		_, err = searcher.Search(ctx, req)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})

	t.Run("vector without text", func(t *testing.T) {
		searcher, err := NewSearcher(&recordingClient{}, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		req := base
		req.Text = "  "
		req.Vector = true
		_, err = searcher.Search(ctx, req)
		assert.ErrorIs(t, err, ErrTextRequired)
	})

	t.Run("extraction without extractor", func(t *testing.T) {
		searcher, err := NewSearcher(&recordingClient{})
		require.NoError(t, err)
		req := base
		req.ExtractFilters = true
		_, err = searcher.Search(ctx, req)
		assert.ErrorIs(t, err, ErrExtractorRequired)
	})

	t.Run("embedding failure", func(t *testing.T) {
		boom := errors.New("embedding failed")
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) { return nil, boom }
		searcher, err := NewSearcher(&recordingClient{}, WithEmbedder(embedder))
		require.NoError(t, err)
		req := base
		req.Vector = true
		_, err = searcher.Search(ctx, req)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("invalid request", func(t *testing.T) {
		client := &recordingClient{}
		searcher, err := NewSearcher(client)
		require.NoError(t, err)

		req := base
		req.Identity = ""
		_, err = searcher.Search(ctx, req)
		assert.ErrorIs(t, err, core.ErrBlankIdentity)

		req = base
		req.Sources = nil
		_, err = searcher.Search(ctx, req)
		assert.ErrorIs(t, err, core.ErrSourcesRequired)

		req = base
		req.Hits = -1
		_, err = searcher.Search(ctx, req)
		assert.ErrorIs(t, err, core.ErrNegativeValue)

		assert.Empty(t, client.requests, "nothing is sent for invalid requests")
	})

	t.Run("client failure", func(t *testing.T) {
		searcher, err := NewSearcher(&recordingClient{err: transport.ErrNotFound})
		require.NoError(t, err)
		_, err = searcher.Search(ctx, base)
		assert.ErrorIs(t, err, transport.ErrNotFound)
	})
}

func TestSearchVerification(t *testing.T) {
	client := &recordingClient{hits: []*core.Hit{
		hit("mine", 0.9, map[string]any{"permissions": []any{"a@b.com"}}),
		hit("theirs", 0.8, map[string]any{"permissions": []any{"c@d.com"}}),
	}}
	searcher, err := NewSearcher(client, WithVerification(true))
	require.NoError(t, err)

	monitor := &stageMonitor{}
	result, err := searcher.SearchWithMonitor(context.Background(), Request{
		Identity: "a@b.com",
		Sources:  []core.Source{core.SourceFile},
		Text:     "plan",
	}, monitor)
	require.NoError(t, err)

	require.Len(t, result.Hits, 1)
	assert.Equal(t, "mine", result.Hits[0].Document.ID)
	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, []string{"theirs"}, monitor.dropped)
}

func TestSearchVerbatimBoost(t *testing.T) {
	client := &recordingClient{hits: []*core.Hit{
		hit("partial", 0.9, map[string]any{"title": "Quarterly numbers"}),
		hit("exact", 0.7, map[string]any{"title": "The quarterly report, final"}),
	}}
	searcher, err := NewSearcher(client, WithVerbatimBoost("title", 0.3))
	require.NoError(t, err)

	result, err := searcher.Search(context.Background(), Request{
		Identity: "a@b.com",
		Sources:  []core.Source{core.SourceFile},
		Text:     "the quarterly report",
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "exact", result.Hits[0].Document.ID)
	assert.InDelta(t, 1.0, result.Hits[0].Relevance, 1e-9)
}

func TestSearchRecordsQueries(t *testing.T) {
	journal, backend, err := badger.NewMemoryJournal()
	require.NoError(t, err)
	defer func() {
		journal.Close()
		backend.Close()
	}()

	client := &recordingClient{}
	searcher, err := NewSearcher(client, WithJournal(journal), WithLogger(slog.Default()))
	require.NoError(t, err)

	req := Request{Identity: "a@b.com", Sources: []core.Source{core.SourceFile}, Text: "plan"}
	for range 2 {
		_, err = searcher.Search(context.Background(), req)
		require.NoError(t, err)
	}

	entries, err := journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Count)
	assert.Equal(t, client.last().Query.YQL, entries[0].YQL)
	assert.Equal(t, []core.Source{core.SourceFile}, entries[0].Sources)
}

func TestCompileDoesNotSend(t *testing.T) {
	client := &recordingClient{}
	searcher, err := NewSearcher(client)
	require.NoError(t, err)

	treq, err := searcher.Compile(context.Background(), Request{
		Identity: "a@b.com",
		Sources:  []core.Source{core.SourceFile},
		Text:     "plan",
	})
	require.NoError(t, err)
	assert.Contains(t, treq.Query.YQL, "userInput(@query)")
	assert.Empty(t, client.requests)
}

func TestSearchOverHTTP(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &payload))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"root":{"fields":{"totalCount":1},"children":[
			{"id":"id:file:file::1","relevance":0.5,"source":"file","fields":{"docId":"d1","permissions":["a@b.com"]}}]}}`))
	}))
	defer server.Close()

	client, err := transport.NewClient(&transport.Config{Endpoint: server.URL})
	require.NoError(t, err)
	searcher, err := NewSearcher(client, WithProvider(mock.NewMockProvider()), WithVerification(true))
	require.NoError(t, err)

	result, err := searcher.Search(context.Background(), Request{
		Identity: "a@b.com",
		Sources:  []core.Source{core.SourceFile},
		Text:     "plan",
		Vector:   true,
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "d1", result.Hits[0].Document.ID)

	assert.Equal(t, "plan", payload["query"])
	assert.Equal(t, "a@b.com", payload["email"])
	assert.Equal(t, DefaultProfile, payload["ranking.profile"])
	assert.Contains(t, payload, "input.query(e)")
	assert.Contains(t, payload["yql"], "nearestNeighbor(chunk_embeddings, e)")
}

func TestVerbatimMatch(t *testing.T) {
	doc := &core.Document{Fields: map[string]any{
		"title": "The Quarterly Report!",
		"tags":  []any{"budget", "q3", 7},
	}}
	assert.True(t, verbatimMatch(doc, "title", tokenizeAndFilter("quarterly report")))
	assert.False(t, verbatimMatch(doc, "title", tokenizeAndFilter("annual report")))
	assert.True(t, verbatimMatch(doc, "tags", tokenizeAndFilter("q3 budget")))
	assert.False(t, verbatimMatch(doc, "missing", tokenizeAndFilter("q3")))
	assert.False(t, verbatimMatch(doc, "title", nil))
}

func TestUnion(t *testing.T) {
	assert.Equal(t, []string{"gmail", "slack"}, union([]string{"gmail"}, []string{"GMAIL", "slack"}))
	assert.Equal(t, []string{"a"}, union(nil, []string{"a"}))
}
