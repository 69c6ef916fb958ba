package yqlguard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/yqlguard/ai"
	"github.com/poiesic/yqlguard/ai/mock"
	"github.com/poiesic/yqlguard/core"
	"github.com/poiesic/yqlguard/fetch"
	"github.com/poiesic/yqlguard/search"
	"github.com/poiesic/yqlguard/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const emptyResponse = `{"root":{"fields":{"totalCount":0}}}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(emptyResponse))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewEngine(t *testing.T) {
	server := newTestServer(t)

	t.Run("create new engine", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "journal")
		engine, err := NewEngine(path, WithTransportConfig(&transport.Config{Endpoint: server.URL}))
		require.NoError(t, err)
		defer engine.Close()

		assert.NotNil(t, engine.Journal())
		assert.NotNil(t, engine.Client())
		assert.NotNil(t, engine.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		engine, err := NewEngine(tmpFile, WithTransportConfig(&transport.Config{Endpoint: server.URL}))
		assert.Error(t, err)
		assert.Nil(t, engine)
	})

	t.Run("error with missing endpoint", func(t *testing.T) {
		_, err := NewEngine("", InMemory(), WithTransportConfig(&transport.Config{}))
		assert.ErrorIs(t, err, transport.ErrEndpointRequired)
	})

	t.Run("error with invalid AI config", func(t *testing.T) {
		_, err := NewEngine("", InMemory(),
			WithTransportConfig(&transport.Config{Endpoint: server.URL}),
			WithAIConfig(ai.NewConfig(ai.WithMaxEntities(0))))
		assert.Error(t, err)
	})
}

func TestEngineClose(t *testing.T) {
	provider := mock.NewMockProvider()
	engine, err := NewEngine("", InMemory(),
		WithProvider(provider),
		WithTransportConfig(&transport.Config{Endpoint: newTestServer(t).URL}))
	require.NoError(t, err)

	assert.NoError(t, engine.Close())
	assert.True(t, provider.Closed())
}

func TestEngineFactoryMethods(t *testing.T) {
	server := newTestServer(t)
	fetchConfig := fetch.DefaultConfig()
	fetchConfig.BatchSize = 5

	engine, err := NewEngine("", InMemory(),
		WithProvider(mock.NewMockProvider()),
		WithTransportConfig(&transport.Config{Endpoint: server.URL}),
		WithFetchConfig(fetchConfig),
		WithLogger(nil))
	require.NoError(t, err)
	defer engine.Close()
	ctx := context.Background()

	t.Run("searcher records to the journal", func(t *testing.T) {
		searcher, err := engine.NewSearcher()
		require.NoError(t, err)

		result, err := searcher.Search(ctx, search.Request{
			Identity: "a@b.com",
			Sources:  []core.Source{core.SourceFile},
			Text:     "plan",
			Vector:   true,
		})
		require.NoError(t, err)
		assert.Empty(t, result.Hits)

		entries, err := engine.Journal().ByIdentity(ctx, "a@b.com", 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, result.Query.YQL, entries[0].YQL)
	})

	t.Run("fetcher uses the engine client", func(t *testing.T) {
		fetcher, err := engine.NewFetcher(fetch.WithPoolSize(1))
		require.NoError(t, err)
		defer fetcher.Release()

		docs, err := fetcher.FetchByIDs(ctx, "b@c.com", []core.Source{core.SourceMail}, []string{"m1", "m2"})
		require.NoError(t, err)
		assert.Empty(t, docs)

		entries, err := engine.Journal().ByIdentity(ctx, "b@c.com", 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Contains(t, entries[0].YQL, "docId contains 'm1'")
	})
}
