package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/yqlguard/core"
	"github.com/poiesic/yqlguard/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func testApp(t *testing.T) (*cli.App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}
	return app, &out
}

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %s not found", name)
	return nil
}

func TestCompileCommand(t *testing.T) {
	t.Run("source is required", func(t *testing.T) {
		app, _ := testApp(t)
		err := app.Run([]string{"yqlguard", "compile", "--identity", "a@b.com"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source")
	})

	t.Run("prints query", func(t *testing.T) {
		app, out := testApp(t)
		err := app.Run([]string{"yqlguard", "compile",
			"--identity", "a@b.com", "--source", "file", "--app", "gmail", "--hits", "5", "quarterly", "plan"})
		require.NoError(t, err)

		query := out.String()
		assert.Contains(t, query, "select * from sources file where")
		assert.Contains(t, query, "userInput(@query)")
		assert.Contains(t, query, "app contains 'gmail'")
		assert.Contains(t, query, "permissions contains a@b.com")
		assert.Contains(t, query, "limit 5")
	})

	t.Run("comma separated sources", func(t *testing.T) {
		app, out := testApp(t)
		err := app.Run([]string{"yqlguard", "compile", "-i", "a@b.com", "-s", "user,file"})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "from sources user, file")
		assert.Contains(t, out.String(), "(owner contains a@b.com or permissions contains a@b.com)")
	})

	t.Run("time bounds", func(t *testing.T) {
		app, out := testApp(t)
		err := app.Run([]string{"yqlguard", "compile", "-i", "a@b.com", "-s", "file",
			"--after", "2024-01-01T00:00:00Z", "--before", "2024-01-02T00:00:00Z"})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "timestamp >= 1704067200000")
		assert.Contains(t, out.String(), "timestamp <= 1704153600000")
	})

	t.Run("blank identity is rejected", func(t *testing.T) {
		app, _ := testApp(t)
		err := app.Run([]string{"yqlguard", "compile", "-s", "file"})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrBlankIdentity)
	})

	t.Run("invalid date", func(t *testing.T) {
		app, _ := testApp(t)
		err := app.Run([]string{"yqlguard", "compile", "-i", "a@b.com", "-s", "file", "--after", "yesterday"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--after")
	})
}

func TestSearchCommandFlags(t *testing.T) {
	app, _ := testApp(t)
	cmd := findCommand(t, app, "search")

	var hostFlag *cli.StringFlag
	var hitsFlag *cli.IntFlag
	for _, flag := range cmd.Flags {
		switch f := flag.(type) {
		case *cli.StringFlag:
			if f.Name == "embedding-host" {
				hostFlag = f
			}
		case *cli.IntFlag:
			if f.Name == "hits" {
				hitsFlag = f
			}
		}
	}
	require.NotNil(t, hostFlag)
	assert.Equal(t, "http://localhost:11434/v1", hostFlag.Value)
	require.NotNil(t, hitsFlag)
	assert.Equal(t, 10, hitsFlag.Value)
}

func TestSearchAndHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"root":{"fields":{"totalCount":1},"children":[
			{"id":"id:file:file::1","relevance":0.5,"source":"file","fields":{"docId":"d1","permissions":["a@b.com"]}}]}}`))
	}))
	defer server.Close()

	journalPath := filepath.Join(t.TempDir(), "journal")

	app, out := testApp(t)
	err := app.Run([]string{"yqlguard", "search",
		"--endpoint", server.URL, "--journal", journalPath,
		"-i", "a@b.com", "-s", "file", "--verify", "plan"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Found 1 hits (1 total)")
	assert.Contains(t, out.String(), "0: d1 [file] (0.500)")

	app, out = testApp(t)
	err = app.Run([]string{"yqlguard", "history", "--journal", journalPath, "--identity", "a@b.com"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "a@b.com x1 [hybrid]")
	assert.Contains(t, out.String(), "userInput(@query)")
}

func TestFetchCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"root":{"fields":{"totalCount":1},"children":[
			{"id":"id:file:file::1","source":"file","fields":{"docId":"d1","permissions":["a@b.com"]}}]}}`))
	}))
	defer server.Close()

	t.Run("ids are required", func(t *testing.T) {
		app, _ := testApp(t)
		err := app.Run([]string{"yqlguard", "fetch", "--endpoint", server.URL,
			"--journal", filepath.Join(t.TempDir(), "journal"), "-i", "a@b.com", "-s", "file"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ids are required")
	})

	t.Run("fetches by id", func(t *testing.T) {
		app, out := testApp(t)
		err := app.Run([]string{"yqlguard", "fetch", "--endpoint", server.URL,
			"--journal", filepath.Join(t.TempDir(), "journal"), "-i", "a@b.com", "-s", "file", "d1"})
		require.NoError(t, err)
		assert.Contains(t, out.String(), `"id":"d1"`)
		assert.Contains(t, out.String(), `"source":"file"`)
	})
}

func TestHistoryPrune(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), "journal")
	journal, err := badger.OpenJournal(journalPath)
	require.NoError(t, err)
	_, err = journal.Record(context.Background(), "a@b.com", []core.Source{core.SourceFile},
		core.ScopedQuery{Profile: "unranked", YQL: "select * from sources file where true"})
	require.NoError(t, err)
	require.NoError(t, journal.Close())

	app, out := testApp(t)
	err = app.Run([]string{"yqlguard", "history", "--journal", journalPath, "--prune", "1ns"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Pruned 1 entries")
	assert.NotContains(t, out.String(), "a@b.com")
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("", false)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseDate("2024-03-05", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 23, 59, 59, int(999*time.Millisecond), time.Local), got)

	got, err = parseDate("2024-03-05", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local), got)
}

func TestSetupLogger(t *testing.T) {
	app, _ := testApp(t)
	err := app.Run([]string{"yqlguard", "--log-level", "verbose", "history"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestCompileWithoutPermissions(t *testing.T) {
	app, out := testApp(t)
	err := app.Run([]string{"yqlguard", "compile", "-s", "file", "--app", "gmail", "--no-permissions"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "app contains 'gmail'")
	assert.NotContains(t, out.String(), "permissions contains")
}
