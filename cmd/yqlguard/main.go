// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/yqlguard"
	"github.com/poiesic/yqlguard/ai"
	"github.com/poiesic/yqlguard/condition"
	"github.com/poiesic/yqlguard/core"
	"github.com/poiesic/yqlguard/fetch"
	"github.com/poiesic/yqlguard/search"
	"github.com/poiesic/yqlguard/storage/badger"
	"github.com/poiesic/yqlguard/transport"
	"github.com/poiesic/yqlguard/yql"
	"github.com/urfave/cli/v2"
)

const defaultJournal = "./yqlguard_journal"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "yqlguard",
		Usage: "Build and run access-controlled search queries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "compile",
				Usage:     "Print the query for a request without sending it",
				ArgsUsage: "[text]",
				Action:    compileCommand,
				Flags: concat(scopeFlags(), queryFlags(), []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-permissions",
						Usage: "Omit the access-control predicate",
					},
				}),
			},
			{
				Name:      "search",
				Usage:     "Run a search on behalf of an identity",
				ArgsUsage: "[text]",
				Action:    searchCommand,
				Flags: concat(scopeFlags(), queryFlags(), engineFlags(), aiFlags(), []cli.Flag{
					&cli.BoolFlag{
						Name:  "vector",
						Usage: "Add a nearest-neighbour match over the text embedding",
					},
					&cli.BoolFlag{
						Name:  "extract",
						Usage: "Extract app, entity and time filters from the text",
					},
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "Drop hits that fail the access check locally",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Print each search stage",
					},
				}),
			},
			{
				Name:      "fetch",
				Usage:     "Fetch documents by id, or every visible document with --all",
				ArgsUsage: "[id...]",
				Action:    fetchCommand,
				Flags: concat(scopeFlags(), engineFlags(), []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Page through every document the identity may see",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of ids per query",
						Value: fetch.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Number of documents per page with --all",
						Value: fetch.DefaultPageSize,
					},
					&cli.IntFlag{
						Name:  "max-pages",
						Usage: "Stop after N pages with --all (0 for no limit)",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of batches fetched concurrently",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: fetch.DefaultReportInterval,
					},
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "Drop documents that fail the access check locally",
					},
				}),
			},
			{
				Name:   "history",
				Usage:  "List recorded queries",
				Action: historyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "journal",
						Aliases: []string{"j"},
						Usage:   "Path to the query journal directory",
						Value:   defaultJournal,
					},
					&cli.StringFlag{
						Name:    "identity",
						Aliases: []string{"i"},
						Usage:   "Only list queries issued for this identity",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries",
						Value: 20,
					},
					&cli.DurationFlag{
						Name:  "prune",
						Usage: "Delete entries not issued within this duration before listing",
					},
				},
			},
		},
	}
}

func scopeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "identity",
			Aliases: []string{"i"},
			Usage:   "Requester identity the access check is scoped to",
		},
		&cli.StringSliceFlag{
			Name:     "source",
			Aliases:  []string{"s"},
			Usage:    "Collection to search (repeatable)",
			Required: true,
		},
	}
}

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "app", Usage: "Restrict to documents from this app (repeatable)"},
		&cli.StringSliceFlag{Name: "entity", Usage: "Restrict to documents about this entity (repeatable)"},
		&cli.StringSliceFlag{Name: "exclude", Usage: "Document id to exclude (repeatable)"},
		&cli.StringFlag{Name: "after", Usage: "Lower time bound (YYYY-MM-DD or RFC 3339)"},
		&cli.StringFlag{Name: "before", Usage: "Inclusive upper time bound (YYYY-MM-DD or RFC 3339)"},
		&cli.IntFlag{Name: "hits", Usage: "Number of hits", Value: search.DefaultHits},
		&cli.IntFlag{Name: "offset", Usage: "Number of hits to skip"},
		&cli.DurationFlag{Name: "timeout", Usage: "Server-side time budget"},
		&cli.StringFlag{Name: "profile", Usage: "Ranking profile", Value: search.DefaultProfile},
		&cli.IntFlag{Name: "target-hits", Usage: "Candidate bound for userInput and nearestNeighbor", Value: search.DefaultTargetHits},
	}
}

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "endpoint",
			Aliases:  []string{"e"},
			Usage:    "Search platform base URL",
			EnvVars:  []string{"YQLGUARD_ENDPOINT"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "journal",
			Aliases: []string{"j"},
			Usage:   "Path to the query journal directory",
			Value:   defaultJournal,
		},
		&cli.IntFlag{
			Name:  "max-attempts",
			Usage: "Maximum attempts per query on rate limiting and server errors",
			Value: transport.DefaultMaxAttempts,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: transport.DefaultBaseDelay,
		},
	}
}

func aiFlags() []cli.Flag {
	defaults := ai.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{Name: "embedding-host", Usage: "Embedding service host URL", Value: defaults.EmbeddingHost},
		&cli.StringFlag{Name: "embedding-model", Usage: "Embedding model name", Value: defaults.EmbeddingModel},
		&cli.StringFlag{Name: "extractor-host", Usage: "Filter extraction service host URL", Value: defaults.ExtractorHost},
		&cli.StringFlag{Name: "extractor-model", Usage: "Filter extraction model name", Value: defaults.ExtractorModel},
	}
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, g := range groups {
		flags = append(flags, g...)
	}
	return flags
}

func sources(c *cli.Context) []core.Source {
	var out []core.Source
	for _, s := range c.StringSlice("source") {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, core.Source(part))
			}
		}
	}
	return out
}

// request maps the shared query flags onto a search request.
func request(c *cli.Context) (search.Request, error) {
	after, err := parseDate(c.String("after"), false)
	if err != nil {
		return search.Request{}, fmt.Errorf("invalid --after: %w", err)
	}
	before, err := parseDate(c.String("before"), true)
	if err != nil {
		return search.Request{}, fmt.Errorf("invalid --before: %w", err)
	}
	return search.Request{
		Identity:   c.String("identity"),
		Sources:    sources(c),
		Text:       strings.Join(c.Args().Slice(), " "),
		Apps:       c.StringSlice("app"),
		Entities:   c.StringSlice("entity"),
		ExcludeIDs: c.StringSlice("exclude"),
		After:      after,
		Before:     before,
		Hits:       c.Int("hits"),
		Offset:     c.Int("offset"),
		Timeout:    c.Duration("timeout"),
		Profile:    c.String("profile"),
	}, nil
}

func parseDate(s string, upper bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
	}
	return t, nil
}

// compileCommand prints the query without touching the network or the journal.
func compileCommand(c *cli.Context) error {
	req, err := request(c)
	if err != nil {
		return err
	}

	b := yql.New(req.Identity).
		From(req.Sources...).
		FilterByApp(req.Apps...).
		FilterByEntity(req.Entities...).
		ExcludeDocIDs(req.ExcludeIDs...).
		Limit(req.Hits).
		Timeout(req.Timeout)
	if req.Offset != 0 {
		b.Offset(req.Offset)
	}
	if c.Bool("no-permissions") {
		b.WithoutPermissions()
	}
	if strings.TrimSpace(req.Text) != "" {
		freeText, err := condition.NewFreeText(search.DefaultQueryParam, c.Int("target-hits"))
		if err != nil {
			return err
		}
		b.WhereOr(freeText)
	}
	if !req.After.IsZero() || !req.Before.IsZero() {
		window, err := condition.NewTimeRange(search.DefaultTimeField, search.DefaultTimeField,
			condition.TimeBounds{From: req.After, To: req.Before})
		if err != nil {
			return err
		}
		b.Filter(window)
	}

	scoped, err := b.BuildProfile(req.Profile)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, scoped.YQL)
	return nil
}

func openEngine(c *cli.Context, withAI bool) (*yqlguard.Engine, error) {
	opts := []yqlguard.Option{
		yqlguard.WithTransportConfig(&transport.Config{
			Endpoint:    c.String("endpoint"),
			MaxAttempts: c.Int("max-attempts"),
			BaseDelay:   c.Duration("retry-delay"),
		}),
	}
	if withAI {
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
			ai.WithExtractorHost(c.String("extractor-host")),
			ai.WithExtractorModel(c.String("extractor-model")),
		)
		if err := aiConfig.Validate(); err != nil {
			return nil, fmt.Errorf("invalid AI configuration: %w", err)
		}
		opts = append(opts, yqlguard.WithAIConfig(aiConfig))
	}

	engine, err := yqlguard.NewEngine(c.String("journal"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	req, err := request(c)
	if err != nil {
		return err
	}
	req.Vector = c.Bool("vector")
	req.ExtractFilters = c.Bool("extract")

	engine, err := openEngine(c, true)
	if err != nil {
		return err
	}
	defer engine.Close()

	searcher, err := engine.NewSearcher(
		search.WithTargetHits(c.Int("target-hits")),
		search.WithVerification(c.Bool("verify")),
	)
	if err != nil {
		return err
	}

	var monitor search.SearchMonitor
	if c.Bool("verbose") {
		monitor = &printMonitor{w: c.App.ErrWriter}
	}
	result, err := searcher.SearchWithMonitor(ctx, req, monitor)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Found %d hits (%d total)\n", len(result.Hits), result.TotalCount)
	for i, hit := range result.Hits {
		fmt.Fprintf(out, "%d: %s [%s] (%0.3f)\n", i, hit.Document.ID, hit.Document.Source, hit.Relevance)
	}
	return nil
}

func fetchCommand(c *cli.Context) error {
	ctx := context.Background()

	ids := c.Args().Slice()
	if !c.Bool("all") && len(ids) == 0 {
		return fmt.Errorf("document ids are required unless --all is set")
	}

	engine, err := openEngine(c, false)
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := []fetch.Option{
		fetch.WithBatchSize(c.Int("batch-size")),
		fetch.WithPageSize(c.Int("page-size")),
		fetch.WithMaxPages(c.Int("max-pages")),
		fetch.WithVerification(c.Bool("verify")),
		fetch.WithProgress(c.App.ErrWriter, c.Int("report-interval")),
	}
	if n := c.Int("pool-size"); n > 0 {
		opts = append(opts, fetch.WithPoolSize(n))
	}
	fetcher, err := engine.NewFetcher(opts...)
	if err != nil {
		return err
	}
	defer fetcher.Release()

	enc := json.NewEncoder(c.App.Writer)
	identity := c.String("identity")
	if c.Bool("all") {
		_, err := fetcher.FetchAll(ctx, identity, sources(c), nil, func(page []*core.Document) error {
			return writeDocuments(enc, page)
		})
		return err
	}

	docs, err := fetcher.FetchByIDs(ctx, identity, sources(c), ids)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	return writeDocuments(enc, docs)
}

func writeDocuments(enc *json.Encoder, docs []*core.Document) error {
	for _, doc := range docs {
		if err := enc.Encode(map[string]any{"id": doc.ID, "source": doc.Source, "fields": doc.Fields}); err != nil {
			return err
		}
	}
	return nil
}

func historyCommand(c *cli.Context) error {
	ctx := context.Background()

	journal, err := badger.OpenJournal(c.String("journal"))
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer journal.Close()

	out := c.App.Writer
	if d := c.Duration("prune"); d > 0 {
		n, err := journal.Prune(ctx, time.Now().Add(-d))
		if err != nil {
			return fmt.Errorf("prune failed: %w", err)
		}
		fmt.Fprintf(out, "Pruned %d entries\n", n)
	}

	limit := c.Int("limit")
	var entries []*core.JournalEntry
	if identity := c.String("identity"); identity != "" {
		entries, err = journal.ByIdentity(ctx, identity, limit)
	} else {
		entries, err = journal.Recent(ctx, limit)
	}
	if err != nil {
		return err
	}

	for _, e := range entries {
		fmt.Fprintf(out, "%s %s x%d [%s] %s\n",
			e.IssuedAt.Local().Format(time.DateTime), e.Identity, e.Count, e.Profile, e.YQL)
	}
	return nil
}

// printMonitor writes each search stage to w.
type printMonitor struct {
	w io.Writer
}

func (m *printMonitor) Start(req search.Request) {
	fmt.Fprintf(m.w, "Searching %v for %s: %q\n", req.Sources, req.Identity, req.Text)
}

func (m *printMonitor) AfterFilterExtraction(f *ai.ExtractedFilters) {
	fmt.Fprintf(m.w, "Filters: apps=%v entities=%v from=%v to=%v query=%q\n", f.Apps, f.Entities, f.From, f.To, f.Query)
}

func (m *printMonitor) AfterEmbedding(dimensions int) {
	fmt.Fprintf(m.w, "Embedded query text (%d dimensions)\n", dimensions)
}

func (m *printMonitor) AfterCompile(query core.ScopedQuery) {
	fmt.Fprintf(m.w, "Query [%s]: %s\n", query.Profile, query.YQL)
}

func (m *printMonitor) AfterSearch(totalCount int, hits []*core.Hit) {
	fmt.Fprintf(m.w, "Received %d hits of %d\n", len(hits), totalCount)
}

func (m *printMonitor) DroppedHit(hit *core.Hit) {
	fmt.Fprintf(m.w, "Dropped %s: access check failed\n", hit.Document.ID)
}

func (m *printMonitor) Finish(result *search.Result) {
	fmt.Fprintf(m.w, "Done: %d hits, %d dropped\n", len(result.Hits), result.Dropped)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
