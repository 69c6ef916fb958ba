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


package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/yqlguard/condition"
	"github.com/poiesic/yqlguard/core"
	"github.com/poiesic/yqlguard/storage"
	"github.com/poiesic/yqlguard/transport"
	"github.com/poiesic/yqlguard/yql"
)

const (
	DefaultBatchSize = 100
	DefaultPageSize  = 100
	DefaultProfile   = "unranked"
)

// Searcher sends a compiled query. *transport.Client implements it.
type Searcher interface {
	Search(ctx context.Context, req transport.Request) (*transport.Result, error)
}

// Fetcher retrieves documents in bulk on behalf of a requester.
type Fetcher struct {
	client         Searcher
	journal        storage.QueryJournal
	pool           *ants.Pool
	batchSize      int
	pageSize       int
	maxPages       int
	profile        string
	timeout        time.Duration
	verify         bool
	progress       io.Writer
	reportInterval int
	logger         *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher) error

// WithPoolSize sets the number of batches fetched concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(f *Fetcher) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if f.pool != nil {
			f.pool.Release()
		}
		f.pool = pool
		return nil
	}
}

// WithBatchSize sets the number of ids per query.
func WithBatchSize(size int) Option {
	return func(f *Fetcher) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		f.batchSize = size
		return nil
	}
}

// WithPageSize sets the number of hits per page in FetchAll.
func WithPageSize(size int) Option {
	return func(f *Fetcher) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		f.pageSize = size
		return nil
	}
}

// WithMaxPages stops FetchAll after n pages. Zero means no limit.
func WithMaxPages(n int) Option {
	return func(f *Fetcher) error {
		if err := core.ValidateNonNegative("maxPages", n); err != nil {
			return err
		}
		f.maxPages = n
		return nil
	}
}

// WithProfile sets the ranking profile sent with every query.
func WithProfile(profile string) Option {
	return func(f *Fetcher) error {
		if err := core.ValidateProfileName(profile); err != nil {
			return err
		}
		f.profile = profile
		return nil
	}
}

// WithTimeout sets the server-side time budget of every query.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) error {
		f.timeout = d
		return nil
	}
}

// WithVerification re-checks every returned document against the
// requester's access-control predicate and drops the ones that fail.
func WithVerification(verify bool) Option {
	return func(f *Fetcher) error {
		f.verify = verify
		return nil
	}
}

// WithJournal records every query sent.
func WithJournal(journal storage.QueryJournal) Option {
	return func(f *Fetcher) error {
		f.journal = journal
		return nil
	}
}

// WithProgress reports fetched document counts to w every interval
// documents. An interval below 1 keeps the configured one.
func WithProgress(w io.Writer, interval int) Option {
	return func(f *Fetcher) error {
		f.progress = w
		if interval > 0 {
			f.reportInterval = interval
		}
		return nil
	}
}

// WithReportInterval sets how many documents pass between progress reports.
// Default is DefaultReportInterval.
func WithReportInterval(n int) Option {
	return func(f *Fetcher) error {
		if n < 1 {
			return ErrInvalidReportInterval
		}
		f.reportInterval = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
		return nil
	}
}

// NewFetcher creates a fetcher sending queries through client.
func NewFetcher(client Searcher, opts ...Option) (*Fetcher, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	f := &Fetcher{
		client:    client,
		pool:      pool,
		batchSize: DefaultBatchSize,
		pageSize:  DefaultPageSize,
		profile:   DefaultProfile,
		logger:    slog.Default(),

		reportInterval: DefaultReportInterval,
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			f.Release()
			return nil, err
		}
	}
	f.logger = f.logger.With("component", "fetch")
	return f, nil
}

// Release releases the worker pool. The fetcher should not be used after
// calling Release.
func (f *Fetcher) Release() {
	if f.pool != nil {
		f.pool.Release()
	}
}

// FetchByIDs returns the documents with the given ids that identity may see
// in sources, in the order of ids. Unknown ids are skipped and duplicates
// are fetched once.
func (f *Fetcher) FetchByIDs(ctx context.Context, identity string, sources []core.Source, ids []string) ([]*core.Document, error) {
	ids = unique(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	batches := chunk(ids, f.batchSize)

	var tracker *ProgressTracker
	if f.progress != nil {
		tracker = NewProgressTracker(f.progress, len(ids), f.reportInterval)
		tracker.Start()
		defer tracker.Finish()
	}

	results := make([][]*core.Document, len(batches))
	errs := make([]error, len(batches))
	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		err := f.pool.Submit(func() {
			defer wg.Done()
			docs, err := f.fetchBatch(ctx, identity, sources, batch)
			results[i], errs[i] = docs, err
			if tracker != nil {
				tracker.Increment(len(docs))
			}
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submitting batch %d: %w", i, err)
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		f.logger.Error("error fetching documents", "ids", len(ids), "batches", len(batches), "err", err)
		return nil, err
	}

	byID := make(map[string]*core.Document, len(ids))
	for _, docs := range results {
		for _, doc := range docs {
			byID[doc.ID] = doc
		}
	}
	out := make([]*core.Document, 0, len(byID))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			out = append(out, doc)
		}
	}
	f.logger.Debug("fetched documents", "requested", len(ids), "found", len(out), "batches", len(batches))
	return out, nil
}

func (f *Fetcher) fetchBatch(ctx context.Context, identity string, sources []core.Source, ids []string) ([]*core.Document, error) {
	scoped, err := yql.New(identity).
		From(sources...).
		IncludeDocIDs(ids...).
		Limit(len(ids)).
		Timeout(f.timeout).
		BuildProfile(f.profile)
	if err != nil {
		return nil, err
	}
	docs, _, err := f.send(ctx, identity, sources, scoped, len(ids))
	return docs, err
}

// FetchAll pages through every document identity may see in sources that
// matches where (nil matches everything), passing each page to fn. It
// returns the number of documents delivered.
func (f *Fetcher) FetchAll(ctx context.Context, identity string, sources []core.Source, where condition.Condition, fn func(page []*core.Document) error) (int, error) {
	var tracker *ProgressTracker
	if f.progress != nil {
		tracker = NewProgressTracker(f.progress, 0, f.reportInterval)
		tracker.Start()
		defer tracker.Finish()
	}

	total := 0
	for page := 0; f.maxPages == 0 || page < f.maxPages; page++ {
		builder := yql.New(identity).
			From(sources...).
			Limit(f.pageSize).
			Offset(page * f.pageSize).
			Timeout(f.timeout).
			OrderBy(yql.DocIDField, core.Ascending)
		if where != nil {
			builder.Where(where)
		}
		scoped, err := builder.BuildProfile(f.profile)
		if err != nil {
			return total, err
		}

		docs, returned, err := f.send(ctx, identity, sources, scoped, f.pageSize)
		if err != nil {
			return total, err
		}
		if len(docs) > 0 {
			if err := fn(docs); err != nil {
				return total, err
			}
			total += len(docs)
			if tracker != nil {
				tracker.Increment(len(docs))
			}
		}
		if returned < f.pageSize {
			break
		}
	}
	return total, nil
}

// send also returns how many hits came back before verification, which
// decides whether another page exists.
func (f *Fetcher) send(ctx context.Context, identity string, sources []core.Source, scoped core.ScopedQuery, hits int) ([]*core.Document, int, error) {
	f.record(ctx, identity, sources, scoped)
	result, err := f.client.Search(ctx, transport.Request{
		Query:    scoped,
		Identity: identity,
		Hits:     hits,
		Timeout:  f.timeout,
	})
	if err != nil {
		return nil, 0, err
	}
	docs := make([]*core.Document, 0, len(result.Hits))
	for _, hit := range result.Hits {
		docs = append(docs, hit.Document)
	}
	checked, err := f.check(identity, sources, docs)
	return checked, len(result.Hits), err
}

// check drops documents that fail the access-control predicate when
// verification is enabled.
func (f *Fetcher) check(identity string, sources []core.Source, docs []*core.Document) ([]*core.Document, error) {
	if !f.verify || len(docs) == 0 {
		return docs, nil
	}
	policy, err := condition.NewPolicy(identity, sources)
	if err != nil {
		return nil, err
	}
	predicate := policy.Condition()
	kept := docs[:0]
	for _, doc := range docs {
		ok, err := condition.Matches(predicate, doc, identity)
		if err != nil {
			return nil, err
		}
		if !ok {
			f.logger.Warn("dropping document that fails access check", "doc", doc.ID, "identity", identity, "access", policy.Access())
			continue
		}
		kept = append(kept, doc)
	}
	return kept, nil
}

func (f *Fetcher) record(ctx context.Context, identity string, sources []core.Source, scoped core.ScopedQuery) {
	if f.journal == nil {
		return
	}
	if _, err := f.journal.Record(ctx, identity, sources, scoped); err != nil {
		f.logger.Warn("error recording query", "err", err)
	}
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func chunk(ids []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}
