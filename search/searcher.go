package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/yqlguard/ai"
	"github.com/poiesic/yqlguard/condition"
	"github.com/poiesic/yqlguard/core"
	"github.com/poiesic/yqlguard/storage"
	"github.com/poiesic/yqlguard/transport"
	"github.com/poiesic/yqlguard/yql"
)

const (
	DefaultHits        = 10
	DefaultTargetHits  = 100
	DefaultProfile     = "hybrid"
	DefaultQueryParam  = "query"
	DefaultVectorField = "chunk_embeddings"
	DefaultVectorInput = "e"
	DefaultTimeField   = "timestamp"
)

// Client sends a compiled query. *transport.Client implements it.
type Client interface {
	Search(ctx context.Context, req transport.Request) (*transport.Result, error)
}

// Request describes a search on behalf of Identity over Sources.
type Request struct {
	Identity string
	Sources  []core.Source

	// Text is matched with userInput. Empty text with no vector search
	// lists every visible document that passes the filters.
	Text string
	// Vector adds a nearestNeighbor match over the embedding of Text.
	Vector bool
	// ExtractFilters reads app, entity and time filters out of Text before
	// searching. Explicit filters below take precedence.
	ExtractFilters bool

	Apps     []string
	Entities []string
	// After and Before bound the document timestamp; zero is unbounded.
	After  time.Time
	Before time.Time

	ExcludeIDs []string
	// Where is an additional condition ANDed with everything else.
	Where condition.Condition

	// Hits defaults to DefaultHits.
	Hits    int
	Offset  int
	Profile string
	Timeout time.Duration
}

// Result is the outcome of a search.
type Result struct {
	Query core.ScopedQuery
	// Filters are the extracted filters, nil when extraction was not requested.
	Filters    *ai.ExtractedFilters
	TotalCount int
	Hits       []*core.Hit
	// Dropped counts hits removed by verification.
	Dropped int
}

// Searcher runs permission-checked searches.
type Searcher struct {
	client      Client
	journal     storage.QueryJournal
	embedder    ai.Embedder
	extractor   ai.FilterExtractor
	clock       func() time.Time
	profile     string
	targetHits  int
	vectorField string
	vectorInput string
	timeField   string
	boostField  string
	boost       float64
	verify      bool
	logger      *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithJournal records every query sent.
func WithJournal(journal storage.QueryJournal) Option {
	return func(s *Searcher) error {
		s.journal = journal
		return nil
	}
}

// WithProvider uses the embedder and filter extractor of provider.
func WithProvider(provider ai.AIProvider) Option {
	return func(s *Searcher) error {
		if provider == nil {
			return nil
		}
		s.embedder = provider.Embedder()
		s.extractor = provider.FilterExtractor()
		return nil
	}
}

// WithEmbedder sets the embedder used for vector search.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(s *Searcher) error {
		s.embedder = embedder
		return nil
	}
}

// WithFilterExtractor sets the extractor used when a request asks for it.
func WithFilterExtractor(extractor ai.FilterExtractor) Option {
	return func(s *Searcher) error {
		s.extractor = extractor
		return nil
	}
}

// WithProfile sets the ranking profile used when a request names none.
// Default is DefaultProfile.
func WithProfile(profile string) Option {
	return func(s *Searcher) error {
		if err := core.ValidateProfileName(profile); err != nil {
			return err
		}
		s.profile = profile
		return nil
	}
}

// WithTargetHits sets the candidate bound of the userInput and
// nearestNeighbor primitives. Default is DefaultTargetHits.
func WithTargetHits(n int) Option {
	return func(s *Searcher) error {
		if err := core.ValidateNonNegative("targetHits", n); err != nil {
			return err
		}
		s.targetHits = n
		return nil
	}
}

// WithVectorField sets the tensor attribute and the query input name used by
// vector search.
func WithVectorField(field, input string) Option {
	return func(s *Searcher) error {
		if err := core.ValidateFieldName("vectorField", field); err != nil {
			return err
		}
		if err := core.ValidateParameter("vectorInput", input); err != nil {
			return err
		}
		s.vectorField = field
		s.vectorInput = input
		return nil
	}
}

// WithTimeField sets the attribute the time filters apply to.
// Default is DefaultTimeField.
func WithTimeField(field string) Option {
	return func(s *Searcher) error {
		if err := core.ValidateFieldName("timeField", field); err != nil {
			return err
		}
		s.timeField = field
		return nil
	}
}

// WithVerbatimBoost adds boost to the relevance of hits whose field contains
// every word of the search text, then re-sorts the hits.
func WithVerbatimBoost(field string, boost float64) Option {
	return func(s *Searcher) error {
		if err := core.ValidateFieldName("boostField", field); err != nil {
			return err
		}
		s.boostField = field
		s.boost = boost
		return nil
	}
}

// WithVerification re-checks every hit against the requester's access
// predicate and drops the ones that fail.
func WithVerification(verify bool) Option {
	return func(s *Searcher) error {
		s.verify = verify
		return nil
	}
}

// WithClock sets the time source used to resolve relative dates.
func WithClock(clock func() time.Time) Option {
	return func(s *Searcher) error {
		if clock != nil {
			s.clock = clock
		}
		return nil
	}
}

// NewSearcher creates a new searcher sending queries through client.
func NewSearcher(client Client, opts ...Option) (*Searcher, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	s := &Searcher{
		client:      client,
		clock:       time.Now,
		profile:     DefaultProfile,
		targetHits:  DefaultTargetHits,
		vectorField: DefaultVectorField,
		vectorInput: DefaultVectorInput,
		timeField:   DefaultTimeField,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "search")

	return s, nil
}

// Search runs req and returns the hits the requester may see.
func (s *Searcher) Search(ctx context.Context, req Request) (*Result, error) {
	return s.SearchWithMonitor(ctx, req, nil)
}

// SearchWithMonitor runs req, reporting each stage to monitor.
func (s *Searcher) SearchWithMonitor(ctx context.Context, req Request, monitor SearchMonitor) (*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(req)

	treq, filters, err := s.plan(ctx, req, monitor)
	if err != nil {
		return nil, err
	}
	monitor.AfterCompile(treq.Query)

	s.record(ctx, req, treq.Query)
	response, err := s.client.Search(ctx, treq)
	if err != nil {
		s.logger.Error("error running search", "identity", req.Identity, "err", err)
		return nil, err
	}
	monitor.AfterSearch(response.TotalCount, response.Hits)

	result := &Result{
		Query:      treq.Query,
		Filters:    filters,
		TotalCount: response.TotalCount,
		Hits:       response.Hits,
	}
	if s.verify {
		if err := s.check(req.Identity, req.Sources, result, monitor); err != nil {
			return nil, err
		}
	}
	if s.boostField != "" {
		s.applyBoost(result.Hits, treq.Text)
	}

	s.logger.Debug("search complete",
		"identity", req.Identity,
		"total", result.TotalCount,
		"hits", len(result.Hits),
		"dropped", result.Dropped)
	monitor.Finish(result)
	return result, nil
}

// Compile returns the query req would send, without sending or recording it.
// Filter extraction and embedding still run when requested.
func (s *Searcher) Compile(ctx context.Context, req Request) (transport.Request, error) {
	treq, _, err := s.plan(ctx, req, &noopMonitor{})
	return treq, err
}

func (s *Searcher) plan(ctx context.Context, req Request, monitor SearchMonitor) (transport.Request, *ai.ExtractedFilters, error) {
	text := strings.TrimSpace(req.Text)
	apps := slices.Clone(req.Apps)
	entities := slices.Clone(req.Entities)
	after, before := req.After, req.Before

	var filters *ai.ExtractedFilters
	if req.ExtractFilters && text != "" {
		if s.extractor == nil {
			return transport.Request{}, nil, ErrExtractorRequired
		}
		extracted, err := s.extractor.ExtractFilters(ctx, text, s.clock())
		if err != nil {
			s.logger.Error("error extracting filters", "err", err)
			return transport.Request{}, nil, err
		}
		filters = extracted
		monitor.AfterFilterExtraction(filters)

		apps = union(apps, filters.Apps)
		entities = union(entities, filters.Entities)
		if after.IsZero() {
			after = filters.From
		}
		if before.IsZero() {
			before = filters.To
		}
		if filters.Query != "" {
			text = filters.Query
		}
	}

	var recall []condition.Condition
	var inputs map[string][]float32
	if text != "" {
		freeText, err := condition.NewFreeText(DefaultQueryParam, s.targetHits)
		if err != nil {
			return transport.Request{}, nil, err
		}
		recall = append(recall, freeText)
	}
	if req.Vector {
		if text == "" {
			return transport.Request{}, nil, ErrTextRequired
		}
		if s.embedder == nil {
			return transport.Request{}, nil, ErrEmbedderRequired
		}
		vector, err := s.embedder.EmbedText(ctx, text)
		if err != nil {
			s.logger.Error("error generating embedding for query", "err", err)
			return transport.Request{}, nil, err
		}
		monitor.AfterEmbedding(len(vector))
		nearest, err := condition.NewVectorNearest(s.vectorField, s.vectorInput, s.targetHits)
		if err != nil {
			return transport.Request{}, nil, err
		}
		recall = append(recall, nearest)
		inputs = map[string][]float32{s.vectorInput: vector}
	}

	hits := req.Hits
	if hits == 0 {
		hits = DefaultHits
	}
	profile := req.Profile
	if profile == "" {
		profile = s.profile
	}

	builder := yql.New(req.Identity).
		From(req.Sources...).
		FilterByApp(apps...).
		FilterByEntity(entities...).
		ExcludeDocIDs(req.ExcludeIDs...).
		Limit(hits).
		Timeout(req.Timeout)
	if req.Offset != 0 {
		builder.Offset(req.Offset)
	}
	if len(recall) > 0 {
		builder.WhereOr(recall...)
	}
	if req.Where != nil {
		builder.Filter(req.Where)
	}
	if !after.IsZero() || !before.IsZero() {
		window, err := condition.NewTimeRange(s.timeField, s.timeField, condition.TimeBounds{From: after, To: before})
		if err != nil {
			return transport.Request{}, nil, err
		}
		builder.Filter(window)
	}

	scoped, err := builder.BuildProfile(profile)
	if err != nil {
		return transport.Request{}, nil, err
	}

	return transport.Request{
		Query:    scoped,
		Text:     text,
		Identity: req.Identity,
		Hits:     hits,
		Timeout:  req.Timeout,
		Inputs:   inputs,
	}, filters, nil
}

// check drops hits that fail the access predicate.
func (s *Searcher) check(identity string, sources []core.Source, result *Result, monitor SearchMonitor) error {
	policy, err := condition.NewPolicy(identity, sources)
	if err != nil {
		return err
	}
	predicate := policy.Condition()

	kept := make([]*core.Hit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ok, err := condition.Matches(predicate, hit.Document, identity)
		if err != nil {
			return err
		}
		if !ok {
			s.logger.Warn("dropping hit that fails access check", "doc", hit.Document.ID, "identity", identity, "access", policy.Access())
			monitor.DroppedHit(hit)
			result.Dropped++
			continue
		}
		kept = append(kept, hit)
	}
	result.Hits = kept
	return nil
}

func (s *Searcher) applyBoost(hits []*core.Hit, text string) {
	words := tokenizeAndFilter(text)
	if len(words) == 0 {
		return
	}
	boosted := false
	for _, hit := range hits {
		if verbatimMatch(hit.Document, s.boostField, words) {
			hit.Relevance += s.boost
			boosted = true
		}
	}
	if boosted {
		slices.SortStableFunc(hits, func(a, b *core.Hit) int {
			switch {
			case a.Relevance > b.Relevance:
				return -1
			case a.Relevance < b.Relevance:
				return 1
			}
			return 0
		})
	}
}

func (s *Searcher) record(ctx context.Context, req Request, scoped core.ScopedQuery) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Record(ctx, req.Identity, req.Sources, scoped); err != nil {
		s.logger.Warn("error recording query", "err", err)
	}
}

// union appends the values of extra missing from base, compared case-insensitively.
func union(base, extra []string) []string {
	for _, v := range extra {
		if !slices.ContainsFunc(base, func(b string) bool { return strings.EqualFold(b, v) }) {
			base = append(base, v)
		}
	}
	return base
}
