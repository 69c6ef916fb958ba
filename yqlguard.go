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
// Package yqlguard builds access-controlled search queries and runs them.
//
// The Engine wires the pieces together: a query journal in badger, the AI
// provider for embeddings and filter extraction, and the transport client
// for the search platform. Searchers and fetchers handed out by the Engine
// share all three.
package yqlguard

import (
	"errors"
	"log/slog"

	"github.com/poiesic/yqlguard/ai"
	"github.com/poiesic/yqlguard/ai/openai"
	"github.com/poiesic/yqlguard/fetch"
	"github.com/poiesic/yqlguard/search"
	"github.com/poiesic/yqlguard/storage"
	"github.com/poiesic/yqlguard/storage/badger"
	"github.com/poiesic/yqlguard/transport"
)

type Engine struct {
	backend     *badger.Backend
	journal     storage.QueryJournal
	provider    ai.AIProvider
	client      *transport.Client
	fetchConfig *fetch.Config
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions) error

type engineOptions struct {
	aiConfig        *ai.Config
	transportConfig *transport.Config
	fetchConfig     *fetch.Config
	provider        ai.AIProvider
	inMemory        bool
	logger          *slog.Logger
}

// WithAIConfig sets the configuration of the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) Option {
	return func(o *engineOptions) error {
		o.aiConfig = config
		return nil
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The Engine closes it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *engineOptions) error {
		o.provider = provider
		return nil
	}
}

// WithTransportConfig sets the search platform endpoint and retry policy.
func WithTransportConfig(config *transport.Config) Option {
	return func(o *engineOptions) error {
		if config == nil {
			return transport.ErrEndpointRequired
		}
		o.transportConfig = config
		return nil
	}
}

// WithFetchConfig sets the defaults of the fetchers handed out.
func WithFetchConfig(config *fetch.Config) Option {
	return func(o *engineOptions) error {
		o.fetchConfig = config
		return nil
	}
}

// InMemory keeps the journal in memory; the path is ignored.
func InMemory() Option {
	return func(o *engineOptions) error {
		o.inMemory = true
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewEngine opens the journal at journalPath and connects the AI provider
// and the transport client.
func NewEngine(journalPath string, opts ...Option) (*Engine, error) {
	options := &engineOptions{
		aiConfig:        ai.DefaultConfig(),
		transportConfig: transport.DefaultConfig(),
		fetchConfig:     fetch.DefaultConfig(),
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	logger := options.logger

	client, err := transport.NewClient(options.transportConfig, transport.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(journalPath, options.inMemory, badger.WithBackendLogger(logger))
	if err != nil {
		return nil, err
	}
	journal, err := badger.NewJournal(backend, badger.WithLogger(logger))
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig, openai.WithLogger(logger))
		if err != nil {
			journal.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Engine{
		backend:     backend,
		journal:     journal,
		provider:    provider,
		client:      client,
		fetchConfig: options.fetchConfig,
		logger:      logger.With("component", "engine"),
	}, nil
}

// Close releases the AI provider and the journal.
func (e *Engine) Close() error {
	var errs []error
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := e.journal.Close(); err != nil {
		e.logger.Error("error closing query journal", "err", err)
		errs = append(errs, err)
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Journal returns the query journal.
func (e *Engine) Journal() storage.QueryJournal {
	return e.journal
}

// Client returns the transport client.
func (e *Engine) Client() *transport.Client {
	return e.client
}

// NewSearcher returns a searcher that records to the journal and uses the
// engine's AI provider. opts are applied last.
func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{
		search.WithProvider(e.provider),
		search.WithJournal(e.journal),
		search.WithLogger(e.logger),
	}
	return search.NewSearcher(e.client, append(base, opts...)...)
}

// NewFetcher returns a fetcher configured from the engine's fetch config.
// The caller must Release it. opts are applied last.
func (e *Engine) NewFetcher(opts ...fetch.Option) (*fetch.Fetcher, error) {
	base := e.fetchConfig.Options()
	base = append(base, fetch.WithJournal(e.journal), fetch.WithLogger(e.logger))
	return fetch.NewFetcher(e.client, append(base, opts...)...)
}
