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


package openai

import (
	"log/slog"

	"github.com/poiesic/yqlguard/ai"
)

// Provider implements ai.AIProvider using OpenAI-compatible services.
// It manages embedder and filter extractor instances.
type Provider struct {
	config    *ai.Config
	embedder  *Embedder
	extractor *FilterExtractor
	logger    *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger shared by the provider and its services.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config, opts ...Option) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{config: config}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = orDefault(p.logger)

	embedder, err := newEmbedder(config, p.logger)
	if err != nil {
		return nil, err
	}
	extractor, err := newFilterExtractor(config, p.logger)
	if err != nil {
		return nil, err
	}

	p.embedder = embedder
	p.extractor = extractor
	p.logger = p.logger.With("component", "openai-provider")
	return p, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// FilterExtractor returns the filter extraction service.
func (p *Provider) FilterExtractor() ai.FilterExtractor {
	return p.extractor
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
