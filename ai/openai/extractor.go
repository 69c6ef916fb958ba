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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/yqlguard/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const maxParseAttempts = 3

// FilterExtractor implements ai.FilterExtractor using OpenAI-compatible chat APIs.
type FilterExtractor struct {
	client      llms.Model
	maxEntities int
	logger      *slog.Logger
}

// filterResponse matches the JSON object the model is asked to produce.
type filterResponse struct {
	Apps     []string `json:"apps"`
	Entities []string `json:"entities"`
	After    string   `json:"after"`
	Before   string   `json:"before"`
	Query    string   `json:"query"`
}

// newFilterExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newFilterExtractor(config *ai.Config, logger *slog.Logger) (*FilterExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return &FilterExtractor{
		client:      client,
		maxEntities: config.MaxEntities,
		logger:      orDefault(logger).With("component", "openai-extractor"),
	}, nil
}

// NewFilterExtractor creates a new filter extractor using the provided configuration.
//
// Returns ai.FilterExtractor interface to enforce abstraction.
func NewFilterExtractor(config *ai.Config) (ai.FilterExtractor, error) {
	return newFilterExtractor(config, nil)
}

// ExtractFilters asks the model for the filters in text. Apps outside
// ai.KnownApps and unparseable dates are dropped rather than failing the
// request.
func (e *FilterExtractor) ExtractFilters(ctx context.Context, text string, now time.Time) (*ai.ExtractedFilters, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return &ai.ExtractedFilters{}, nil
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, buildSystemPrompt(now)),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}

	var result filterResponse
	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}
		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return &ai.ExtractedFilters{}, nil
		}

		responseText := repairJSON(stripCodeFence(response.Choices[0].Content))
		result = filterResponse{}
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		e.logger.Error("failed to parse extractor response after retries", "err", lastErr)
		return nil, fmt.Errorf("%w: %w", ErrUnparseableResponse, lastErr)
	}

	filters := e.convert(result, now.Location())
	e.logger.Debug("extracted filters",
		"apps", len(filters.Apps),
		"entities", len(filters.Entities),
		"time_range", filters.HasTimeRange())
	return filters, nil
}

func (e *FilterExtractor) convert(r filterResponse, loc *time.Location) *ai.ExtractedFilters {
	filters := &ai.ExtractedFilters{
		Apps:     normalizeApps(r.Apps),
		Entities: normalizeEntities(r.Entities, e.maxEntities),
		Query:    strings.TrimSpace(r.Query),
	}

	from, okFrom := parseBound(r.After, false, loc)
	if !okFrom && r.After != "" {
		e.logger.Warn("ignoring unparseable lower bound", "after", r.After)
	}
	to, okTo := parseBound(r.Before, true, loc)
	if !okTo && r.Before != "" {
		e.logger.Warn("ignoring unparseable upper bound", "before", r.Before)
	}
	if okFrom && okTo && from.After(to) {
		e.logger.Warn("ignoring inverted time range", "after", r.After, "before", r.Before)
		return filters
	}
	if okFrom {
		filters.From = from
	}
	if okTo {
		filters.To = to
	}
	return filters
}
