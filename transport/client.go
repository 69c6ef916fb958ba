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


package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/yqlguard/core"
)

// Request is one query sent to the search platform.
type Request struct {
	Query core.ScopedQuery
	// Text binds @query for userInput.
	Text string
	// Identity is sent as the requester email.
	Identity string
	Hits     int
	Timeout  time.Duration
	// Inputs bind query tensors by name, sent as input.query(<name>).
	Inputs map[string][]float32
}

// Payload returns the JSON body for r.
func (r Request) Payload() map[string]any {
	payload := map[string]any{"yql": r.Query.YQL}
	if r.Query.Profile != "" {
		payload["ranking.profile"] = r.Query.Profile
	}
	if r.Text != "" {
		payload["query"] = r.Text
	}
	if r.Identity != "" {
		payload["email"] = r.Identity
	}
	if r.Hits > 0 {
		payload["hits"] = r.Hits
	}
	if r.Timeout > 0 {
		payload["timeout"] = strconv.FormatInt(r.Timeout.Milliseconds(), 10) + "ms"
	}
	for name, vector := range r.Inputs {
		payload["input.query("+name+")"] = vector
	}
	return payload
}

// Result holds the decoded hits of one response.
type Result struct {
	TotalCount int
	Hits       []*core.Hit
}

type response struct {
	Root struct {
		Fields struct {
			TotalCount int `json:"totalCount"`
		} `json:"fields"`
		Children []struct {
			ID        string         `json:"id"`
			Relevance float64        `json:"relevance"`
			Source    string         `json:"source"`
			Fields    map[string]any `json:"fields"`
		} `json:"children"`
	} `json:"root"`
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "decoding response: " + e.err.Error() }

func (e *decodeError) Unwrap() error { return e.err }

// Client posts compiled queries to the search platform.
type Client struct {
	config *Config
	http   *http.Client
	url    string
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithHTTPClient replaces the HTTP client. Its timeout is left untouched.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client != nil {
			c.http = client
		}
		return nil
	}
}

// NewClient creates a client for config.
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: &cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		url:    strings.TrimRight(cfg.Endpoint, "/") + "/" + strings.TrimLeft(cfg.Path, "/"),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "transport")
	return c, nil
}

// Search sends req, retrying transient failures.
func (c *Client) Search(ctx context.Context, req Request) (*Result, error) {
	if req.Query.YQL == "" {
		return nil, ErrQueryRequired
	}
	body, err := json.Marshal(req.Payload())
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	var result *Result
	err = RetryWithBackoff(ctx, c.logger, func() error {
		var sendErr error
		result, sendErr = c.send(ctx, body)
		return sendErr
	}, IsRetryable, c.config.MaxAttempts, c.config.BaseDelay)
	if err != nil {
		c.logger.Error("search request failed", "profile", req.Query.Profile, "err", err)
		return nil, err
	}
	c.logger.Debug("search request completed", "profile", req.Query.Profile, "hits", len(result.Hits), "total", result.TotalCount)
	return result, nil
}

func (c *Client) send(ctx context.Context, body []byte) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       payload,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return decodeResult(payload)
}

func decodeResult(payload []byte) (*Result, error) {
	var decoded response
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, &decodeError{err: err}
	}

	result := &Result{
		TotalCount: decoded.Root.Fields.TotalCount,
		Hits:       make([]*core.Hit, 0, len(decoded.Root.Children)),
	}
	for _, child := range decoded.Root.Children {
		doc := &core.Document{
			ID:     child.ID,
			Source: core.Source(child.Source),
			Fields: child.Fields,
		}
		if id, ok := child.Fields["docId"].(string); ok && id != "" {
			doc.ID = id
		}
		if name, ok := child.Fields["sddocname"].(string); ok && doc.Source == "" {
			doc.Source = core.Source(name)
		}
		result.Hits = append(result.Hits, &core.Hit{Document: doc, Relevance: child.Relevance})
	}
	return result, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(header); err == nil {
		return time.Until(when)
	}
	return 0
}
