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

import "time"

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 200 * time.Millisecond
	DefaultSearchPath  = "/search/"
)

// Config holds the connection settings for a Client.
type Config struct {
	// Endpoint is the base URL of the search platform, e.g. http://localhost:8080.
	Endpoint string
	// Path is appended to Endpoint. Defaults to DefaultSearchPath.
	Path string
	// Timeout bounds a single HTTP exchange.
	Timeout time.Duration
	// MaxAttempts bounds the number of sends per query, including the first.
	MaxAttempts int
	// BaseDelay is the first backoff delay; it doubles on every retry.
	BaseDelay time.Duration
}

// DefaultConfig returns a Config with default settings and no endpoint.
func DefaultConfig() *Config {
	return &Config{
		Path:        DefaultSearchPath,
		Timeout:     DefaultTimeout,
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

// Normalize fills unset fields with defaults.
func (c *Config) Normalize() {
	if c.Path == "" {
		c.Path = DefaultSearchPath
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay < 0 {
		c.BaseDelay = DefaultBaseDelay
	}
}

// Validate checks that the configuration can be used.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrEndpointRequired
	}
	if c.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	return nil
}
