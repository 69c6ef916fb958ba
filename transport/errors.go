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
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrEndpointRequired is returned when no endpoint is configured.
	ErrEndpointRequired = errors.New("endpoint required")

	// ErrInvalidMaxAttempts is returned when the attempt bound is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrQueryRequired is returned when a request carries no compiled query.
	ErrQueryRequired = errors.New("compiled query required")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       []byte
	// RetryAfter is the delay hinted by a Retry-After header, if any.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("search platform: status %d: %s", e.StatusCode, truncate(string(e.Body), 256))
	}
	return fmt.Sprintf("search platform: status %d", e.StatusCode)
}

// Unwrap maps 404 onto ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Retryable reports whether the request may succeed if sent again.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
