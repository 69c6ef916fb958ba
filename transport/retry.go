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
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryWithBackoff runs operation until it succeeds, retryable reports false
// for its error, or maxAttempts is reached. The delay starts at baseDelay and
// doubles after every attempt; a longer server hint replaces it.
// The error from the last attempt is returned.
func RetryWithBackoff(ctx context.Context, logger *slog.Logger, operation func() error, retryable func(error) bool, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("request succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		wait := delay
		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && statusErr.RetryAfter > wait {
			wait = statusErr.RetryAfter
		}
		logger.Warn("request failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "delay", wait, "err", lastErr)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return lastErr
}

// IsRetryable reports whether err is worth another attempt. Rate limiting,
// server errors and transport failures (including per-request timeouts) are
// retried. Client errors, undecodable responses and cancellation are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var decodeErr *decodeError
	return !errors.As(err, &decodeErr)
}
