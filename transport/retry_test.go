package transport

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func always(error) bool { return true }

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return nil
	}

	err := RetryWithBackoff(context.Background(), nil, operation, always, 3, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		if attempts < 3 {
			return &StatusError{StatusCode: http.StatusServiceUnavailable}
		}
		return nil
	}

	err := RetryWithBackoff(context.Background(), nil, operation, IsRetryable, 5, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := &StatusError{StatusCode: http.StatusTooManyRequests}
	operation := func() error {
		attempts++
		return expectedErr
	}

	err := RetryWithBackoff(context.Background(), nil, operation, IsRetryable, 3, time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, expectedErr, err, "should return the last error")
	assert.Equal(t, 3, attempts, "should attempt exactly maxAttempts times")
}

func TestRetryWithBackoff_NotRetryable(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return &StatusError{StatusCode: http.StatusNotFound}
	}

	err := RetryWithBackoff(context.Background(), nil, operation, IsRetryable, 5, time.Millisecond)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, attempts, "client errors are not retried")
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	operation := func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	err := RetryWithBackoff(ctx, nil, operation, always, 10, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestRetryWithBackoff_InvalidMaxAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), nil, func() error { return nil }, always, 0, time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetryWithBackoff_ExponentialDelay(t *testing.T) {
	var times []time.Time
	operation := func() error {
		times = append(times, time.Now())
		return errors.New("error")
	}

	base := 20 * time.Millisecond
	_ = RetryWithBackoff(context.Background(), nil, operation, always, 3, base)
	require.Len(t, times, 3)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), base)
	assert.GreaterOrEqual(t, times[2].Sub(times[1]), 2*base)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &StatusError{StatusCode: 429}, true},
		{"server error", &StatusError{StatusCode: 502}, true},
		{"bad request", &StatusError{StatusCode: 400}, false},
		{"not found", &StatusError{StatusCode: 404}, false},
		{"canceled", context.Canceled, false},
		{"decode", &decodeError{err: errors.New("bad json")}, false},
		{"network", errors.New("connection refused"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
