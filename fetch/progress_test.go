package fetch

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Increment(5)
	assert.Zero(t, tracker.Current(), "increments before Start are ignored")

	tracker.Start()
	tracker.Increment(5)
	assert.Empty(t, buf.String(), "below report interval")

	tracker.Increment(5)
	assert.Contains(t, buf.String(), "Fetched: 10/100 (10.0%)")

	tracker.Increment(500)
	assert.Equal(t, 100, tracker.Current(), "capped at total")

	tracker.Finish()
	assert.Contains(t, buf.String(), "Fetched: 100/100 (100.0%)")
	assert.Zero(t, tracker.Elapsed())
}

func TestProgressTrackerUnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0, 1)
	tracker.Start()
	tracker.Increment(3)
	assert.Contains(t, buf.String(), "Fetched: 3 -")
	assert.Equal(t, 3, tracker.Current())
}
