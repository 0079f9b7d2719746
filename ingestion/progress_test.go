package ingestion

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4)

	tracker.Done(true)
	assert.Empty(t, buf.String(), "nothing is reported before Start")

	tracker.Start()
	tracker.Done(true)
	tracker.Done(false)
	assert.Contains(t, buf.String(), "Progress: 2/4 (50.0%) - 1 failed")

	tracker.Done(true)
	tracker.Done(true)
	tracker.Done(true) // more completions than documents are clamped
	tracker.Finish()

	out := buf.String()
	assert.Contains(t, out, "Progress: 4/4 (100.0%) - 1 failed")
	assert.NotContains(t, out, "5/4")
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Contains(t, out, "documents/s")
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0)
	tracker.Start()
	tracker.Finish()

	assert.Contains(t, buf.String(), "Progress: 0/0 (0.0%)")
}
