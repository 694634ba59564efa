package estimate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a fake implementation of schema.Clock with a settable time.
type fakeClock struct {
	now time.Time
}

func (fc *fakeClock) Now() time.Time {
	return fc.now
}

func (fc *fakeClock) Advance(d time.Duration) {
	fc.now = fc.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// TestEstimate_ImagePrior tests the image model before any sample exists.
func TestEstimate_ImagePrior(t *testing.T) {
	t.Parallel()

	e := NewHandler(newFakeClock(), 30*time.Second)

	estimate := e.Estimate(Input{PendingImages: 4})

	require.True(t, estimate.Valid)
	assert.Equal(t, 30*time.Second, estimate.Average)
	assert.Equal(t, 2*time.Minute, estimate.Remaining)
}

// TestEstimate_ImageSamples tests the image model over recorded samples.
func TestEstimate_ImageSamples(t *testing.T) {
	t.Parallel()

	e := NewHandler(newFakeClock(), 30*time.Second)

	e.RecordImage(10 * time.Second)
	e.RecordImage(20 * time.Second)
	e.RecordImage(30 * time.Second)

	estimate := e.Estimate(Input{PendingImages: 2})

	require.True(t, estimate.Valid)
	assert.Equal(t, 20*time.Second, estimate.Average)
	assert.Equal(t, 40*time.Second, estimate.Remaining)
}

// TestEstimate_SequenceNoSamples tests that the sequence model stays invalid
// without any completed or in-progress frame.
func TestEstimate_SequenceNoSamples(t *testing.T) {
	t.Parallel()

	e := NewHandler(newFakeClock(), 30*time.Second)

	estimate := e.Estimate(Input{SequenceActive: true, FramesRemaining: 100})

	assert.False(t, estimate.Valid)
	assert.Equal(t, "Estimating...", e.Status(Input{SequenceActive: true, FramesRemaining: 100}))
}

// TestEstimate_SequenceWithLive tests the sequence model including the live
// measurement of the in-progress frame.
func TestEstimate_SequenceWithLive(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	e := NewHandler(clock, 30*time.Second)

	e.RecordFrame(1 * time.Second)
	e.RecordFrame(1 * time.Second)
	e.RecordFrame(1 * time.Second)

	e.UnitStarted()
	clock.Advance(1 * time.Second)

	estimate := e.Estimate(Input{SequenceActive: true, FramesRemaining: 75})

	require.True(t, estimate.Valid)
	assert.Equal(t, 1*time.Second, estimate.Average)
	assert.Equal(t, 75*time.Second, estimate.Remaining)
}

// TestFinishUnit_Success tests ending a live measurement.
func TestFinishUnit_Success(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	e := NewHandler(clock, 30*time.Second)

	_, ok := e.FinishUnit()
	assert.False(t, ok)

	e.UnitStarted()
	clock.Advance(5 * time.Second)

	elapsed, ok := e.FinishUnit()
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, elapsed)

	_, ok = e.FinishUnit()
	assert.False(t, ok)
}

// TestDiscardLive_Success tests that a discarded measurement never enters an
// average.
func TestDiscardLive_Success(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	e := NewHandler(clock, 30*time.Second)

	e.RecordFrame(2 * time.Second)

	e.UnitStarted()
	clock.Advance(1 * time.Hour)
	e.DiscardLive()

	estimate := e.Estimate(Input{SequenceActive: true, FramesRemaining: 10})

	require.True(t, estimate.Valid)
	assert.Equal(t, 2*time.Second, estimate.Average)

	_, ok := e.FinishUnit()
	assert.False(t, ok)
}

// TestReset_Success tests dropping all history between runs.
func TestReset_Success(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	e := NewHandler(clock, 30*time.Second)

	e.RecordImage(10 * time.Second)
	e.RecordFrame(10 * time.Second)
	e.UnitStarted()

	e.Reset()

	estimate := e.Estimate(Input{SequenceActive: true, FramesRemaining: 10})
	assert.False(t, estimate.Valid)

	estimate = e.Estimate(Input{PendingImages: 1})
	require.True(t, estimate.Valid)
	assert.Equal(t, 30*time.Second, estimate.Average)
}

// TestStatus_Success tests the human-readable projection rendering.
func TestStatus_Success(t *testing.T) {
	t.Parallel()

	e := NewHandler(newFakeClock(), 30*time.Second)

	status := e.Status(Input{PendingImages: 2})

	assert.Contains(t, status, "left")
	assert.Contains(t, status, "avg 30s per unit")
}
