// Package estimate implements the remaining-time estimator for a render run.
// It keeps a rolling history of completed unit durations and projects the
// remaining time with one of two models, selected by the kind of the
// currently rendering job.
package estimate

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"renderq/internal/schema"
)

// Input carries the queue-side figures an estimate is computed from.
type Input struct {
	// SequenceActive selects the per-frame model over the per-image model.
	SequenceActive bool

	// FramesRemaining is the number of frames left in the current
	// sequence job.
	FramesRemaining int

	// PendingImages is the number of enabled image jobs still awaiting
	// rendering, the current one included.
	PendingImages int
}

// Estimate is one computed remaining-time projection. It is meant to be
// passed by value.
type Estimate struct {
	Average   time.Duration
	Remaining time.Duration
	Valid     bool
}

// Handler is the principal implementation of the run estimator.
type Handler struct {
	sync.RWMutex

	clock      schema.Clock
	imagePrior time.Duration

	imageSamples []time.Duration
	frameSamples []time.Duration

	liveStart  time.Time
	liveActive bool
}

// NewHandler returns a pointer to a new estimator [Handler]. The imagePrior
// is the assumed per-image duration used before any image sample exists.
func NewHandler(clock schema.Clock, imagePrior time.Duration) *Handler {
	return &Handler{
		clock:      clock,
		imagePrior: imagePrior,
	}
}

// Reset drops all recorded samples and any live measurement. Called at the
// start of every run.
func (e *Handler) Reset() {
	e.Lock()
	defer e.Unlock()

	e.imageSamples = nil
	e.frameSamples = nil
	e.liveActive = false
}

// UnitStarted begins the live elapsed-time measurement of one unit.
func (e *Handler) UnitStarted() {
	e.Lock()
	defer e.Unlock()

	e.liveStart = e.clock.Now()
	e.liveActive = true
}

// DiscardLive drops the live measurement without recording it. Called on
// pause, so a held unit never skews the rolling average.
func (e *Handler) DiscardLive() {
	e.Lock()
	defer e.Unlock()

	e.liveActive = false
}

// FinishUnit ends the live measurement and returns the elapsed duration of
// the unit. Returns false when no measurement was running.
func (e *Handler) FinishUnit() (time.Duration, bool) {
	e.Lock()
	defer e.Unlock()

	if !e.liveActive {
		return 0, false
	}
	e.liveActive = false

	return e.clock.Now().Sub(e.liveStart), true
}

// RecordImage adds a completed image-job duration to the history.
func (e *Handler) RecordImage(elapsed time.Duration) {
	e.Lock()
	defer e.Unlock()

	e.imageSamples = append(e.imageSamples, elapsed)
}

// RecordFrame adds a completed sequence-frame duration to the history.
func (e *Handler) RecordFrame(elapsed time.Duration) {
	e.Lock()
	defer e.Unlock()

	e.frameSamples = append(e.frameSamples, elapsed)
}

// Estimate computes the remaining-time projection for the given [Input].
//
// Sequence model: the average frame duration is the mean over all completed
// frame samples plus the live elapsed time of the in-progress frame, so the
// projection degrades gracefully on a long-running frame. Image model: the
// mean over all completed image samples, or the configured prior when no
// sample exists yet.
func (e *Handler) Estimate(in Input) Estimate {
	e.RLock()
	defer e.RUnlock()

	if in.SequenceActive {
		sum := time.Duration(0)
		count := len(e.frameSamples)

		for _, sample := range e.frameSamples {
			sum += sample
		}

		if e.liveActive {
			sum += e.clock.Now().Sub(e.liveStart)
			count++
		}

		if count == 0 {
			return Estimate{}
		}

		average := sum / time.Duration(count)

		return Estimate{
			Average:   average,
			Remaining: average * time.Duration(in.FramesRemaining),
			Valid:     true,
		}
	}

	average := e.imagePrior
	if len(e.imageSamples) > 0 {
		sum := time.Duration(0)
		for _, sample := range e.imageSamples {
			sum += sample
		}
		average = sum / time.Duration(len(e.imageSamples))
	}

	return Estimate{
		Average:   average,
		Remaining: average * time.Duration(in.PendingImages),
		Valid:     true,
	}
}

// Status renders the projection for the given [Input] as a human-readable
// status string.
func (e *Handler) Status(in Input) string {
	estimate := e.Estimate(in)
	if !estimate.Valid {
		return "Estimating..."
	}

	now := e.clock.Now()
	remaining := humanize.RelTime(now.Add(estimate.Remaining), now, "", "left")

	return fmt.Sprintf("%s (avg %s per unit)", remaining, estimate.Average.Round(time.Second))
}
