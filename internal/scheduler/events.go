package scheduler

import (
	"log/slog"
	"time"

	"renderq/internal/manifest"
	"renderq/internal/queue"
	"renderq/internal/schema"
)

// OnUnitStart notes that the backend took ownership of a unit. The live
// elapsed-time measurement only starts while actually running, so units
// concluding during a pause never enter the rolling average.
func (s *Handler) OnUnitStart() {
	s.Lock()
	defer s.Unlock()

	if s.phase == PhaseIdle || s.phase == PhaseCancelling || s.current < 0 {
		return
	}

	s.unitInFlight = true

	if s.phase == PhaseRunning {
		s.estimator.UnitStarted()
	}
}

// OnUnitFinished handles one completed unit of the current job. A finished
// image job, or the last frame of a sequence, records its duration, marks the
// job done and advances the run - unless a pause was requested mid-job, which
// holds at job completion without starting the next one. A mid-sequence frame
// only updates progress. Events that no longer match a live current job are
// stale and discarded.
func (s *Handler) OnUnitFinished(ev schema.UnitFinishedEvent) {
	s.Lock()
	defer s.Unlock()

	if s.phase == PhaseIdle || s.phase == PhaseCancelling || s.current < 0 {
		return
	}

	job, ok := s.queueManager.JobAt(s.current)
	if !ok || job.Status.IsTerminal() {
		return
	}

	s.unitInFlight = false
	elapsed, measured := s.estimator.FinishUnit()

	if job.Kind == queue.KindImage || ev.LastInSequence {
		if measured {
			if job.Kind == queue.KindImage {
				s.estimator.RecordImage(elapsed)
			} else {
				s.estimator.RecordFrame(elapsed)
			}
		}

		s.recordOutputLocked(job, ev, elapsed)
		s.queueManager.SetStatus(s.current, queue.StatusDone)

		if s.phase != PhasePaused {
			s.advanceLocked()
		}

		return
	}

	if measured {
		s.estimator.RecordFrame(elapsed)
	}

	s.recordOutputLocked(job, ev, elapsed)
	s.queueManager.SetFrameProgress(s.current, ev.Frame, ev.TotalFrames)
}

// OnAborted marks the current job cancelled. The run continues with the next
// eligible job unless it was explicitly paused: the skip-on-error policy
// already commits to one bad job never halting the queue, so an aborted unit
// follows the same rule. A run in teardown ignores the event.
func (s *Handler) OnAborted() {
	s.Lock()
	defer s.Unlock()

	if s.phase == PhaseIdle || s.phase == PhaseCancelling || s.current < 0 {
		return
	}

	job, ok := s.queueManager.JobAt(s.current)
	if !ok || job.Status.IsTerminal() {
		return
	}

	s.unitInFlight = false
	s.estimator.DiscardLive()

	s.queueManager.SetStatus(s.current, queue.StatusCancelled)

	slog.Warn("Backend aborted the current job.",
		"scene", job.Scene,
		"camera", job.Camera,
	)

	if s.phase == PhaseRunning {
		s.advanceLocked()
	}
}

// recordOutputLocked appends one finished unit to the run manifest. Failures
// are absorbed, a broken manifest never disturbs a run.
func (s *Handler) recordOutputLocked(job queue.Job, ev schema.UnitFinishedEvent, elapsed time.Duration) {
	record := manifest.Record{
		JobID:      job.ID,
		Scene:      job.Scene,
		Camera:     job.Camera,
		OutputPath: ev.OutputPath,
		Elapsed:    elapsed,
		FinishedAt: s.clock.Now(),
	}

	if err := s.manifestHandler.Record(record); err != nil {
		slog.Warn("Failed to record output in manifest.",
			"err", err,
			"path", ev.OutputPath,
		)
	}
}
