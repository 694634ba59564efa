// Package scheduler implements the render run state machine. A single
// [Handler] owns the run lifecycle: it walks the queue job by job, hands each
// one to the render backend, reacts to the backend's lifecycle events and
// tears the run down exactly once on every exit path.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"renderq/internal/estimate"
	"renderq/internal/manifest"
	"renderq/internal/pathing"
	"renderq/internal/queue"
	"renderq/internal/schema"
)

// DefaultTickInterval is the default interval of the estimate recomputation
// timer.
const DefaultTickInterval = 500 * time.Millisecond

// Phase is the lifecycle state of the [Handler].
type Phase int

const (
	// PhaseIdle means no run is active. Initial and terminal state.
	PhaseIdle Phase = iota

	// PhaseRunning means a run is actively advancing through the queue.
	PhaseRunning

	// PhasePaused means a run is held; the in-flight unit may still
	// conclude, but no next job is started.
	PhasePaused

	// PhaseCancelling means a run is being torn down on user request.
	PhaseCancelling
)

// String returns the display name of a [Phase].
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseRunning:
		return "Running"
	case PhasePaused:
		return "Paused"
	case PhaseCancelling:
		return "Cancelling"
	default:
		return "Unknown"
	}
}

// Snapshot is a read-only view of the scheduler and queue state for display
// surfaces. It is meant to be passed by value.
type Snapshot struct {
	Jobs       []queue.Job
	Current    int
	Phase      Phase
	ETAStatus  string
	Refreshing bool
}

// savedContext is the pre-run workspace snapshot, restored on every exit
// path of a run.
type savedContext struct {
	activeScene string
	outputPath  string
	valid       bool
}

// Handler is the principal implementation of the run [Handler]. It
// exclusively owns the run state and the backend event subscription for the
// lifetime of one run.
type Handler struct {
	sync.RWMutex

	queueManager    *queue.Manager
	provider        schema.SceneProvider
	renderBackend   schema.RenderBackend
	events          schema.EventSource
	workspace       schema.Workspace
	clock           schema.Clock
	timer           schema.Timer
	estimator       *estimate.Handler
	pathingHandler  *pathing.Handler
	manifestHandler *manifest.Handler
	tickInterval    time.Duration

	phase         Phase
	current       int
	unitInFlight  bool
	saved         savedContext
	releaseEvents func()
	stopTick      func()
	cleanupDone   bool
	runStart      time.Time
	etaStatus     string
}

// NewHandler returns a pointer to a new run [Handler].
func NewHandler(
	queueManager *queue.Manager,
	provider schema.SceneProvider,
	renderBackend schema.RenderBackend,
	events schema.EventSource,
	workspace schema.Workspace,
	clock schema.Clock,
	timer schema.Timer,
	estimator *estimate.Handler,
	pathingHandler *pathing.Handler,
	manifestHandler *manifest.Handler,
) *Handler {
	return &Handler{
		queueManager:    queueManager,
		provider:        provider,
		renderBackend:   renderBackend,
		events:          events,
		workspace:       workspace,
		clock:           clock,
		timer:           timer,
		estimator:       estimator,
		pathingHandler:  pathingHandler,
		manifestHandler: manifestHandler,
		tickInterval:    DefaultTickInterval,
		phase:           PhaseIdle,
		current:         -1,
	}
}

// SetTickInterval overrides the estimate recomputation interval. Only
// effective while no run is active.
func (s *Handler) SetTickInterval(interval time.Duration) {
	s.Lock()
	defer s.Unlock()

	if s.phase != PhaseIdle || interval <= 0 {
		return
	}

	s.tickInterval = interval
}

// Start begins a new render run. Valid only from [PhaseIdle]; fails with
// [ErrEmptyQueue] when no enabled job exists. On success the workspace is
// snapshotted, the backend subscription acquired, the duration history
// cleared and the run advanced onto its first job.
func (s *Handler) Start() error {
	s.Lock()
	defer s.Unlock()

	if s.phase != PhaseIdle {
		return ErrNotIdle
	}

	if _, ok := s.queueManager.NextEligibleFrom(0); !ok {
		return ErrEmptyQueue
	}

	if err := s.queueManager.BeginRun(); err != nil {
		return fmt.Errorf("(scheduler) %w", err)
	}

	if err := s.pathingHandler.EnsureCapacity(); err != nil {
		s.queueManager.EndRun()

		return fmt.Errorf("(scheduler) %w", err)
	}

	s.saved = savedContext{
		activeScene: s.workspace.ActiveScene(),
		outputPath:  s.workspace.OutputPath(),
		valid:       true,
	}

	s.releaseEvents = s.events.Subscribe(s)
	s.stopTick = s.timer.Every(s.tickInterval, s.Tick)

	s.estimator.Reset()
	s.manifestHandler.Reset()

	s.runStart = s.clock.Now()
	s.cleanupDone = false
	s.etaStatus = "Estimating..."
	s.unitInFlight = false

	s.phase = PhaseRunning
	s.current = -1
	s.queueManager.SetCurrent(-1)

	slog.Info("Render run started.", "jobs", s.queueManager.Len())

	s.advanceLocked()

	return nil
}

// Pause holds the run. Valid only from [PhaseRunning]. The in-flight unit is
// left with the backend; the live elapsed-time sample is discarded so a held
// unit never skews the rolling average.
func (s *Handler) Pause() error {
	s.Lock()
	defer s.Unlock()

	if s.phase != PhaseRunning {
		return ErrNotRunning
	}

	s.phase = PhasePaused

	if job, ok := s.queueManager.JobAt(s.current); ok && !job.Status.IsTerminal() {
		s.queueManager.SetStatus(s.current, queue.StatusPaused)
	}

	s.estimator.DiscardLive()

	slog.Info("Render run paused.")

	return nil
}

// Resume continues a held run with the same current job. Valid only from
// [PhasePaused]. A job that concluded while paused advances the run; a
// sequence job with no unit in flight continues at the backend's own
// continuation point; an unfinished image job starts over.
func (s *Handler) Resume() error {
	s.Lock()
	defer s.Unlock()

	if s.phase != PhasePaused {
		return ErrNotPaused
	}

	s.phase = PhaseRunning

	slog.Info("Render run resumed.")

	job, ok := s.queueManager.JobAt(s.current)
	if !ok || job.Status.IsTerminal() {
		s.advanceLocked()

		return nil
	}

	if s.unitInFlight {
		s.queueManager.SetStatus(s.current, queue.StatusRunning)

		return nil
	}

	if !s.issueLocked(s.current) {
		s.advanceLocked()
	}

	return nil
}

// Cancel unconditionally tears the run down. Valid from any non-idle phase;
// always reaches [PhaseIdle] with the workspace restored and all per-run
// resources released.
func (s *Handler) Cancel() error {
	s.Lock()
	defer s.Unlock()

	if s.phase == PhaseIdle {
		return ErrNotActive
	}

	s.phase = PhaseCancelling

	s.renderBackend.Cancel()

	if job, ok := s.queueManager.JobAt(s.current); ok && !job.Status.IsTerminal() {
		s.queueManager.SetStatus(s.current, queue.StatusCancelled)
	}

	s.cleanupLocked()
	s.phase = PhaseIdle

	slog.Info("Render run cancelled.")

	return nil
}

// Tick recomputes the displayed remaining-time estimate. It is driven by the
// run timer and performs no work outside of [PhaseRunning].
func (s *Handler) Tick() {
	s.Lock()
	defer s.Unlock()

	if s.phase != PhaseRunning {
		return
	}

	job, ok := s.queueManager.JobAt(s.current)
	if !ok {
		return
	}

	var in estimate.Input
	if job.Kind == queue.KindSequence {
		in.SequenceActive = true
		in.FramesRemaining = job.TotalFrames() - job.FramesDone
	} else {
		in.PendingImages = s.queueManager.PendingImageCount(s.current)
	}

	s.etaStatus = s.estimator.Status(in)
}

// Snapshot returns a read-only view of the current scheduler and queue state.
func (s *Handler) Snapshot() Snapshot {
	s.RLock()
	defer s.RUnlock()

	return Snapshot{
		Jobs:       s.queueManager.Snapshot(),
		Current:    s.current,
		Phase:      s.phase,
		ETAStatus:  s.etaStatus,
		Refreshing: s.queueManager.IsRefreshing(),
	}
}

// advanceLocked walks the queue to the next eligible job and hands it to the
// backend. Jobs that fail to resolve or start are marked errored and skipped
// in a bounded loop, a single bad entry never halts the run. A run that
// exhausts the queue concludes here. No-op while paused, so a pause requested
// between event delivery and advancement is observed.
func (s *Handler) advanceLocked() {
	if s.phase == PhasePaused {
		return
	}

	for {
		next, ok := s.queueManager.NextEligibleFrom(s.current + 1)
		if !ok {
			s.finishRunLocked()

			return
		}

		s.current = next
		s.queueManager.SetCurrent(next)

		if s.issueLocked(next) {
			return
		}
	}
}

// issueLocked resolves the job at index and hands it to the backend,
// returning whether the backend now owns it. Failures mark the job errored.
func (s *Handler) issueLocked(index int) bool {
	job, ok := s.queueManager.JobAt(index)
	if !ok {
		return false
	}

	target, err := s.provider.Resolve(job.Scene, job.Camera)
	if err != nil {
		slog.Warn("Skipped job: scene/camera did not resolve.",
			"scene", job.Scene,
			"camera", job.Camera,
			"err", err,
		)
		s.queueManager.SetError(index, "scene/camera not found")

		return false
	}

	s.workspace.SetActiveScene(job.Scene)

	if job.Kind == queue.KindImage {
		path := s.pathingHandler.ImagePath(job.Scene, job.Camera)
		s.workspace.SetOutputPath(path)
		err = s.renderBackend.StartImage(target, path)
	} else {
		var dir string
		dir, err = s.pathingHandler.SequenceDir(job.Scene, job.Camera)
		if err == nil {
			s.workspace.SetOutputPath(dir)
			err = s.renderBackend.StartSequence(target, dir)
		}
	}

	if err != nil {
		slog.Warn("Skipped job: backend refused it.",
			"scene", job.Scene,
			"camera", job.Camera,
			"err", err,
		)
		s.queueManager.SetError(index, err.Error())

		return false
	}

	s.queueManager.SetStatus(index, queue.StatusRunning)

	return true
}

// finishRunLocked concludes a run whose queue is exhausted.
func (s *Handler) finishRunLocked() {
	elapsed := s.clock.Now().Sub(s.runStart)

	s.cleanupLocked()
	s.phase = PhaseIdle

	slog.Info("Render queue complete.", "elapsed", elapsed.Round(time.Second))
}

// cleanupLocked tears down all per-run resources: the backend subscription,
// the estimate timer and the workspace snapshot. Every step is a safe no-op
// when already done, so repeated triggers cannot double-release. Executes
// exactly once per run regardless of which exit path triggered it.
func (s *Handler) cleanupLocked() {
	if s.cleanupDone {
		return
	}

	if s.releaseEvents != nil {
		s.releaseEvents()
		s.releaseEvents = nil
	}

	if s.stopTick != nil {
		s.stopTick()
		s.stopTick = nil
	}

	if s.saved.valid {
		s.workspace.SetActiveScene(s.saved.activeScene)
		s.workspace.SetOutputPath(s.saved.outputPath)
		s.saved = savedContext{}
	}

	if err := s.manifestHandler.Flush(s.pathingHandler.ManifestPath()); err != nil {
		slog.Warn("Failed to write run manifest.", "err", err)
	}

	s.queueManager.EndRun()

	s.current = -1
	s.unitInFlight = false
	s.etaStatus = ""
	s.cleanupDone = true
}
