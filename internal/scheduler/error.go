package scheduler

import "errors"

var (
	// ErrEmptyQueue is an error that occurs when a run is started on a
	// queue without any enabled job.
	ErrEmptyQueue = errors.New("no enabled jobs in the queue")

	// ErrNotIdle is an error that occurs when a run is started while
	// another run is still active.
	ErrNotIdle = errors.New("a run is already active")

	// ErrNotRunning is an error that occurs when a pause is requested
	// outside of the running phase.
	ErrNotRunning = errors.New("no running run to pause")

	// ErrNotPaused is an error that occurs when a resume is requested
	// outside of the paused phase.
	ErrNotPaused = errors.New("no paused run to resume")

	// ErrNotActive is an error that occurs when a cancel is requested
	// while no run is active.
	ErrNotActive = errors.New("no active run to cancel")
)
