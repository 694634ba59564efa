// Package queue implements the user-editable render queue: an ordered,
// mutable collection of render jobs with positional identity. All mutations
// are funneled through the [Manager], which enforces mutual exclusion between
// a queue refresh and an active render run.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"renderq/internal/schema"
)

// Direction is a movement direction for [Manager.Move].
type Direction int

const (
	// DirectionUp moves a job towards the front of the queue.
	DirectionUp Direction = iota

	// DirectionDown moves a job towards the back of the queue.
	DirectionDown
)

// sceneEnumerator defines the enumeration methods needed for a queue refresh.
type sceneEnumerator interface {
	Enumerate(ctx context.Context) ([]schema.SceneUnit, error)
}

// Manager is the principal implementation of the render queue. Insertion
// order is the render order; reordering swaps positions, not identities.
type Manager struct {
	sync.RWMutex

	jobs       []*Job
	refreshing bool
	runActive  bool
	current    int
}

// NewManager returns a pointer to a new queue [Manager].
func NewManager() *Manager {
	return &Manager{
		current: -1,
	}
}

// Refresh replaces the queue contents with freshly enumerated scene/camera
// pairings. It is a two-phase operation: the (possibly slow) enumeration runs
// without holding the queue lock, followed by a single atomic replace, so the
// visible queue never observes a partially-populated intermediate state. On
// enumeration failure the previous contents are left unchanged. The refresh
// flag is cleared on every exit path.
func (m *Manager) Refresh(ctx context.Context, provider sceneEnumerator) error {
	m.Lock()
	if m.refreshing {
		m.Unlock()

		return ErrRefreshInFlight
	}
	if m.runActive {
		m.Unlock()

		return ErrRunActive
	}
	m.refreshing = true
	m.Unlock()

	defer func() {
		m.Lock()
		m.refreshing = false
		m.Unlock()
	}()

	units, err := provider.Enumerate(ctx)
	if err != nil {
		return fmt.Errorf("(queue-refresh) %w", err)
	}

	jobs := make([]*Job, 0, len(units))
	for _, unit := range units {
		jobs = append(jobs, &Job{
			ID:         uuid.New(),
			Scene:      unit.Scene,
			Camera:     unit.Camera,
			Enabled:    true,
			Kind:       KindImage,
			FrameStart: unit.FrameStart,
			FrameEnd:   unit.FrameEnd,
			Status:     StatusPending,
			StatusText: StatusPending.String(),
		})
	}

	m.Lock()
	m.jobs = jobs
	m.current = -1
	m.Unlock()

	return nil
}

// Move swaps the job at index with its neighbor in the given direction. Moves
// at the queue boundaries are no-ops. Rejected while a run or refresh is
// active.
func (m *Manager) Move(index int, direction Direction) error {
	m.Lock()
	defer m.Unlock()

	if m.refreshing {
		return ErrRefreshInFlight
	}
	if m.runActive {
		return ErrRunActive
	}
	if index < 0 || index >= len(m.jobs) {
		return ErrIndexOutOfRange
	}

	neighbor := index - 1
	if direction == DirectionDown {
		neighbor = index + 1
	}

	if neighbor < 0 || neighbor >= len(m.jobs) {
		return nil
	}

	m.jobs[index], m.jobs[neighbor] = m.jobs[neighbor], m.jobs[index]

	return nil
}

// ToggleEnabled flips whether the job at index participates in a run.
// Rejected for the currently rendering job while a run is active.
func (m *Manager) ToggleEnabled(index int) error {
	m.Lock()
	defer m.Unlock()

	if m.refreshing {
		return ErrRefreshInFlight
	}
	if index < 0 || index >= len(m.jobs) {
		return ErrIndexOutOfRange
	}
	if m.runActive && index == m.current {
		return ErrJobActive
	}

	m.jobs[index].Enabled = !m.jobs[index].Enabled

	return nil
}

// ToggleKind flips the job at index between image and sequence rendering.
// Rejected for the currently rendering job while a run is active.
func (m *Manager) ToggleKind(index int) error {
	m.Lock()
	defer m.Unlock()

	if m.refreshing {
		return ErrRefreshInFlight
	}
	if index < 0 || index >= len(m.jobs) {
		return ErrIndexOutOfRange
	}
	if m.runActive && index == m.current {
		return ErrJobActive
	}

	if m.jobs[index].Kind == KindImage {
		m.jobs[index].Kind = KindSequence
	} else {
		m.jobs[index].Kind = KindImage
	}

	return nil
}

// NextEligibleFrom returns the smallest index >= startIndex holding an
// enabled job, or false when the queue is exhausted.
func (m *Manager) NextEligibleFrom(startIndex int) (int, bool) {
	m.RLock()
	defer m.RUnlock()

	for i := max(startIndex, 0); i < len(m.jobs); i++ {
		if m.jobs[i].Enabled {
			return i, true
		}
	}

	return -1, false
}

// BeginRun marks the queue as owned by a render run, blocking refreshes and
// reorderings until [Manager.EndRun]. All enabled jobs are reset to pending,
// so a repeated run renders them again from a clean slate.
func (m *Manager) BeginRun() error {
	m.Lock()
	defer m.Unlock()

	if m.refreshing {
		return ErrRefreshInFlight
	}
	if m.runActive {
		return ErrRunActive
	}

	m.runActive = true
	m.current = -1

	for _, job := range m.jobs {
		if job.Enabled {
			job.Status = StatusPending
			job.StatusText = StatusPending.String()
			job.Progress = 0
			job.FramesDone = 0
		}
	}

	return nil
}

// EndRun releases run ownership of the queue. Safe to call when no run is
// active.
func (m *Manager) EndRun() {
	m.Lock()
	defer m.Unlock()

	m.runActive = false
	m.current = -1
}

// SetCurrent records which index the active run is rendering right now. A
// negative index means "about to advance".
func (m *Manager) SetCurrent(index int) {
	m.Lock()
	defer m.Unlock()

	m.current = index
}

// Current returns the index the active run is rendering right now.
func (m *Manager) Current() int {
	m.RLock()
	defer m.RUnlock()

	return m.current
}

// JobAt returns a copy of the job at index.
func (m *Manager) JobAt(index int) (Job, bool) {
	m.RLock()
	defer m.RUnlock()

	if index < 0 || index >= len(m.jobs) {
		return Job{}, false
	}

	return *m.jobs[index], true
}

// Len returns the number of jobs in the queue.
func (m *Manager) Len() int {
	m.RLock()
	defer m.RUnlock()

	return len(m.jobs)
}

// IsRefreshing returns whether a refresh is in flight.
func (m *Manager) IsRefreshing() bool {
	m.RLock()
	defer m.RUnlock()

	return m.refreshing
}

// SetStatus transitions the job at index into the given status, keeping the
// progress invariant intact: progress is 100 exactly when the status is
// [StatusDone], a cancelled or pending job drops back to 0.
func (m *Manager) SetStatus(index int, status Status) {
	m.Lock()
	defer m.Unlock()

	if index < 0 || index >= len(m.jobs) {
		return
	}

	job := m.jobs[index]
	job.Status = status
	job.StatusText = status.String()

	switch status {
	case StatusDone:
		job.Progress = 100
		job.FramesDone = job.TotalFrames()
	case StatusCancelled, StatusPending:
		job.Progress = 0
		job.FramesDone = 0
	case StatusRunning, StatusPaused, StatusError:
	}
}

// SetError transitions the job at index into [StatusError], carrying the
// failure reason as its status text.
func (m *Manager) SetError(index int, reason string) {
	m.Lock()
	defer m.Unlock()

	if index < 0 || index >= len(m.jobs) {
		return
	}

	job := m.jobs[index]
	job.Status = StatusError
	job.StatusText = fmt.Sprintf("Error: %s", reason)
}

// SetFrameProgress records a completed mid-sequence frame on the job at
// index. Progress is capped below 100, as only [StatusDone] may report full
// progress.
func (m *Manager) SetFrameProgress(index int, framesDone int, totalFrames int) {
	m.Lock()
	defer m.Unlock()

	if index < 0 || index >= len(m.jobs) {
		return
	}

	job := m.jobs[index]
	job.FramesDone = framesDone

	if totalFrames > 0 {
		job.Progress = min(framesDone*100/totalFrames, 99)
	}

	job.StatusText = fmt.Sprintf("Frame %d/%d", framesDone, totalFrames)
}

// PendingImageCount returns the number of enabled image jobs from startIndex
// onward that still await rendering in the active run.
func (m *Manager) PendingImageCount(startIndex int) int {
	m.RLock()
	defer m.RUnlock()

	var count int
	for i := max(startIndex, 0); i < len(m.jobs); i++ {
		job := m.jobs[i]
		if job.Enabled && job.Kind == KindImage && (job.Status == StatusPending || job.Status == StatusRunning) {
			count++
		}
	}

	return count
}

// Snapshot returns a copy of all queue contents for read-only consumers.
func (m *Manager) Snapshot() []Job {
	m.RLock()
	defer m.RUnlock()

	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}

	return jobs
}
