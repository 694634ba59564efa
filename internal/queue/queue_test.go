package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"renderq/internal/schema"
)

var errEnumerate = errors.New("enumeration failed")

// fakeEnumerator is a fake implementation of sceneEnumerator, returning a
// fixed unit slice or a fixed error.
type fakeEnumerator struct {
	units []schema.SceneUnit
	err   error
}

func (fe *fakeEnumerator) Enumerate(_ context.Context) ([]schema.SceneUnit, error) {
	if fe.err != nil {
		return nil, fe.err
	}

	return fe.units, nil
}

func testUnits() []schema.SceneUnit {
	return []schema.SceneUnit{
		{Scene: "sceneA", Camera: "cam1", FrameStart: 1, FrameEnd: 100},
		{Scene: "sceneA", Camera: "cam2", FrameStart: 1, FrameEnd: 100},
		{Scene: "sceneB", Camera: "cam1", FrameStart: 10, FrameEnd: 20},
	}
}

func testManager(t *testing.T) *Manager {
	t.Helper()

	m := NewManager()
	require.NoError(t, m.Refresh(context.Background(), &fakeEnumerator{units: testUnits()}))

	return m
}

// TestNewManager_Success tests the manager factory function.
func TestNewManager_Success(t *testing.T) {
	t.Parallel()

	m := NewManager()

	assert.NotNil(t, m)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, -1, m.Current())
	assert.False(t, m.IsRefreshing())
}

// TestRefresh_Success tests populating the queue from an enumerator.
func TestRefresh_Success(t *testing.T) {
	t.Parallel()

	m := NewManager()

	err := m.Refresh(context.Background(), &fakeEnumerator{units: testUnits()})
	require.NoError(t, err)

	assert.Equal(t, 3, m.Len())

	job, ok := m.JobAt(0)
	require.True(t, ok)
	assert.Equal(t, "sceneA", job.Scene)
	assert.Equal(t, "cam1", job.Camera)
	assert.True(t, job.Enabled)
	assert.Equal(t, KindImage, job.Kind)
	assert.Equal(t, StatusPending, job.Status)
	assert.NotEqual(t, job.ID.String(), "00000000-0000-0000-0000-000000000000")
}

// TestRefresh_EnumerateError tests that a failing enumeration leaves the
// previous queue contents unchanged.
func TestRefresh_EnumerateError(t *testing.T) {
	t.Parallel()

	m := testManager(t)

	err := m.Refresh(context.Background(), &fakeEnumerator{err: errEnumerate})
	require.Error(t, err)
	require.ErrorIs(t, err, errEnumerate)

	assert.Equal(t, 3, m.Len())
	assert.False(t, m.IsRefreshing())
}

// TestRefresh_RunActive tests that a refresh is rejected during a run.
func TestRefresh_RunActive(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	require.NoError(t, m.BeginRun())

	err := m.Refresh(context.Background(), &fakeEnumerator{units: testUnits()})
	require.ErrorIs(t, err, ErrRunActive)

	m.EndRun()
	require.NoError(t, m.Refresh(context.Background(), &fakeEnumerator{units: testUnits()}))
}

// TestMove_Success tests swapping a job with its neighbor.
func TestMove_Success(t *testing.T) {
	t.Parallel()

	m := testManager(t)

	require.NoError(t, m.Move(0, DirectionDown))

	job, ok := m.JobAt(0)
	require.True(t, ok)
	assert.Equal(t, "cam2", job.Camera)

	job, ok = m.JobAt(1)
	require.True(t, ok)
	assert.Equal(t, "cam1", job.Camera)

	require.NoError(t, m.Move(1, DirectionUp))

	job, ok = m.JobAt(0)
	require.True(t, ok)
	assert.Equal(t, "cam1", job.Camera)
}

// TestMove_Boundaries tests that moves at the queue edges are no-ops.
func TestMove_Boundaries(t *testing.T) {
	t.Parallel()

	m := testManager(t)

	require.NoError(t, m.Move(0, DirectionUp))
	require.NoError(t, m.Move(2, DirectionDown))

	job, ok := m.JobAt(0)
	require.True(t, ok)
	assert.Equal(t, "cam1", job.Camera)

	job, ok = m.JobAt(2)
	require.True(t, ok)
	assert.Equal(t, "sceneB", job.Scene)
}

// TestMove_Errors tests move rejections for bad indices and active runs.
func TestMove_Errors(t *testing.T) {
	t.Parallel()

	m := testManager(t)

	require.ErrorIs(t, m.Move(-1, DirectionUp), ErrIndexOutOfRange)
	require.ErrorIs(t, m.Move(3, DirectionDown), ErrIndexOutOfRange)

	require.NoError(t, m.BeginRun())
	require.ErrorIs(t, m.Move(0, DirectionDown), ErrRunActive)
}

// TestToggleEnabled_Success tests flipping job participation.
func TestToggleEnabled_Success(t *testing.T) {
	t.Parallel()

	m := testManager(t)

	require.NoError(t, m.ToggleEnabled(1))

	job, ok := m.JobAt(1)
	require.True(t, ok)
	assert.False(t, job.Enabled)

	require.NoError(t, m.ToggleEnabled(1))

	job, ok = m.JobAt(1)
	require.True(t, ok)
	assert.True(t, job.Enabled)
}

// TestToggleEnabled_ActiveJob tests that the currently rendering job cannot
// be disabled.
func TestToggleEnabled_ActiveJob(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	require.NoError(t, m.BeginRun())
	m.SetCurrent(1)

	require.ErrorIs(t, m.ToggleEnabled(1), ErrJobActive)
	require.NoError(t, m.ToggleEnabled(0))
}

// TestToggleKind_Success tests flipping a job between image and sequence.
func TestToggleKind_Success(t *testing.T) {
	t.Parallel()

	m := testManager(t)

	require.NoError(t, m.ToggleKind(0))

	job, ok := m.JobAt(0)
	require.True(t, ok)
	assert.Equal(t, KindSequence, job.Kind)

	require.NoError(t, m.ToggleKind(0))

	job, ok = m.JobAt(0)
	require.True(t, ok)
	assert.Equal(t, KindImage, job.Kind)
}

// TestToggleKind_ActiveJob tests that the currently rendering job cannot
// switch kinds.
func TestToggleKind_ActiveJob(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	require.NoError(t, m.BeginRun())
	m.SetCurrent(0)

	require.ErrorIs(t, m.ToggleKind(0), ErrJobActive)
}

// TestNextEligibleFrom_Success tests eligible job lookup over disabled
// entries.
func TestNextEligibleFrom_Success(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	require.NoError(t, m.ToggleEnabled(0))
	require.NoError(t, m.ToggleEnabled(2))

	index, ok := m.NextEligibleFrom(0)
	require.True(t, ok)
	assert.Equal(t, 1, index)

	index, ok = m.NextEligibleFrom(2)
	require.False(t, ok)
	assert.Equal(t, -1, index)

	index, ok = m.NextEligibleFrom(-5)
	require.True(t, ok)
	assert.Equal(t, 1, index)
}

// TestBeginRun_ResetsEnabledJobs tests that starting a run resets enabled
// jobs to a clean pending state.
func TestBeginRun_ResetsEnabledJobs(t *testing.T) {
	t.Parallel()

	m := testManager(t)

	m.SetStatus(0, StatusDone)
	require.NoError(t, m.ToggleEnabled(1))
	m.SetError(1, "boom")

	require.NoError(t, m.BeginRun())

	job, ok := m.JobAt(0)
	require.True(t, ok)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Equal(t, 0, job.FramesDone)

	job, ok = m.JobAt(1)
	require.True(t, ok)
	assert.Equal(t, StatusError, job.Status)

	require.ErrorIs(t, m.BeginRun(), ErrRunActive)

	m.EndRun()
	assert.Equal(t, -1, m.Current())
	require.NoError(t, m.BeginRun())
}

// TestSetStatus_ProgressInvariant tests that progress tracks the status
// transitions.
func TestSetStatus_ProgressInvariant(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	require.NoError(t, m.ToggleKind(0))

	m.SetStatus(0, StatusDone)

	job, ok := m.JobAt(0)
	require.True(t, ok)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, 100, job.FramesDone)
	assert.Equal(t, "Done", job.StatusText)

	m.SetStatus(0, StatusCancelled)

	job, ok = m.JobAt(0)
	require.True(t, ok)
	assert.Equal(t, 0, job.Progress)
	assert.Equal(t, 0, job.FramesDone)

	m.SetStatus(5, StatusDone)
}

// TestSetFrameProgress_CapsBelowFull tests that mid-sequence progress never
// reports full completion.
func TestSetFrameProgress_CapsBelowFull(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	require.NoError(t, m.ToggleKind(0))

	m.SetFrameProgress(0, 50, 100)

	job, ok := m.JobAt(0)
	require.True(t, ok)
	assert.Equal(t, 50, job.Progress)
	assert.Equal(t, 50, job.FramesDone)
	assert.Equal(t, "Frame 50/100", job.StatusText)

	m.SetFrameProgress(0, 100, 100)

	job, ok = m.JobAt(0)
	require.True(t, ok)
	assert.Equal(t, 99, job.Progress)
}

// TestSetError_Success tests the error transition and its status text.
func TestSetError_Success(t *testing.T) {
	t.Parallel()

	m := testManager(t)

	m.SetError(0, "scene/camera not found")

	job, ok := m.JobAt(0)
	require.True(t, ok)
	assert.Equal(t, StatusError, job.Status)
	assert.Equal(t, "Error: scene/camera not found", job.StatusText)
}

// TestPendingImageCount_Success tests counting remaining image work.
func TestPendingImageCount_Success(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	require.NoError(t, m.ToggleKind(2))

	assert.Equal(t, 2, m.PendingImageCount(0))

	m.SetStatus(0, StatusDone)
	assert.Equal(t, 1, m.PendingImageCount(0))

	m.SetStatus(1, StatusRunning)
	assert.Equal(t, 1, m.PendingImageCount(0))

	assert.Equal(t, 1, m.PendingImageCount(1))
	assert.Equal(t, 0, m.PendingImageCount(2))
}

// TestSnapshot_Copies tests that snapshots are decoupled from the queue.
func TestSnapshot_Copies(t *testing.T) {
	t.Parallel()

	m := testManager(t)

	jobs := m.Snapshot()
	require.Len(t, jobs, 3)

	jobs[0].Scene = "mutated"

	job, ok := m.JobAt(0)
	require.True(t, ok)
	assert.Equal(t, "sceneA", job.Scene)
}

// TestJobTotalFrames_Success tests the unit count of both job kinds.
func TestJobTotalFrames_Success(t *testing.T) {
	t.Parallel()

	job := Job{Kind: KindImage, FrameStart: 1, FrameEnd: 100}
	assert.Equal(t, 1, job.TotalFrames())

	job.Kind = KindSequence
	assert.Equal(t, 100, job.TotalFrames())

	job.FrameEnd = 0
	assert.Equal(t, 1, job.TotalFrames())
}

// TestJobLabel_Success tests the display label of a job.
func TestJobLabel_Success(t *testing.T) {
	t.Parallel()

	job := Job{Scene: "sceneA", Camera: "cam1"}
	assert.Equal(t, "sceneA | cam1", job.Label())
}
