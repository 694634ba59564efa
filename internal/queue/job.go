package queue

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind is the render type of a [Job].
type Kind int

const (
	// KindImage renders a single still frame.
	KindImage Kind = iota

	// KindSequence renders the full frame range of the scene.
	KindSequence
)

// String returns the display name of a [Kind].
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "Image"
	case KindSequence:
		return "Sequence"
	default:
		return "Unknown"
	}
}

// Status is the lifecycle state of a [Job].
type Status int

const (
	// StatusPending means the job is waiting for its turn in a run.
	StatusPending Status = iota

	// StatusRunning means the job is owned by the backend right now.
	StatusRunning

	// StatusPaused means the job was current when the run was paused.
	StatusPaused

	// StatusDone means the job completed all of its units.
	StatusDone

	// StatusCancelled means the backend aborted the job's in-flight unit.
	StatusCancelled

	// StatusError means the job could not be handed to the backend.
	StatusError
)

// String returns the display name of a [Status].
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusRunning:
		return "Running"
	case StatusPaused:
		return "Paused"
	case StatusDone:
		return "Done"
	case StatusCancelled:
		return "Cancelled"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// IsTerminal returns whether a [Status] is an end state for one run.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusCancelled || s == StatusError
}

// Job is one entry of the render queue. Queue identity is positional, the ID
// only keeps log and manifest records attributable across reorderings. It is
// meant to be passed by value outside of the [Manager].
type Job struct {
	ID         uuid.UUID
	Scene      string
	Camera     string
	Enabled    bool
	Kind       Kind
	FrameStart int
	FrameEnd   int
	FramesDone int
	Progress   int
	Status     Status
	StatusText string
}

// TotalFrames returns the number of units the job consists of.
func (j Job) TotalFrames() int {
	if j.Kind == KindImage {
		return 1
	}

	total := j.FrameEnd - j.FrameStart + 1
	if total < 1 {
		return 1
	}

	return total
}

// Label returns the scene/camera display label of a [Job].
func (j Job) Label() string {
	return fmt.Sprintf("%s | %s", j.Scene, j.Camera)
}
