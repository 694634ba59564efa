package schema

// UnitFinishedEvent reports one completed unit of backend work. For a single
// image render, Frame and TotalFrames are both 1. For a sequence render,
// Frame is the 1-based ordinal of the completed frame within the sequence.
type UnitFinishedEvent struct {
	Frame          int
	TotalFrames    int
	LastInSequence bool
	OutputPath     string
}

// EventSink receives backend lifecycle events. Implementations must not block,
// as delivery happens synchronously on the emitting goroutine.
type EventSink interface {
	// OnUnitStart signals the backend is about to render a unit.
	OnUnitStart()

	// OnUnitFinished signals the backend completed a unit.
	OnUnitFinished(ev UnitFinishedEvent)

	// OnAborted signals the backend aborted the in-flight unit.
	OnAborted()
}

// EventSource describes a subscribable source of backend lifecycle events.
type EventSource interface {
	// Subscribe registers a sink and returns its release function. The
	// release function is safe to call more than once.
	Subscribe(sink EventSink) (release func())
}
