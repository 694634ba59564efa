package backend

import "errors"

var (
	// ErrTargetNotFound is an error that occurs when a scene/camera
	// pairing cannot be resolved to a renderable target.
	ErrTargetNotFound = errors.New("scene/camera not found")

	// ErrUnitInFlight is an error that occurs when a render is requested
	// while the backend still owns an in-flight unit.
	ErrUnitInFlight = errors.New("a render unit is already in flight")
)
