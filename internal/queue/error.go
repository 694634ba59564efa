package queue

import "errors"

var (
	// ErrRefreshInFlight is an error that occurs when a queue mutation is
	// attempted while a refresh has not yet completed.
	ErrRefreshInFlight = errors.New("a refresh is already in progress")

	// ErrRunActive is an error that occurs when a queue mutation is
	// attempted while a render run owns the queue.
	ErrRunActive = errors.New("a render run is active")

	// ErrJobActive is an error that occurs when the currently rendering
	// job is attempted to be mutated.
	ErrJobActive = errors.New("job is currently rendering")

	// ErrIndexOutOfRange is an error that occurs when a given index does
	// not exist in the queue.
	ErrIndexOutOfRange = errors.New("index out of range")
)
