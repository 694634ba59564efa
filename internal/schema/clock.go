package schema

import "time"

// Clock describes a source of wall time, so time-dependent logic stays
// testable with a controlled implementation.
type Clock interface {
	Now() time.Time
}

// WallClock is the [Clock] implementation backed by the system clock.
type WallClock struct{}

// Now wraps around [time.Now].
func (WallClock) Now() time.Time {
	return time.Now()
}

// Timer describes a repeating tick source.
type Timer interface {
	// Every invokes fn on a fixed interval until the returned stop
	// function is called. The stop function is safe to call more than
	// once.
	Every(interval time.Duration, fn func()) (stop func())
}

// WallTimer is the [Timer] implementation backed by a [time.Ticker].
type WallTimer struct{}

// Every starts a goroutine driving fn off a [time.Ticker].
func (WallTimer) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var stopped bool

	return func() {
		if stopped {
			return
		}
		stopped = true

		ticker.Stop()
		close(done)
	}
}
