package main

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"sync/atomic"
	"time"
)

const (
	// allocSampleInterval is the interval at which an [allocWatcher]
	// samples the heap.
	allocSampleInterval = 250 * time.Millisecond
)

// profileStopper finalizes one profiling concern on shutdown. Always safe to
// call, also when the concern was never enabled.
type profileStopper func()

// startCPUProfile begins CPU profiling into the file at path. An empty path
// disables profiling; the returned stopper flushes and closes the profile.
func startCPUProfile(path string) profileStopper {
	if path == "" {
		return func() {}
	}

	f, err := os.Create(path)
	if err != nil {
		slog.Error("Could not create cpu profile.", "err", err)

		return func() {}
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		slog.Error("Could not start cpu profile.", "err", err)
		f.Close()

		return func() {}
	}

	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}
}

// startAllocProfile arranges for an allocation profile to be written to the
// file at path on shutdown. An empty path disables profiling.
func startAllocProfile(path string) profileStopper {
	if path == "" {
		return func() {}
	}

	return func() {
		f, err := os.Create(path)
		if err != nil {
			slog.Error("Could not create allocs profile.", "err", err)

			return
		}
		defer f.Close()

		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			slog.Error("Could not write allocs profile.", "err", err)
		}
	}
}

// allocWatcher samples the heap over the program's lifetime and remembers
// the peak allocation size.
type allocWatcher struct {
	peak atomic.Uint64
	done chan struct{}
}

// watchAllocations returns a running [allocWatcher]. Stop it with
// [allocWatcher.Stop] before program exit to log the observed peak.
func watchAllocations(ctx context.Context) *allocWatcher {
	w := &allocWatcher{
		done: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(allocSampleInterval)
		defer ticker.Stop()

		for {
			select {
			case <-w.done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				var m runtime.MemStats
				runtime.ReadMemStats(&m)

				if m.Alloc > w.peak.Load() {
					w.peak.Store(m.Alloc)
				}
			}
		}
	}()

	return w
}

// Stop halts the sampling and logs the peak observed heap allocation.
func (w *allocWatcher) Stop() {
	close(w.done)
	slog.Info("Memory consumption peaked at:", "maxAllocMiB", w.peak.Load()>>20)
}
