// Package backend implements the render backend side of the core: an
// in-process event bus fanning backend lifecycle events out to subscribers, a
// static scene/camera provider and a backend running an external renderer
// command per unit.
package backend

import (
	"sync"

	"renderq/internal/schema"
)

// Bus is the principal implementation of a [schema.EventSource]. It fans
// emitted lifecycle events out to all subscribed sinks, in subscription
// order, on the emitting goroutine.
type Bus struct {
	sync.RWMutex

	sinks  map[int]schema.EventSink
	nextID int
}

// NewBus returns a pointer to a new event [Bus].
func NewBus() *Bus {
	return &Bus{
		sinks: make(map[int]schema.EventSink),
	}
}

// Subscribe registers a sink and returns its release function. The release
// function is safe to call more than once.
func (b *Bus) Subscribe(sink schema.EventSink) func() {
	b.Lock()
	defer b.Unlock()

	id := b.nextID
	b.nextID++
	b.sinks[id] = sink

	return func() {
		b.Lock()
		defer b.Unlock()

		delete(b.sinks, id)
	}
}

// SinkCount returns the number of subscribed sinks.
func (b *Bus) SinkCount() int {
	b.RLock()
	defer b.RUnlock()

	return len(b.sinks)
}

// snapshot returns the subscribed sinks without holding the lock during
// delivery, so a sink releasing or resubscribing mid-event cannot deadlock
// the bus.
func (b *Bus) snapshot() []schema.EventSink {
	b.RLock()
	defer b.RUnlock()

	sinks := make([]schema.EventSink, 0, len(b.sinks))
	for id := 0; id < b.nextID; id++ {
		if sink, exists := b.sinks[id]; exists {
			sinks = append(sinks, sink)
		}
	}

	return sinks
}

// EmitUnitStart delivers a pre-unit event to all subscribed sinks.
func (b *Bus) EmitUnitStart() {
	for _, sink := range b.snapshot() {
		sink.OnUnitStart()
	}
}

// EmitUnitFinished delivers a post-unit event to all subscribed sinks.
func (b *Bus) EmitUnitFinished(ev schema.UnitFinishedEvent) {
	for _, sink := range b.snapshot() {
		sink.OnUnitFinished(ev)
	}
}

// EmitAborted delivers an abort event to all subscribed sinks.
func (b *Bus) EmitAborted() {
	for _, sink := range b.snapshot() {
		sink.OnAborted()
	}
}
