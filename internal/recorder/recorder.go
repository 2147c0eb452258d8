// Package recorder is the runtime's recording facility: an in-memory
// event log with named per-kind toggles, in the spirit of a flight
// recorder. The fiber runtime treats it as an opaque sink and never
// depends on it for correctness.
package recorder

import (
	"fmt"
	"sync"

	"github.com/fiberlab/fiberlab/internal/model"
)

// DefaultCapacity bounds the event log when no capacity is given.
const DefaultCapacity = 65536

// Recorder captures runtime events while started. It implements
// fiber.EventSink. All methods are safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	running  bool
	enabled  map[model.EventKind]bool
	events   []model.Event
	capacity int
	dropped  int
}

// New creates a stopped recorder with every event kind enabled.
func New(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	enabled := make(map[model.EventKind]bool)
	for _, k := range model.EventKinds() {
		enabled[k] = true
	}
	return &Recorder{
		enabled:  enabled,
		capacity: capacity,
	}
}

// SetEnabled toggles one event kind by its name ("fiber.Mount" etc).
// Unknown names are an error.
func (r *Recorder) SetEnabled(name string, on bool) error {
	kind, ok := model.ParseEventKind(name)
	if !ok {
		return fmt.Errorf("recorder: unknown event %q", name)
	}
	r.mu.Lock()
	r.enabled[kind] = on
	r.mu.Unlock()
	return nil
}

// Start begins capturing events. Starting a running recorder is a no-op.
func (r *Recorder) Start() {
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()
}

// Stop ends the capture. The recorded events remain readable.
func (r *Recorder) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// Record stores one event if the recorder is running and the kind is
// enabled. When the log is full the oldest half is discarded;
// recording never blocks the runtime.
func (r *Recorder) Record(ev model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running || !r.enabled[ev.Kind] {
		return
	}
	if len(r.events) >= r.capacity {
		half := len(r.events) / 2
		r.dropped += half
		r.events = append(r.events[:0], r.events[half:]...)
	}
	r.events = append(r.events, ev)
}

// Events returns a snapshot of the recorded events in order.
func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of events currently held.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Dropped returns how many events were discarded to stay within
// capacity.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Reset clears the log but keeps toggles and running state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = r.events[:0]
	r.dropped = 0
	r.mu.Unlock()
}
