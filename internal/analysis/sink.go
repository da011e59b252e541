package analysis

import (
	"sync"

	"github.com/RyanProMax/stock-analysis/internal/events"
)

// sink is the single merge point between concurrent producers and the one
// outbound event stream. Each producer goroutine emits in its own order; the
// shared lock serializes the interleaving without reordering any producer's
// events.
//
// The sink also enforces two protocol invariants at the choke point:
// nothing is emitted after the sink closes, and nothing is emitted for a
// step after that step's terminal event. Late emissions from abandoned unit
// goroutines become silent no-ops instead of protocol violations.
//
// Consumers must drain Events until it closes, even after they stop caring
// about the session, so producers are never wedged on a full buffer.
type sink struct {
	mu         sync.Mutex
	out        chan events.Event
	closed     bool
	terminated map[events.Step]bool
}

func newSink(buffer int) *sink {
	return &sink{
		out:        make(chan events.Event, buffer),
		terminated: make(map[events.Step]bool),
	}
}

// Events returns the consumer side of the sink.
func (s *sink) Events() <-chan events.Event { return s.out }

// Emit forwards one event to the consumer, dropping it if the sink is closed
// or the event's step has already terminated.
func (s *sink) Emit(ev events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if ev.Step != "" && s.terminated[ev.Step] {
		return
	}
	s.out <- ev
}

// EmitStepTerminal emits the terminal progress event for a step and seals
// the step in the same critical section, so no concurrent producer can slip
// an event in behind it.
func (s *sink) EmitStepTerminal(ev events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (ev.Step != "" && s.terminated[ev.Step]) {
		return
	}
	if ev.Step != "" {
		s.terminated[ev.Step] = true
	}
	s.out <- ev
}

// Close ends the stream. Producers still holding emit afterwards turn into
// no-ops.
func (s *sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.out)
}
