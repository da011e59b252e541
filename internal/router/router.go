// Package router reconstructs per-step presentation state from the flat
// event sequence of one analysis session. It is the receiving counterpart
// of the server's merge: events arrive tagged by step, the router
// demultiplexes them into accumulators and derives which channel of a
// step's output should be shown.
//
// A Router is single-goroutine: each inbound event must be applied to
// completion before the next one, and Reset must not race Apply. Callers
// driving it from a stream loop get this for free.
package router

import (
	"github.com/RyanProMax/stock-analysis/internal/events"
)

// Phase is the lifecycle position of one step.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Terminal reports whether the phase ends the step.
func (p Phase) Terminal() bool { return p == PhaseSucceeded || p == PhaseFailed }

// ViewMode selects which of a step's channels is presented.
type ViewMode string

const (
	// ViewNone means the step has no presentable content yet.
	ViewNone      ViewMode = "none"
	ViewReasoning ViewMode = "reasoning"
	ViewAnswer    ViewMode = "answer"
)

// TaskState is the accumulated state of one step. Buffers are append-only
// for the lifetime of a session; nothing is retracted once delivered.
type TaskState struct {
	Step            events.Step
	Phase           Phase
	ProgressMessage string
	ReasoningBuffer string
	AnswerBuffer    string
	// Streaming distinguishes the Running sub-states: true while deltas are
	// actively arriving, false once the step or session has settled.
	Streaming bool
}

// Router folds a session's event sequence into per-step TaskStates.
type Router struct {
	states    map[events.Step]*TaskState
	order     []events.Step
	overrides map[events.Step]ViewMode

	symbol   string
	terminal bool
	failure  string
	result   *events.Result
}

// New returns an empty router, ready for the first event of a session.
func New() *Router {
	r := &Router{}
	r.Reset()
	return r
}

// Reset discards all session state atomically with respect to Apply (same
// goroutine). No event from a previous session may be applied afterwards.
func (r *Router) Reset() {
	r.states = make(map[events.Step]*TaskState)
	r.order = nil
	r.overrides = make(map[events.Step]ViewMode)
	r.symbol = ""
	r.terminal = false
	r.failure = ""
	r.result = nil
}

// state returns the accumulator for step, creating it on first reference.
func (r *Router) state(step events.Step) *TaskState {
	if st, ok := r.states[step]; ok {
		return st
	}
	st := &TaskState{Step: step, Phase: PhaseIdle}
	r.states[step] = st
	r.order = append(r.order, step)
	return st
}

// Apply folds one event into the router. Events arriving after the session
// terminal are dropped: the protocol forbids them, and a well-formed
// presentation must not resurrect a finished session. The one exception is
// a start event, which always opens a fresh session.
func (r *Router) Apply(ev events.Event) {
	if r.terminal && ev.Kind != events.KindStart {
		return
	}

	switch ev.Kind {
	case events.KindStart:
		// A start event begins a new session; any prior state is stale.
		r.Reset()
		r.symbol = ev.Symbol

	case events.KindProgress:
		st := r.state(ev.Step)
		if ev.Message != "" {
			st.ProgressMessage = ev.Message
		}
		switch {
		case ev.Status == events.StatusRunning:
			if !st.Phase.Terminal() {
				st.Phase = PhaseRunning
			}
		case ev.Status == events.StatusError:
			st.Phase = PhaseFailed
			st.Streaming = false
		case ev.Status.Terminal():
			st.Phase = PhaseSucceeded
			st.Streaming = false
		}

	case events.KindThinking:
		st := r.state(ev.Step)
		st.ReasoningBuffer += ev.Content
		r.markDelta(st)

	case events.KindStreaming:
		st := r.state(ev.Step)
		st.AnswerBuffer += ev.Content
		r.markDelta(st)

	case events.KindError:
		if ev.Step != "" {
			st := r.state(ev.Step)
			st.Phase = PhaseFailed
			if ev.Message != "" {
				st.ProgressMessage = ev.Message
			}
		}
		r.failure = ev.Message
		r.settle()

	case events.KindComplete:
		if ev.Result != nil {
			result := *ev.Result
			r.result = &result
		}
		r.settle()
	}
}

// markDelta records that content is actively arriving for a step. New
// content invalidates any user override so the view is re-derived from the
// precedence rules.
func (r *Router) markDelta(st *TaskState) {
	if !st.Phase.Terminal() {
		st.Phase = PhaseRunning
		st.Streaming = true
	}
	delete(r.overrides, st.Step)
}

// settle ends the session: no step may keep an active-delivery indicator
// once a session terminal has arrived.
func (r *Router) settle() {
	r.terminal = true
	for _, st := range r.states {
		st.Streaming = false
	}
}

// SetOverride pins the view for a step. The pin persists until the step
// receives new content or the session resets, and is discarded at
// derivation time if it points at an empty channel.
func (r *Router) SetOverride(step events.Step, mode ViewMode) {
	r.overrides[step] = mode
}

// DeriveView computes the presented channel for a step, re-evaluated fresh
// on every call rather than cached, so there is no stale-flag state to keep
// consistent.
func (r *Router) DeriveView(step events.Step) ViewMode {
	st, ok := r.states[step]
	if !ok {
		return ViewNone
	}

	if mode, ok := r.overrides[step]; ok {
		if viewHasContent(st, mode) {
			return mode
		}
		// Override points at an empty channel; drop it and fall through.
		delete(r.overrides, step)
	}

	switch {
	case st.AnswerBuffer != "":
		// Once the synthesized answer starts arriving it wins, streaming or
		// settled alike; reasoning stays available behind an override.
		return ViewAnswer
	case st.ReasoningBuffer != "":
		return ViewReasoning
	default:
		return ViewNone
	}
}

func viewHasContent(st *TaskState, mode ViewMode) bool {
	switch mode {
	case ViewReasoning:
		return st.ReasoningBuffer != ""
	case ViewAnswer:
		return st.AnswerBuffer != ""
	}
	return false
}

// State returns a copy of the accumulator for step, or a zero Idle state if
// the step has not been referenced yet.
func (r *Router) State(step events.Step) TaskState {
	if st, ok := r.states[step]; ok {
		return *st
	}
	return TaskState{Step: step, Phase: PhaseIdle}
}

// Steps lists the referenced steps in first-seen order.
func (r *Router) Steps() []events.Step {
	out := make([]events.Step, len(r.order))
	copy(out, r.order)
	return out
}

// Symbol returns the session's target, set by the start event.
func (r *Router) Symbol() string { return r.symbol }

// Terminal reports whether the session has ended.
func (r *Router) Terminal() bool { return r.terminal }

// Failure returns the session-fatal error message, if the session ended in
// an error event.
func (r *Router) Failure() string { return r.failure }

// Result returns the final result if the session completed, nil otherwise.
func (r *Router) Result() *events.Result {
	if r.result == nil {
		return nil
	}
	result := *r.result
	return &result
}
