// Package events defines the wire event model for a streaming analysis
// session. Every event produced after fan-out begins is keyed by a Step so
// that a single ordered stream can carry the interleaved output of several
// concurrent analysis units.
package events

import "time"

// Step identifies which analysis task an event belongs to. The set is closed
// on the producing side; unknown steps only appear at the wire-decoding
// boundary.
type Step string

const (
	StepFundamental Step = "fundamental"
	StepTechnical   Step = "technical"
	StepSynthesis   Step = "synthesis"
)

// Steps lists the known steps in presentation order.
func Steps() []Step {
	return []Step{StepFundamental, StepTechnical, StepSynthesis}
}

// Known reports whether s is one of the closed set of producer steps.
func (s Step) Known() bool {
	switch s {
	case StepFundamental, StepTechnical, StepSynthesis:
		return true
	}
	return false
}

// Kind is the wire tag of an event.
type Kind string

const (
	KindStart     Kind = "start"
	KindProgress  Kind = "progress"
	KindThinking  Kind = "thinking"  // reasoning delta
	KindStreaming Kind = "streaming" // answer delta
	KindError     Kind = "error"
	KindComplete  Kind = "complete"

	// KindUnknown marks a wire kind this build does not understand. Consumers
	// must skip such events without breaking the session.
	KindUnknown Kind = ""
)

// Status is the progress state of a step.
type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"

	// StatusCompleted is an alias the original producer emits when the
	// synthesis step finishes. Accepted on decode, treated as success.
	StatusCompleted Status = "completed"
)

// Terminal reports whether the status ends a step.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError || s == StatusCompleted
}

// Decision is the synthesized recommendation carried by the final event.
type Decision struct {
	Action   string `json:"action"`
	Analysis string `json:"analysis"`
	Thinking string `json:"thinking,omitempty"`
}

// Result is the payload of a complete event.
type Result struct {
	Symbol         string             `json:"symbol"`
	StockName      string             `json:"stock_name,omitempty"`
	Decision       Decision           `json:"decision"`
	ExecutionTimes map[string]float64 `json:"execution_times,omitempty"`
}

// Event is the tagged union pushed over the stream. Which fields are
// meaningful depends on Kind:
//
//	start      Symbol
//	progress   Step, Status, Message, Data
//	thinking   Step, Content
//	streaming  Step, Content
//	error      Message, Step (optional)
//	complete   Result
type Event struct {
	Kind    Kind           `json:"type"`
	Symbol  string         `json:"symbol,omitempty"`
	Step    Step           `json:"step,omitempty"`
	Status  Status         `json:"status,omitempty"`
	Message string         `json:"message,omitempty"`
	Content string         `json:"content,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Result  *Result        `json:"result,omitempty"`
}

// Terminal reports whether no event of any kind may follow e in a session.
// Unit-local failures travel as progress{error} and are not terminal; an
// error event is only ever emitted when the session is ending.
func (e Event) Terminal() bool {
	return e.Kind == KindComplete || e.Kind == KindError
}

// Start builds the session-opening event.
func Start(symbol string) Event {
	return Event{Kind: KindStart, Symbol: symbol}
}

// Progress builds a step progress notification.
func Progress(step Step, status Status, message string) Event {
	return Event{Kind: KindProgress, Step: step, Status: status, Message: message}
}

// ProgressData builds a progress notification carrying a structured payload.
func ProgressData(step Step, status Status, message string, data map[string]any) Event {
	return Event{Kind: KindProgress, Step: step, Status: status, Message: message, Data: data}
}

// Thinking builds a reasoning text delta for a step.
func Thinking(step Step, content string) Event {
	return Event{Kind: KindThinking, Step: step, Content: content}
}

// Streaming builds an answer text delta for a step.
func Streaming(step Step, content string) Event {
	return Event{Kind: KindStreaming, Step: step, Content: content}
}

// SessionError builds a session-fatal error event. step may be empty when the
// failure is not attributable to a single step.
func SessionError(message string, step Step) Event {
	return Event{Kind: KindError, Message: message, Step: step}
}

// Complete builds the session-closing result event.
func Complete(result Result) Event {
	return Event{Kind: KindComplete, Result: &result}
}

// DurationSeconds converts an execution duration to the wire representation
// used in execution_times payloads.
func DurationSeconds(d time.Duration) float64 {
	return d.Seconds()
}
