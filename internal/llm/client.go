// Package llm wraps the generative model dependency. The analysis pipeline
// sees only a stream of Deltas, each tagged as reasoning or answer content;
// everything provider-specific (HTTP shape, SSE framing, reasoning side
// channel versus inline markers) stays behind the Client interface.
package llm

import "context"

// Role of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Delta is one incremental piece of model output. Reasoning and answer text
// are mutually exclusive per delta.
type Delta struct {
	Content   string
	Reasoning bool
}

// Client streams chat completions. The content channel closes when the
// stream ends; at most one error is sent on the error channel, and both
// channels are always closed by the implementation.
type Client interface {
	// ChatStream starts a streamed completion. Implementations must honor
	// ctx cancellation and stop emitting promptly once it fires.
	ChatStream(ctx context.Context, messages []Message) (<-chan Delta, <-chan error)
}
