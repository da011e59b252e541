// Package analysis contains the streaming multi-agent pipeline: two
// independent analysis units fan out per symbol, their progress merges into
// one ordered event stream, and a synthesis step turns the joined results
// into a final recommendation streamed as reasoning and answer deltas.
package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/RyanProMax/stock-analysis/internal/events"
	"github.com/RyanProMax/stock-analysis/internal/factors"
)

// Target is the subject of one analysis session.
type Target struct {
	Symbol string
}

// OutcomeStatus is the terminal state of a unit run.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
)

// Outcome is the terminal result of one analysis unit. Failed units carry a
// message; successful ones carry the factor set and the unit's own written
// analysis.
type Outcome struct {
	Step     events.Step
	Status   OutcomeStatus
	Factors  factors.FactorSet
	Analysis string
	Message  string
	Elapsed  time.Duration
}

// Failed reports whether the unit did not produce a usable analysis.
func (o Outcome) Failed() bool { return o.Status != OutcomeSuccess }

// Unit is one independent analysis task. Run emits zero or more progress
// events for its own step through emit and returns a terminal outcome. Run
// must not panic past its boundary; the harness converts panics to error
// outcomes as a second line of defense.
type Unit interface {
	Step() events.Step
	Run(ctx context.Context, target Target, emit func(events.Event)) Outcome
}

// runUnit executes one unit under its own timeout and guarantees a terminal
// outcome plus a terminal progress event, whatever the unit does. The
// terminal emission seals the step inside the sink, so anything a timed-out
// unit tries to emit afterwards is dropped rather than reordered.
func runUnit(ctx context.Context, u Unit, target Target, timeout time.Duration, s *sink, logger *zap.Logger) Outcome {
	step := u.Step()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("analysis unit panicked",
					zap.String("step", string(step)),
					zap.Any("panic", r))
				done <- Outcome{
					Step:    step,
					Status:  OutcomeError,
					Message: fmt.Sprintf("%s analysis panicked: %v", step, r),
				}
			}
		}()
		done <- u.Run(ctx, target, s.Emit)
	}()

	var outcome Outcome
	select {
	case outcome = <-done:
	case <-ctx.Done():
		// The unit is abandoned mid-flight. In-flight external calls are not
		// forcibly stopped; the sink's step seal keeps late events off the
		// stream.
		outcome = Outcome{
			Step:    step,
			Status:  OutcomeError,
			Message: fmt.Sprintf("%s analysis timed out: %v", step, ctx.Err()),
		}
	}
	outcome.Elapsed = time.Since(start)

	switch outcome.Status {
	case OutcomeSuccess:
		s.EmitStepTerminal(events.ProgressData(step, events.StatusSuccess, outcome.Message, map[string]any{
			"execution_time": events.DurationSeconds(outcome.Elapsed),
		}))
	default:
		s.EmitStepTerminal(events.Progress(step, events.StatusError, outcome.Message))
	}
	return outcome
}
