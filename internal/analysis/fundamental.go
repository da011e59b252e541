package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/RyanProMax/stock-analysis/internal/events"
	"github.com/RyanProMax/stock-analysis/internal/factors"
	"github.com/RyanProMax/stock-analysis/internal/llm"
	"github.com/RyanProMax/stock-analysis/internal/logging"
)

// FundamentalUnit analyzes valuation and profitability factors and writes an
// independent fundamental assessment through the model.
type FundamentalUnit struct {
	provider factors.Provider
	client   llm.Client
	logger   *zap.Logger
}

// NewFundamentalUnit builds the fundamental analysis unit.
func NewFundamentalUnit(provider factors.Provider, client llm.Client, logger *zap.Logger) *FundamentalUnit {
	return &FundamentalUnit{
		provider: provider,
		client:   client,
		logger:   logging.Component(logger, "fundamental"),
	}
}

// Step implements Unit.
func (u *FundamentalUnit) Step() events.Step { return events.StepFundamental }

// Run implements Unit.
func (u *FundamentalUnit) Run(ctx context.Context, target Target, emit func(events.Event)) Outcome {
	step := u.Step()
	emit(events.Progress(step, events.StatusRunning, fmt.Sprintf("analyzing %s fundamentals", target.Symbol)))

	set, err := u.provider.Fundamental(ctx, target.Symbol)
	if err != nil {
		u.logger.Warn("fundamental factors failed", zap.String("symbol", target.Symbol), zap.Error(err))
		return Outcome{Step: step, Status: OutcomeError, Message: fmt.Sprintf("fundamental factors: %v", err)}
	}
	emit(events.ProgressData(step, events.StatusRunning, "fundamental factors computed", map[string]any{
		"factor_count": len(set.Factors),
		"factor_score": set.Score(),
	}))

	analysis, err := completeText(ctx, u.client, []llm.Message{
		{Role: llm.RoleSystem, Content: fundamentalSystemMessage},
		{Role: llm.RoleUser, Content: buildFactorPrompt("Fundamental", set)},
	})
	if err != nil {
		u.logger.Warn("fundamental model call failed", zap.String("symbol", target.Symbol), zap.Error(err))
		return Outcome{Step: step, Status: OutcomeError, Message: fmt.Sprintf("fundamental analysis: %v", err)}
	}

	return Outcome{
		Step:     step,
		Status:   OutcomeSuccess,
		Factors:  set,
		Analysis: analysis,
		Message:  "fundamental analysis complete",
	}
}

// completeText drives a non-streamed completion over the streaming client,
// discarding reasoning deltas and concatenating the answer.
func completeText(ctx context.Context, client llm.Client, messages []llm.Message) (string, error) {
	deltas, errs := client.ChatStream(ctx, messages)
	var out []byte
	for d := range deltas {
		if d.Reasoning {
			continue
		}
		out = append(out, d.Content...)
	}
	if err := <-errs; err != nil {
		return "", err
	}
	return string(out), nil
}
