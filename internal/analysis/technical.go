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

// TechnicalUnit analyzes price action factors and writes an independent
// technical assessment through the model.
type TechnicalUnit struct {
	provider factors.Provider
	client   llm.Client
	logger   *zap.Logger
}

// NewTechnicalUnit builds the technical analysis unit.
func NewTechnicalUnit(provider factors.Provider, client llm.Client, logger *zap.Logger) *TechnicalUnit {
	return &TechnicalUnit{
		provider: provider,
		client:   client,
		logger:   logging.Component(logger, "technical"),
	}
}

// Step implements Unit.
func (u *TechnicalUnit) Step() events.Step { return events.StepTechnical }

// Run implements Unit.
func (u *TechnicalUnit) Run(ctx context.Context, target Target, emit func(events.Event)) Outcome {
	step := u.Step()
	emit(events.Progress(step, events.StatusRunning, fmt.Sprintf("analyzing %s technicals", target.Symbol)))

	set, err := u.provider.Technical(ctx, target.Symbol)
	if err != nil {
		u.logger.Warn("technical factors failed", zap.String("symbol", target.Symbol), zap.Error(err))
		return Outcome{Step: step, Status: OutcomeError, Message: fmt.Sprintf("technical factors: %v", err)}
	}
	emit(events.ProgressData(step, events.StatusRunning, "technical factors computed", map[string]any{
		"factor_count": len(set.Factors),
		"factor_score": set.Score(),
	}))

	analysis, err := completeText(ctx, u.client, []llm.Message{
		{Role: llm.RoleSystem, Content: technicalSystemMessage},
		{Role: llm.RoleUser, Content: buildFactorPrompt("Technical", set)},
	})
	if err != nil {
		u.logger.Warn("technical model call failed", zap.String("symbol", target.Symbol), zap.Error(err))
		return Outcome{Step: step, Status: OutcomeError, Message: fmt.Sprintf("technical analysis: %v", err)}
	}

	return Outcome{
		Step:     step,
		Status:   OutcomeSuccess,
		Factors:  set,
		Analysis: analysis,
		Message:  "technical analysis complete",
	}
}
