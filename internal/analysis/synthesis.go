package analysis

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/RyanProMax/stock-analysis/internal/events"
	"github.com/RyanProMax/stock-analysis/internal/llm"
	"github.com/RyanProMax/stock-analysis/internal/logging"
)

// SynthesisUnit consumes the joined outcomes of the analysis units, drives
// the generative model, and streams its output as reasoning and answer
// deltas. Unlike the analysis units, a synthesis failure is fatal to the
// session, so Run returns an error instead of folding it into an outcome.
type SynthesisUnit struct {
	client llm.Client
	logger *zap.Logger
}

// NewSynthesisUnit builds the synthesis step.
func NewSynthesisUnit(client llm.Client, logger *zap.Logger) *SynthesisUnit {
	return &SynthesisUnit{
		client: client,
		logger: logging.Component(logger, "synthesis"),
	}
}

// Run streams the synthesized recommendation. Every raw model delta passes
// through the reasoning splitter before being forwarded, so the outbound
// stream only ever carries classified thinking/streaming events.
func (u *SynthesisUnit) Run(ctx context.Context, target Target, outcomes map[events.Step]Outcome, emit func(events.Event)) (events.Decision, error) {
	step := events.StepSynthesis

	deltas, errs := u.client.ChatStream(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: synthesisSystemMessage},
		{Role: llm.RoleUser, Content: buildSynthesisPrompt(target.Symbol, outcomes)},
	})

	splitter := llm.NewSplitter()
	var answer, thinking strings.Builder

	forward := func(d llm.Delta) {
		if d.Content == "" {
			return
		}
		if d.Reasoning {
			thinking.WriteString(d.Content)
			emit(events.Thinking(step, d.Content))
			return
		}
		answer.WriteString(d.Content)
		emit(events.Streaming(step, d.Content))
	}

	for raw := range deltas {
		for _, d := range splitter.Feed(raw) {
			forward(d)
		}
	}
	for _, d := range splitter.Flush() {
		forward(d)
	}

	if err := <-errs; err != nil {
		u.logger.Warn("synthesis stream failed", zap.String("symbol", target.Symbol), zap.Error(err))
		return events.Decision{}, err
	}

	return events.Decision{
		Action:   "analysis complete",
		Analysis: answer.String(),
		Thinking: thinking.String(),
	}, nil
}
