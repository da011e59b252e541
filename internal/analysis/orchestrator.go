package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RyanProMax/stock-analysis/internal/config"
	"github.com/RyanProMax/stock-analysis/internal/events"
	"github.com/RyanProMax/stock-analysis/internal/factors"
	"github.com/RyanProMax/stock-analysis/internal/llm"
	"github.com/RyanProMax/stock-analysis/internal/logging"
)

// ErrAllUnitsFailed is returned by Analyze when no analysis unit produced a
// usable result and the session short-circuited before synthesis.
var ErrAllUnitsFailed = errors.New("all analyses failed")

// Orchestrator drives one analysis session end to end: fan out the analysis
// units, merge their progress into one ordered stream, join, synthesize, and
// terminate the stream with exactly one complete or error event.
type Orchestrator struct {
	units     []Unit
	synthesis *SynthesisUnit
	cfg       config.AnalysisConfig
	logger    *zap.Logger
}

// New wires the standard two-unit pipeline over the given collaborators.
func New(provider factors.Provider, client llm.Client, cfg config.AnalysisConfig, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		units: []Unit{
			NewFundamentalUnit(provider, client, logger),
			NewTechnicalUnit(provider, client, logger),
		},
		synthesis: NewSynthesisUnit(client, logger),
		cfg:       cfg,
		logger:    logging.Component(logger, "orchestrator"),
	}
}

// NewWithUnits wires an orchestrator over explicit units. Used by tests and
// by callers composing non-standard pipelines.
func NewWithUnits(units []Unit, synthesis *SynthesisUnit, cfg config.AnalysisConfig, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		units:     units,
		synthesis: synthesis,
		cfg:       cfg,
		logger:    logging.Component(logger, "orchestrator"),
	}
}

// Stream runs one session and returns its ordered event stream. The channel
// closes when the session ends; consumers must drain it fully even after
// they stop caring, or producers would wedge on the buffer. Cancelling ctx
// cancels the session: in-flight units are abandoned and no further events
// are emitted once the cancellation is observed.
func (o *Orchestrator) Stream(ctx context.Context, symbol string) <-chan events.Event {
	s := newSink(64)
	go o.run(ctx, symbol, s)
	return s.Events()
}

func (o *Orchestrator) run(ctx context.Context, symbol string, s *sink) {
	defer s.Close()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	target := Target{Symbol: symbol}
	sessionID := uuid.NewString()
	logger := o.logger.With(zap.String("session", sessionID), zap.String("symbol", symbol))
	logger.Info("session started")

	s.Emit(events.Start(symbol))

	// Fan out: every unit runs concurrently, each under its own timeout,
	// all emitting into the shared sink.
	var mu sync.Mutex
	outcomes := make(map[events.Step]Outcome, len(o.units))

	g, gctx := errgroup.WithContext(ctx)
	for _, u := range o.units {
		g.Go(func() error {
			out := runUnit(gctx, u, target, o.cfg.UnitTimeout.Std(), s, logger)
			mu.Lock()
			outcomes[out.Step] = out
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		// Client went away; the session dies silently.
		logger.Info("session cancelled during analysis")
		return
	}

	succeeded := 0
	for _, out := range outcomes {
		if !out.Failed() {
			succeeded++
		}
		logger.Info("unit finished",
			zap.String("step", string(out.Step)),
			zap.String("status", string(out.Status)),
			zap.Duration("elapsed", out.Elapsed))
	}
	if succeeded == 0 {
		// Nothing to synthesize from.
		s.Emit(events.SessionError(ErrAllUnitsFailed.Error(), ""))
		logger.Warn("session failed, no unit succeeded")
		return
	}

	// Join complete: synthesis runs strictly after all units.
	s.Emit(events.Progress(events.StepSynthesis, events.StatusRunning, "generating synthesis report"))

	sctx, cancel := context.WithTimeout(ctx, o.cfg.SynthesisTimeout.Std())
	defer cancel()

	start := time.Now()
	decision, err := o.synthesis.Run(sctx, target, outcomes, s.Emit)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("session cancelled during synthesis")
			return
		}
		// Partial thinking/streaming content already sent stays delivered;
		// the stream just ends with the error instead of a complete.
		s.Emit(events.SessionError(fmt.Sprintf("synthesis failed: %v", err), events.StepSynthesis))
		logger.Warn("session failed in synthesis", zap.Error(err))
		return
	}
	elapsed := time.Since(start)

	s.EmitStepTerminal(events.ProgressData(events.StepSynthesis, events.StatusSuccess, "analysis complete", map[string]any{
		"execution_time": events.DurationSeconds(elapsed),
	}))

	result := events.Result{
		Symbol:         symbol,
		Decision:       decision,
		ExecutionTimes: map[string]float64{string(events.StepSynthesis): events.DurationSeconds(elapsed)},
	}
	for step, out := range outcomes {
		result.ExecutionTimes[string(step)] = events.DurationSeconds(out.Elapsed)
		if result.StockName == "" && out.Factors.StockName != "" {
			result.StockName = out.Factors.StockName
		}
	}

	s.Emit(events.Complete(result))
	logger.Info("session complete", zap.Duration("synthesis_elapsed", elapsed))
}

// Analyze runs a whole session to completion and returns only the final
// result, the synchronous counterpart of Stream used by the batch endpoint.
func (o *Orchestrator) Analyze(ctx context.Context, symbol string) (events.Result, error) {
	var result events.Result
	var failure error
	for ev := range o.Stream(ctx, symbol) {
		switch ev.Kind {
		case events.KindComplete:
			if ev.Result != nil {
				result = *ev.Result
			}
		case events.KindError:
			failure = errors.New(ev.Message)
		}
	}
	if failure != nil {
		return events.Result{}, failure
	}
	if err := ctx.Err(); err != nil {
		return events.Result{}, err
	}
	if result.Symbol == "" {
		return events.Result{}, errors.New("session ended without result")
	}
	return result, nil
}
