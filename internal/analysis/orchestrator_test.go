package analysis

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RyanProMax/stock-analysis/internal/config"
	"github.com/RyanProMax/stock-analysis/internal/events"
	"github.com/RyanProMax/stock-analysis/internal/llm"
)

func newTestOrchestrator(provider *fakeProvider, client *scriptedClient) *Orchestrator {
	return New(provider, client, testCfg(), zap.NewNop())
}

func TestScenarioBothUnitsSucceed(t *testing.T) {
	client := &scriptedClient{deltas: []llm.Delta{
		{Content: "<thinking>weighing both sides</thinking>"},
		{Content: "Final call: "},
		{Content: "hold."},
	}}
	orch := newTestOrchestrator(&fakeProvider{}, client)

	got := drainStream(t, orch.Stream(context.Background(), "nvda"))
	require.NotEmpty(t, got)

	// First event is start with the normalized symbol; last is complete.
	assert.Equal(t, events.KindStart, got[0].Kind)
	assert.Equal(t, "NVDA", got[0].Symbol)
	last := got[len(got)-1]
	require.Equal(t, events.KindComplete, last.Kind)
	require.NotNil(t, last.Result)
	assert.Equal(t, "NVDA", last.Result.Symbol)
	assert.Equal(t, "Final call: hold.", last.Result.Decision.Analysis)
	assert.Equal(t, "weighing both sides", last.Result.Decision.Thinking)

	// Each analysis unit ends in a success progress.
	for _, step := range []events.Step{events.StepFundamental, events.StepTechnical} {
		evs := stepEvents(got, step)
		require.NotEmpty(t, evs, "no events for %s", step)
		terminal := evs[len(evs)-1]
		assert.Equal(t, events.KindProgress, terminal.Kind)
		assert.Equal(t, events.StatusSuccess, terminal.Status)
		assert.Contains(t, terminal.Data, "execution_time")
	}

	// Synthesis produced both channels and a terminal success.
	var thinking, streaming strings.Builder
	for _, ev := range stepEvents(got, events.StepSynthesis) {
		switch ev.Kind {
		case events.KindThinking:
			thinking.WriteString(ev.Content)
		case events.KindStreaming:
			streaming.WriteString(ev.Content)
		}
	}
	assert.Equal(t, "weighing both sides", thinking.String())
	assert.Equal(t, "Final call: hold.", streaming.String())

	// Execution times cover all three steps.
	assert.Len(t, last.Result.ExecutionTimes, 3)
}

func TestScenarioOneUnitFails(t *testing.T) {
	client := &scriptedClient{deltas: []llm.Delta{{Content: "degraded verdict"}}}
	orch := newTestOrchestrator(&fakeProvider{failFundamental: true}, client)

	got := drainStream(t, orch.Stream(context.Background(), "NVDA"))

	fund := stepEvents(got, events.StepFundamental)
	require.NotEmpty(t, fund)
	assert.Equal(t, events.StatusError, fund[len(fund)-1].Status)

	tech := stepEvents(got, events.StepTechnical)
	require.NotEmpty(t, tech)
	assert.Equal(t, events.StatusSuccess, tech[len(tech)-1].Status)

	// Synthesis still ran and the session completed.
	assert.NotEmpty(t, stepEvents(got, events.StepSynthesis))
	assert.Equal(t, events.KindComplete, got[len(got)-1].Kind)
}

func TestScenarioAllUnitsFail(t *testing.T) {
	client := &scriptedClient{deltas: []llm.Delta{{Content: "should never stream"}}}
	orch := newTestOrchestrator(&fakeProvider{failFundamental: true, failTechnical: true}, client)

	got := drainStream(t, orch.Stream(context.Background(), "NVDA"))

	last := got[len(got)-1]
	assert.Equal(t, events.KindError, last.Kind)
	assert.Empty(t, last.Step)

	// No synthesis activity of any kind.
	assert.Empty(t, stepEvents(got, events.StepSynthesis))
}

func TestScenarioClientDisconnectsMidSynthesis(t *testing.T) {
	client := &scriptedClient{
		deltas: []llm.Delta{
			{Content: "a"}, {Content: "b"}, {Content: "c"}, {Content: "d"}, {Content: "e"},
		},
		delay: 50 * time.Millisecond,
	}
	orch := newTestOrchestrator(&fakeProvider{}, client)

	ctx, cancel := context.WithCancel(context.Background())
	stream := orch.Stream(ctx, "NVDA")

	var got []events.Event
	for ev := range stream {
		got = append(got, ev)
		if ev.Kind == events.KindStreaming {
			// First synthesis delta arrived; the client goes away.
			cancel()
		}
	}
	cancel()

	// The stream closed without a terminal event: cancellation is silent.
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.NotEqual(t, events.KindComplete, last.Kind)
	assert.NotEqual(t, events.KindError, last.Kind)
}

func TestPerStepOrderPreserved(t *testing.T) {
	// Noisy units emit many sequenced progress events from concurrent
	// goroutines; the merge must keep each step's own order intact.
	const n = 50
	units := []Unit{
		&sequencedUnit{step: events.StepFundamental, count: n},
		&sequencedUnit{step: events.StepTechnical, count: n},
	}
	client := &scriptedClient{deltas: []llm.Delta{{Content: "ok"}}}
	orch := NewWithUnits(units, NewSynthesisUnit(client, zap.NewNop()), testCfg(), zap.NewNop())

	got := drainStream(t, orch.Stream(context.Background(), "NVDA"))

	for _, step := range []events.Step{events.StepFundamental, events.StepTechnical} {
		seq := 0
		for _, ev := range stepEvents(got, step) {
			if ev.Kind != events.KindProgress || ev.Status != events.StatusRunning {
				continue
			}
			var idx int
			_, err := fmt.Sscanf(ev.Message, "tick %d", &idx)
			if err != nil {
				continue
			}
			require.Equal(t, seq, idx, "out-of-order event for %s", step)
			seq++
		}
		assert.Equal(t, n, seq, "missing events for %s", step)
	}
	assert.Equal(t, events.KindComplete, got[len(got)-1].Kind)
}

func TestUnitTimeoutBecomesLocalError(t *testing.T) {
	cfg := testCfg()
	cfg.UnitTimeout = config.Duration(50 * time.Millisecond)
	units := []Unit{
		&blockingUnit{step: events.StepFundamental},
		&sequencedUnit{step: events.StepTechnical, count: 1},
	}
	client := &scriptedClient{deltas: []llm.Delta{{Content: "ok"}}}
	orch := NewWithUnits(units, NewSynthesisUnit(client, zap.NewNop()), cfg, zap.NewNop())

	got := drainStream(t, orch.Stream(context.Background(), "NVDA"))

	fund := stepEvents(got, events.StepFundamental)
	require.NotEmpty(t, fund)
	terminal := fund[len(fund)-1]
	assert.Equal(t, events.StatusError, terminal.Status)
	assert.Contains(t, terminal.Message, "timed out")

	// The slow unit is local damage only; the session still completes.
	assert.Equal(t, events.KindComplete, got[len(got)-1].Kind)
}

func TestUnitPanicIsContained(t *testing.T) {
	units := []Unit{
		&panickyUnit{step: events.StepFundamental},
		&sequencedUnit{step: events.StepTechnical, count: 1},
	}
	client := &scriptedClient{deltas: []llm.Delta{{Content: "ok"}}}
	orch := NewWithUnits(units, NewSynthesisUnit(client, zap.NewNop()), testCfg(), zap.NewNop())

	got := drainStream(t, orch.Stream(context.Background(), "NVDA"))

	fund := stepEvents(got, events.StepFundamental)
	require.NotEmpty(t, fund)
	assert.Equal(t, events.StatusError, fund[len(fund)-1].Status)
	assert.Contains(t, fund[len(fund)-1].Message, "panicked")
	assert.Equal(t, events.KindComplete, got[len(got)-1].Kind)
}

func TestSynthesisFailureIsFatal(t *testing.T) {
	// Units succeed without the model; only the synthesis stream fails.
	units := []Unit{
		&sequencedUnit{step: events.StepFundamental, count: 1},
		&sequencedUnit{step: events.StepTechnical, count: 1},
	}
	client := &scriptedClient{
		deltas: []llm.Delta{{Content: "partial "}},
		err:    fmt.Errorf("model overloaded"),
	}
	orch := NewWithUnits(units, NewSynthesisUnit(client, zap.NewNop()), testCfg(), zap.NewNop())

	got := drainStream(t, orch.Stream(context.Background(), "NVDA"))

	last := got[len(got)-1]
	require.Equal(t, events.KindError, last.Kind)
	assert.Equal(t, events.StepSynthesis, last.Step)
	assert.Contains(t, last.Message, "synthesis failed")

	// Partial streamed content stays delivered ahead of the error.
	var streamed string
	for _, ev := range stepEvents(got, events.StepSynthesis) {
		if ev.Kind == events.KindStreaming {
			streamed += ev.Content
		}
	}
	assert.Equal(t, "partial ", streamed)
}

func TestAnalyzeBatch(t *testing.T) {
	client := &scriptedClient{deltas: []llm.Delta{
		{Content: "thinking bits", Reasoning: true},
		{Content: "final answer"},
	}}
	orch := newTestOrchestrator(&fakeProvider{}, client)

	result, err := orch.Analyze(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", result.Symbol)
	assert.Equal(t, "final answer", result.Decision.Analysis)
	assert.Equal(t, "thinking bits", result.Decision.Thinking)
}

func TestAnalyzeBatchAllFailed(t *testing.T) {
	client := &scriptedClient{deltas: []llm.Delta{{Content: "unused"}}}
	orch := newTestOrchestrator(&fakeProvider{failFundamental: true, failTechnical: true}, client)

	_, err := orch.Analyze(context.Background(), "NVDA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all analyses failed")
}
