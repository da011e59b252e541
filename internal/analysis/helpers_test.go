package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/RyanProMax/stock-analysis/internal/config"
	"github.com/RyanProMax/stock-analysis/internal/events"
	"github.com/RyanProMax/stock-analysis/internal/factors"
	"github.com/RyanProMax/stock-analysis/internal/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testCfg() config.AnalysisConfig {
	return config.AnalysisConfig{
		UnitTimeout:      config.Duration(5 * time.Second),
		SynthesisTimeout: config.Duration(5 * time.Second),
		HistoryDays:      60,
	}
}

// scriptedClient replays a fixed delta sequence for every ChatStream call.
// An optional per-delta delay simulates slow generation; ctx cancellation is
// honored between deltas.
type scriptedClient struct {
	deltas []llm.Delta
	err    error
	delay  time.Duration
}

func (c *scriptedClient) ChatStream(ctx context.Context, _ []llm.Message) (<-chan llm.Delta, <-chan error) {
	deltaChan := make(chan llm.Delta, len(c.deltas)+1)
	errChan := make(chan error, 1)
	go func() {
		defer close(deltaChan)
		defer close(errChan)
		for _, d := range c.deltas {
			if c.delay > 0 {
				select {
				case <-time.After(c.delay):
				case <-ctx.Done():
					errChan <- ctx.Err()
					return
				}
			}
			select {
			case deltaChan <- d:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}
		if c.err != nil {
			errChan <- c.err
		}
	}()
	return deltaChan, errChan
}

// fakeProvider serves canned factor sets, with switchable failures per
// dimension.
type fakeProvider struct {
	failFundamental bool
	failTechnical   bool
}

func (p *fakeProvider) Fundamental(ctx context.Context, symbol string) (factors.FactorSet, error) {
	if p.failFundamental {
		return factors.FactorSet{}, errors.New("fundamental data source offline")
	}
	return factors.FactorSet{
		Symbol:    symbol,
		StockName: symbol + " Inc",
		Price:     101.5,
		Factors:   []factors.Factor{{Key: "valuation", Name: "Valuation", Signal: factors.SignalBullish}},
	}, nil
}

func (p *fakeProvider) Technical(ctx context.Context, symbol string) (factors.FactorSet, error) {
	if p.failTechnical {
		return factors.FactorSet{}, errors.New("candle history unavailable")
	}
	return factors.FactorSet{
		Symbol:  symbol,
		Price:   101.5,
		Factors: []factors.Factor{{Key: "ma", Name: "Moving Averages", Signal: factors.SignalBearish}},
	}, nil
}

var _ factors.Provider = (*fakeProvider)(nil)

// sequencedUnit emits count running ticks in order, then succeeds. Used to
// stress the merge ordering guarantee.
type sequencedUnit struct {
	step  events.Step
	count int
}

func (u *sequencedUnit) Step() events.Step { return u.step }

func (u *sequencedUnit) Run(ctx context.Context, _ Target, emit func(events.Event)) Outcome {
	for i := 0; i < u.count; i++ {
		emit(events.Progress(u.step, events.StatusRunning, fmt.Sprintf("tick %d", i)))
	}
	return Outcome{Step: u.step, Status: OutcomeSuccess, Message: "done"}
}

// blockingUnit never finishes on its own; it only returns once its context
// dies, standing in for a wedged external data source.
type blockingUnit struct {
	step events.Step
}

func (u *blockingUnit) Step() events.Step { return u.step }

func (u *blockingUnit) Run(ctx context.Context, _ Target, _ func(events.Event)) Outcome {
	<-ctx.Done()
	return Outcome{Step: u.step, Status: OutcomeError, Message: "cancelled"}
}

// panickyUnit violates the no-panic contract on purpose.
type panickyUnit struct {
	step events.Step
}

func (u *panickyUnit) Step() events.Step { return u.step }

func (u *panickyUnit) Run(context.Context, Target, func(events.Event)) Outcome {
	panic("index out of range in indicator math")
}

// drainStream collects every event until the stream closes.
func drainStream(t *testing.T, stream <-chan events.Event) []events.Event {
	t.Helper()
	var got []events.Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-stream:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("stream did not close, got %d events", len(got))
		}
	}
}

// stepEvents filters the subsequence belonging to one step.
func stepEvents(all []events.Event, step events.Step) []events.Event {
	var out []events.Event
	for _, ev := range all {
		if ev.Step == step {
			out = append(out, ev)
		}
	}
	return out
}
