// Package factors computes the technical and fundamental factor sets the
// analysis units feed into their prompts. Each factor carries a short status
// plus explicit bullish/bearish signal lists so downstream consumers never
// have to re-derive sentiment from raw numbers.
package factors

import "context"

// Signal classifies the direction a factor points.
type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalBearish Signal = "bearish"
	SignalNeutral Signal = "neutral"
)

// Factor is one computed indicator with its interpretation.
type Factor struct {
	Key            string   `json:"key"`
	Name           string   `json:"name"`
	Status         string   `json:"status"`
	Signal         Signal   `json:"signal"`
	BullishSignals []string `json:"bullish_signals"`
	BearishSignals []string `json:"bearish_signals"`
}

// FactorSet is the full output of one analysis dimension for a symbol.
type FactorSet struct {
	Symbol    string   `json:"symbol"`
	StockName string   `json:"stock_name,omitempty"`
	Industry  string   `json:"industry,omitempty"`
	Price     float64  `json:"price,omitempty"`
	Factors   []Factor `json:"factors"`
}

// Score returns bullish minus bearish factor counts, a coarse aggregate used
// in progress payloads.
func (fs FactorSet) Score() int {
	score := 0
	for _, f := range fs.Factors {
		switch f.Signal {
		case SignalBullish:
			score++
		case SignalBearish:
			score--
		}
	}
	return score
}

// Provider computes factor sets. The analysis units depend only on this
// interface; the concrete implementation decides where the data comes from.
type Provider interface {
	Technical(ctx context.Context, symbol string) (FactorSet, error)
	Fundamental(ctx context.Context, symbol string) (FactorSet, error)
}
