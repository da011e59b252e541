package factors

import (
	"context"
	"fmt"

	"github.com/RyanProMax/stock-analysis/internal/market"
)

// MarketProvider computes factor sets from a market.Source.
type MarketProvider struct {
	source      market.Source
	historyDays int
}

// NewMarketProvider builds a provider over the given data source.
// historyDays controls how many daily candles the technical factors see.
func NewMarketProvider(source market.Source, historyDays int) *MarketProvider {
	if historyDays < 30 {
		historyDays = 30
	}
	return &MarketProvider{source: source, historyDays: historyDays}
}

// Technical implements Provider.
func (p *MarketProvider) Technical(ctx context.Context, symbol string) (FactorSet, error) {
	candles, err := p.source.Daily(ctx, symbol, p.historyDays)
	if err != nil {
		return FactorSet{}, fmt.Errorf("fetch daily candles for %s: %w", symbol, err)
	}
	if len(candles) < 30 {
		return FactorSet{}, fmt.Errorf("insufficient history for %s: %d candles", symbol, len(candles))
	}
	quote, err := p.source.Quote(ctx, symbol)
	if err != nil {
		return FactorSet{}, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}

	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	set := FactorSet{
		Symbol:    symbol,
		StockName: quote.Name,
		Industry:  quote.Industry,
		Price:     quote.Price,
		Factors: []Factor{
			maFactor(closes),
			macdFactor(closes),
			rsiFactor(closes),
			volumeFactor(volumes),
		},
	}
	return set, nil
}

// Fundamental implements Provider.
func (p *MarketProvider) Fundamental(ctx context.Context, symbol string) (FactorSet, error) {
	quote, err := p.source.Quote(ctx, symbol)
	if err != nil {
		return FactorSet{}, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}
	set := FactorSet{
		Symbol:    symbol,
		StockName: quote.Name,
		Industry:  quote.Industry,
		Price:     quote.Price,
		Factors: []Factor{
			valuationFactor(quote),
			profitabilityFactor(quote),
		},
	}
	return set, nil
}

func maFactor(closes []float64) Factor {
	price := closes[len(closes)-1]
	ma5 := sma(closes, 5)
	ma20 := sma(closes, 20)

	f := Factor{Key: "ma", Name: "Moving Averages"}
	switch {
	case price > ma5 && ma5 > ma20:
		f.Signal = SignalBullish
		f.Status = "uptrend, price above MA5 above MA20"
		f.BullishSignals = append(f.BullishSignals,
			fmt.Sprintf("price %.2f above MA5 %.2f and MA20 %.2f", price, ma5, ma20))
	case price < ma5 && ma5 < ma20:
		f.Signal = SignalBearish
		f.Status = "downtrend, price below MA5 below MA20"
		f.BearishSignals = append(f.BearishSignals,
			fmt.Sprintf("price %.2f below MA5 %.2f and MA20 %.2f", price, ma5, ma20))
	default:
		f.Signal = SignalNeutral
		f.Status = "ranging, moving averages entangled"
	}
	return f
}

func macdFactor(closes []float64) Factor {
	dif, dea, hist := macd(closes)
	f := Factor{Key: "macd", Name: "MACD"}
	switch {
	case dif > dea && hist > 0:
		f.Signal = SignalBullish
		f.Status = fmt.Sprintf("momentum rising, histogram %.3f", hist)
		f.BullishSignals = append(f.BullishSignals, "DIF above DEA with positive histogram")
	case dif < dea && hist < 0:
		f.Signal = SignalBearish
		f.Status = fmt.Sprintf("momentum fading, histogram %.3f", hist)
		f.BearishSignals = append(f.BearishSignals, "DIF below DEA with negative histogram")
	default:
		f.Signal = SignalNeutral
		f.Status = "momentum flat"
	}
	return f
}

func rsiFactor(closes []float64) Factor {
	value := rsi(closes, 14)
	f := Factor{Key: "rsi", Name: "RSI"}
	switch {
	case value < 30:
		f.Signal = SignalBullish
		f.Status = fmt.Sprintf("oversold (%.1f)", value)
		f.BullishSignals = append(f.BullishSignals, fmt.Sprintf("RSI %.1f below 30, rebound zone", value))
	case value > 70:
		f.Signal = SignalBearish
		f.Status = fmt.Sprintf("overbought (%.1f)", value)
		f.BearishSignals = append(f.BearishSignals, fmt.Sprintf("RSI %.1f above 70, pullback risk", value))
	default:
		f.Signal = SignalNeutral
		f.Status = fmt.Sprintf("healthy range (%.1f)", value)
	}
	return f
}

func volumeFactor(volumes []float64) Factor {
	recent := sma(volumes, 5)
	baseline := sma(volumes, 20)
	f := Factor{Key: "volume", Name: "Volume Trend"}
	switch {
	case baseline > 0 && recent > baseline*1.2:
		f.Signal = SignalBullish
		f.Status = "volume expanding versus 20-day baseline"
		f.BullishSignals = append(f.BullishSignals, "5-day volume 20%+ above 20-day average")
	case baseline > 0 && recent < baseline*0.8:
		f.Signal = SignalBearish
		f.Status = "volume contracting versus 20-day baseline"
		f.BearishSignals = append(f.BearishSignals, "5-day volume 20%+ below 20-day average")
	default:
		f.Signal = SignalNeutral
		f.Status = "volume steady"
	}
	return f
}

func valuationFactor(q market.Quote) Factor {
	f := Factor{Key: "valuation", Name: "Valuation"}
	switch {
	case q.PE > 0 && q.PE < 15 && q.PB < 2:
		f.Signal = SignalBullish
		f.Status = fmt.Sprintf("inexpensive, PE %.1f PB %.1f", q.PE, q.PB)
		f.BullishSignals = append(f.BullishSignals, fmt.Sprintf("PE %.1f under 15 with PB %.1f under 2", q.PE, q.PB))
	case q.PE > 40 || q.PB > 8:
		f.Signal = SignalBearish
		f.Status = fmt.Sprintf("stretched, PE %.1f PB %.1f", q.PE, q.PB)
		f.BearishSignals = append(f.BearishSignals, fmt.Sprintf("PE %.1f or PB %.1f above comfort bands", q.PE, q.PB))
	default:
		f.Signal = SignalNeutral
		f.Status = fmt.Sprintf("fair, PE %.1f PB %.1f", q.PE, q.PB)
	}
	return f
}

func profitabilityFactor(q market.Quote) Factor {
	f := Factor{Key: "profitability", Name: "Profitability"}
	switch {
	case q.ROE >= 15:
		f.Signal = SignalBullish
		f.Status = fmt.Sprintf("strong ROE %.1f%%", q.ROE)
		f.BullishSignals = append(f.BullishSignals, fmt.Sprintf("ROE %.1f%% at or above 15%%", q.ROE))
	case q.ROE < 5:
		f.Signal = SignalBearish
		f.Status = fmt.Sprintf("weak ROE %.1f%%", q.ROE)
		f.BearishSignals = append(f.BearishSignals, fmt.Sprintf("ROE %.1f%% under 5%%", q.ROE))
	default:
		f.Signal = SignalNeutral
		f.Status = fmt.Sprintf("moderate ROE %.1f%%", q.ROE)
	}
	return f
}
