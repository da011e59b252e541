// Package market abstracts the market data dependency of the analysis units.
// The service treats data acquisition as a pluggable collaborator: production
// deployments inject a real provider, while tests and offline runs use the
// deterministic synthetic source.
package market

import (
	"context"
	"time"
)

// Candle is one daily OHLCV bar.
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Quote is a point-in-time snapshot of a symbol.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Industry  string  `json:"industry"`
	Price     float64 `json:"price"`
	PE        float64 `json:"pe"`
	PB        float64 `json:"pb"`
	ROE       float64 `json:"roe"` // percent
	MarketCap float64 `json:"market_cap"`
}

// Source provides market data for a symbol. Implementations may block on
// network I/O and must honor ctx cancellation.
type Source interface {
	// Daily returns up to n most recent daily candles, oldest first.
	Daily(ctx context.Context, symbol string, n int) ([]Candle, error)
	// Quote returns the latest snapshot for the symbol.
	Quote(ctx context.Context, symbol string) (Quote, error)
}
