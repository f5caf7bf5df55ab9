package types

import "time"

type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

type Ticker struct {
	Symbol    string
	Price     float64
	Change24h float64
	Volume    float64
	Timestamp time.Time
}

type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// MarketSnapshot is the read-only view of the market a cycle works from.
// VolatilityIndex is normalized to [0,1]; 0.25 is considered a typical market.
// History holds recent closes per asset, oldest first.
type MarketSnapshot struct {
	Timestamp       time.Time            `json:"timestamp"`
	VolatilityIndex float64              `json:"volatility_index"`
	Prices          map[string]float64   `json:"prices"`
	Changes24h      map[string]float64   `json:"changes_24h"`
	History         map[string][]float64 `json:"history,omitempty"`
}

// Price returns the last price for asset and whether it was present.
func (s MarketSnapshot) Price(asset string) (float64, bool) {
	p, ok := s.Prices[asset]
	return p, ok && p > 0
}

// Assets returns the assets carrying a positive price.
func (s MarketSnapshot) Assets() []string {
	assets := make([]string, 0, len(s.Prices))
	for a, p := range s.Prices {
		if p > 0 {
			assets = append(assets, a)
		}
	}
	return assets
}
