package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/ducminhle1904/strategy-orchestrator/internal/exchange/bybit"
	"github.com/ducminhle1904/strategy-orchestrator/internal/indicators"
	"github.com/ducminhle1904/strategy-orchestrator/internal/safety"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// MarketClient is the subset of the Bybit client the feed needs.
type MarketClient interface {
	GetKlines(ctx context.Context, params bybit.KlineParams) ([]bybit.Kline, error)
	GetTicker(ctx context.Context, category, symbol string) (bybit.Ticker, error)
}

// FeedConfig configures a market feed
type FeedConfig struct {
	Assets         []string
	Quote          string
	Category       string
	Interval       bybit.KlineInterval
	KlineLimit     int
	ReferenceVol   float64 // per-bar return volatility of a typical market
	MaxSnapshotAge time.Duration
}

// Feed builds snapshots from the exchange's tickers and recent klines.
type Feed struct {
	client    MarketClient
	config    FeedConfig
	validator *safety.Validator
	listeners []PriceListener
	now       func() time.Time
}

// NewFeed creates a feed over client for the configured assets
func NewFeed(client MarketClient, config FeedConfig, listeners ...PriceListener) *Feed {
	if config.Quote == "" {
		config.Quote = "USDT"
	}
	if config.Category == "" {
		config.Category = "spot"
	}
	if config.Interval == "" {
		config.Interval = bybit.Interval1h
	}
	if config.KlineLimit <= 0 {
		config.KlineLimit = 48
	}
	if config.ReferenceVol <= 0 {
		config.ReferenceVol = 0.01
	}

	validator := safety.NewValidator()
	validator.MaxSnapshotAge = config.MaxSnapshotAge

	return &Feed{
		client:    client,
		config:    config,
		validator: validator,
		listeners: listeners,
		now:       time.Now,
	}
}

// GetSnapshot fetches every asset; any failure fails the snapshot.
func (f *Feed) GetSnapshot(ctx context.Context) (types.MarketSnapshot, error) {
	snapshot := types.MarketSnapshot{
		Timestamp:  f.now(),
		Prices:     make(map[string]float64, len(f.config.Assets)),
		Changes24h: make(map[string]float64, len(f.config.Assets)),
		History:    make(map[string][]float64, len(f.config.Assets)),
	}

	totalVol, counted := 0.0, 0
	for _, asset := range f.config.Assets {
		symbol := asset + f.config.Quote

		ticker, err := f.client.GetTicker(ctx, f.config.Category, symbol)
		if err != nil {
			return types.MarketSnapshot{}, fmt.Errorf("ticker %s: %w", symbol, err)
		}
		klines, err := f.client.GetKlines(ctx, bybit.KlineParams{
			Category: f.config.Category,
			Symbol:   symbol,
			Interval: f.config.Interval,
			Limit:    f.config.KlineLimit,
		})
		if err != nil {
			return types.MarketSnapshot{}, fmt.Errorf("klines %s: %w", symbol, err)
		}

		closes := make([]float64, 0, len(klines))
		for _, k := range klines {
			closes = append(closes, k.ClosePrice)
		}

		snapshot.Prices[asset] = ticker.LastPrice
		snapshot.Changes24h[asset] = ticker.Price24hPcnt
		snapshot.History[asset] = closes

		if vol := indicators.ReturnVolatility(closes); vol > 0 {
			totalVol += vol
			counted++
		}
	}

	if counted > 0 {
		snapshot.VolatilityIndex = indicators.NormalizeVolatility(totalVol/float64(counted), f.config.ReferenceVol)
	}

	if err := f.validator.ValidateSnapshot(snapshot).Err(); err != nil {
		return types.MarketSnapshot{}, err
	}

	for _, l := range f.listeners {
		l.UpdatePrices(snapshot.Prices)
	}
	return snapshot, nil
}
