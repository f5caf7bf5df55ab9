package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/ducminhle1904/strategy-orchestrator/internal/exchange"
	"github.com/ducminhle1904/strategy-orchestrator/internal/indicators"
	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

const (
	MeanReversionID = "mean_reversion"

	reversionRSIPeriod  = 14
	reversionBandPeriod = 20
	reversionBandWidth  = 2.0
	lowerPercentB       = 20.0
	upperPercentB       = 80.0
)

// MeanReversion buys oversold assets and sells held overbought ones
// using RSI and Bollinger %B.
type MeanReversion struct {
	trader
	rsi   *indicators.RSI
	bands *indicators.BollingerBands
}

// NewMeanReversion creates a mean reversion strategy trading through wallet
func NewMeanReversion(wallet exchange.Wallet, quote string) *MeanReversion {
	return &MeanReversion{
		trader: newTrader(MeanReversionID, quote, wallet),
		rsi:    indicators.NewRSI(reversionRSIPeriod),
		bands:  indicators.NewBollingerBands(reversionBandPeriod, reversionBandWidth),
	}
}

type reading struct {
	asset    string
	rsi      float64
	percentB float64
}

func (r reading) oversold(rsi *indicators.RSI) bool {
	return rsi.IsOversold(r.rsi) || r.percentB < lowerPercentB
}

func (r reading) overbought(rsi *indicators.RSI) bool {
	return rsi.IsOverbought(r.rsi) || r.percentB > upperPercentB
}

// readings skips assets without enough history
func (m *MeanReversion) readings(snapshot types.MarketSnapshot) []reading {
	var out []reading
	for _, asset := range sortedAssets(snapshot) {
		history := snapshot.History[asset]
		value, err := m.rsi.Calculate(history)
		if err != nil {
			continue
		}
		b, err := m.bands.Calculate(history)
		if err != nil {
			continue
		}
		out = append(out, reading{asset: asset, rsi: value, percentB: b.PercentB})
	}
	return out
}

func mostOversold(list []reading) reading {
	low := list[0]
	for _, r := range list[1:] {
		if r.rsi < low.rsi {
			low = r
		}
	}
	return low
}

// Evaluate scores the most oversold asset; confidence grows with its distance from the band middle
func (m *MeanReversion) Evaluate(ctx context.Context, snapshot types.MarketSnapshot) (types.StrategyScore, error) {
	if err := ctx.Err(); err != nil {
		return types.StrategyScore{}, err
	}

	list := m.readings(snapshot)
	if len(list) == 0 {
		return types.StrategyScore{Rationale: "insufficient history"}, nil
	}

	low := mostOversold(list)
	score := types.StrategyScore{
		Score:      (70 - low.rsi) * 2,
		Confidence: math.Abs(low.percentB-50) / 50,
		Rationale:  fmt.Sprintf("%s RSI %.1f %%B %.1f", low.asset, low.rsi, low.percentB),
	}
	return ClampScore(score), nil
}

// Execute takes profit on a held overbought asset first, then buys the most oversold
func (m *MeanReversion) Execute(ctx context.Context, snapshot types.MarketSnapshot, alloc Allocation, profile risk.Profile) (types.TradeResult, error) {
	if alloc.Capital <= 0 {
		return m.hold("no capital allocated"), nil
	}
	list := m.readings(snapshot)
	if len(list) == 0 {
		return m.hold("insufficient history"), nil
	}

	info, err := m.wallet.GetInfo(ctx)
	if err != nil {
		return types.TradeResult{}, fmt.Errorf("mean reversion wallet info: %w", err)
	}

	for _, r := range list {
		if !r.overbought(m.rsi) {
			continue
		}
		if value := heldValue(info, snapshot, r.asset); value >= m.sizer.MinOrder {
			return m.trade(ctx, r.asset, value, ActionSell, fmt.Sprintf("overbought RSI %.1f", r.rsi))
		}
	}

	low := mostOversold(list)
	if !low.oversold(m.rsi) {
		return m.hold(fmt.Sprintf("no oversold asset, lowest RSI %.1f", low.rsi)), nil
	}
	return m.buy(ctx, info, low.asset, alloc, profile, (50-low.rsi)/50, snapshot.VolatilityIndex,
		fmt.Sprintf("oversold RSI %.1f %%B %.1f", low.rsi, low.percentB))
}
