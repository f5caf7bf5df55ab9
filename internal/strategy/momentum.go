package strategy

import (
	"context"
	"fmt"

	"github.com/ducminhle1904/strategy-orchestrator/internal/exchange"
	"github.com/ducminhle1904/strategy-orchestrator/internal/indicators"
	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

const (
	MomentumID = "momentum"

	momentumSMAPeriod = 20
	momentumSlopeLag  = 5
	momentumBuyScore  = 55.0
)

// Momentum follows the strongest trending asset. Strength is the 24h change
// plus the SMA slope when enough history is available.
type Momentum struct {
	trader
	sma *indicators.SMA
}

// NewMomentum creates a momentum strategy trading through wallet
func NewMomentum(wallet exchange.Wallet, quote string) *Momentum {
	return &Momentum{
		trader: newTrader(MomentumID, quote, wallet),
		sma:    indicators.NewSMA(momentumSMAPeriod),
	}
}

type assetStrength struct {
	asset    string
	strength float64
}

func (m *Momentum) strengths(snapshot types.MarketSnapshot) []assetStrength {
	assets := sortedAssets(snapshot)
	out := make([]assetStrength, 0, len(assets))
	for _, asset := range assets {
		s := finite(snapshot.Changes24h[asset])
		if slope, err := m.sma.Slope(snapshot.History[asset], momentumSlopeLag); err == nil {
			s += finite(slope)
		}
		out = append(out, assetStrength{asset: asset, strength: s})
	}
	return out
}

func strongest(list []assetStrength) assetStrength {
	best := list[0]
	for _, s := range list[1:] {
		if s.strength > best.strength {
			best = s
		}
	}
	return best
}

// Evaluate scores the best trend; confidence is the share of trending assets
func (m *Momentum) Evaluate(ctx context.Context, snapshot types.MarketSnapshot) (types.StrategyScore, error) {
	if err := ctx.Err(); err != nil {
		return types.StrategyScore{}, err
	}

	list := m.strengths(snapshot)
	if len(list) == 0 {
		return types.StrategyScore{Rationale: "no priced assets"}, nil
	}

	best := strongest(list)
	up := 0
	for _, s := range list {
		if s.strength > 0 {
			up++
		}
	}

	return ClampScore(types.StrategyScore{
		Score:      50 + best.strength*1000,
		Confidence: float64(up) / float64(len(list)),
		Rationale:  fmt.Sprintf("%s strongest at %+.2f%%, %d/%d assets trending up", best.asset, best.strength*100, up, len(list)),
	}), nil
}

// Execute exits a held asset whose trend turned negative, otherwise buys the strongest
func (m *Momentum) Execute(ctx context.Context, snapshot types.MarketSnapshot, alloc Allocation, profile risk.Profile) (types.TradeResult, error) {
	if alloc.Capital <= 0 {
		return m.hold("no capital allocated"), nil
	}
	list := m.strengths(snapshot)
	if len(list) == 0 {
		return m.hold("no priced assets"), nil
	}

	info, err := m.wallet.GetInfo(ctx)
	if err != nil {
		return types.TradeResult{}, fmt.Errorf("momentum wallet info: %w", err)
	}

	for _, s := range list {
		if s.strength >= 0 {
			continue
		}
		if value := heldValue(info, snapshot, s.asset); value >= m.sizer.MinOrder {
			return m.trade(ctx, s.asset, value, ActionSell, fmt.Sprintf("trend reversed %+.2f%%", s.strength*100))
		}
	}

	best := strongest(list)
	if 50+best.strength*1000 < momentumBuyScore {
		return m.hold(fmt.Sprintf("no asset trending strongly, best %s %+.2f%%", best.asset, best.strength*100)), nil
	}
	return m.buy(ctx, info, best.asset, alloc, profile, best.strength*20, snapshot.VolatilityIndex,
		fmt.Sprintf("momentum %+.2f%%", best.strength*100))
}
