package strategy

import (
	"context"
	"math"

	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// Strategy is a pluggable trading heuristic driven by the orchestrator
type Strategy interface {
	// ID returns the stable identifier used as the allocation key
	ID() string

	// Evaluate scores how well the strategy fits the current market
	Evaluate(ctx context.Context, snapshot types.MarketSnapshot) (types.StrategyScore, error)

	// Execute trades with the capital it was allocated. Holding is reported
	// with Executed=false rather than an error.
	Execute(ctx context.Context, snapshot types.MarketSnapshot, alloc Allocation, profile risk.Profile) (types.TradeResult, error)
}

// Allocation is the capital share handed to one strategy for one cycle
type Allocation struct {
	Weight       float64
	Capital      float64 // Weight * TotalCapital
	TotalCapital float64
}

// TradeAction represents the type of trading action
type TradeAction int

const (
	ActionHold TradeAction = iota
	ActionBuy
	ActionSell
)

func (ta TradeAction) String() string {
	switch ta {
	case ActionHold:
		return "HOLD"
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ClampScore bounds a score to [0,100] and its confidence to [0,1]. NaN becomes 0.
func ClampScore(s types.StrategyScore) types.StrategyScore {
	s.Score = clamp(s.Score, 0, 100)
	s.Confidence = clamp(s.Confidence, 0, 1)
	return s
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, lo), hi)
}
