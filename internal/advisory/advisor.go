package advisory

import (
	"context"

	"github.com/ducminhle1904/strategy-orchestrator/internal/performance"
	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// Advisor is the oracle the orchestrator consults each cycle. Its output is
// advice only: the orchestrator normalizes allocations and bounds risk changes.
type Advisor interface {
	// AnalyzeMarket summarizes market conditions from a snapshot
	AnalyzeMarket(ctx context.Context, snapshot types.MarketSnapshot) (types.MarketAnalysis, error)

	// OptimizeAllocation suggests raw strategy weights. They need not sum to 1.
	OptimizeAllocation(ctx context.Context, scores map[string]types.StrategyScore, profile risk.Profile, analysis types.MarketAnalysis) (map[string]float64, error)

	// AnalyzePerformance reviews metrics and recommends risk changes
	AnalyzePerformance(ctx context.Context, metrics performance.Metrics, profile risk.Profile) (types.PerformanceCommentary, error)
}

// NeutralAnalysis is used when no usable analysis is available
func NeutralAnalysis() types.MarketAnalysis {
	return types.MarketAnalysis{
		Trend:         types.TrendNeutral,
		Volatility:    types.VolatilityModerate,
		Opportunities: []types.Opportunity{},
		Summary:       "no analysis available",
	}
}
