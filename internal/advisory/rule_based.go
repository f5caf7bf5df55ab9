package advisory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ducminhle1904/strategy-orchestrator/internal/performance"
	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// RuleBasedConfig holds the thresholds of the in-process oracle
type RuleBasedConfig struct {
	TrendThreshold       float64 // average 24h change that counts as a trend
	OpportunityThreshold float64 // absolute 24h change that flags an asset
	LowVolatility        float64
	HighVolatility       float64
	OpportunityTilt      float64 // weight boost per unit of opportunity confidence
	MinTradesForReview   int // closed trades needed before win rate is judged
	PoorWinRate          float64
	StrongWinRate        float64

	// Strategy ids favored by a bullish and a bearish trend respectively
	TrendFollowers []string
	Contrarians    []string
}

// DefaultRuleBasedConfig returns the default thresholds
func DefaultRuleBasedConfig() RuleBasedConfig {
	return RuleBasedConfig{
		TrendThreshold:       0.01,
		OpportunityThreshold: 0.03,
		LowVolatility:        0.15,
		HighVolatility:       0.5,
		OpportunityTilt:      0.5,
		MinTradesForReview:   10,
		PoorWinRate:          0.4,
		StrongWinRate:        0.6,
		TrendFollowers:       []string{"momentum"},
		Contrarians:          []string{"mean_reversion"},
	}
}

// RuleBased is a deterministic oracle built from simple thresholds
type RuleBased struct {
	config RuleBasedConfig
}

// NewRuleBased creates a rule-based advisor
func NewRuleBased(config RuleBasedConfig) *RuleBased {
	return &RuleBased{config: config}
}

// AnalyzeMarket derives the trend from the average 24h change and flags
// assets moving more than the opportunity threshold.
func (r *RuleBased) AnalyzeMarket(ctx context.Context, snapshot types.MarketSnapshot) (types.MarketAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return types.MarketAnalysis{}, err
	}

	assets := snapshot.Assets()
	sort.Strings(assets)

	analysis := types.MarketAnalysis{
		Trend:         types.TrendNeutral,
		Volatility:    r.volatilityLevel(snapshot.VolatilityIndex),
		Opportunities: []types.Opportunity{},
	}

	sum := 0.0
	for _, asset := range assets {
		change := snapshot.Changes24h[asset]
		sum += change
		if math.Abs(change) < r.config.OpportunityThreshold {
			continue
		}
		opp := types.Opportunity{
			Asset:      asset,
			Confidence: math.Min(math.Abs(change)*10, 1),
		}
		if change > 0 {
			opp.StrategyKind = firstOr(r.config.TrendFollowers, "momentum")
			opp.Rationale = fmt.Sprintf("up %.1f%% in 24h", change*100)
		} else {
			opp.StrategyKind = firstOr(r.config.Contrarians, "mean_reversion")
			opp.Rationale = fmt.Sprintf("down %.1f%% in 24h", -change*100)
		}
		analysis.Opportunities = append(analysis.Opportunities, opp)
	}

	avg := 0.0
	if len(assets) > 0 {
		avg = sum / float64(len(assets))
	}
	switch {
	case avg > r.config.TrendThreshold:
		analysis.Trend = types.TrendBullish
	case avg < -r.config.TrendThreshold:
		analysis.Trend = types.TrendBearish
	}

	analysis.Summary = fmt.Sprintf("%s market, %s volatility, average 24h change %+.2f%% across %d assets",
		analysis.Trend, analysis.Volatility, avg*100, len(assets))
	return analysis, nil
}

func (r *RuleBased) volatilityLevel(index float64) types.VolatilityLevel {
	switch {
	case index < r.config.LowVolatility:
		return types.VolatilityLow
	case index > r.config.HighVolatility:
		return types.VolatilityHigh
	default:
		return types.VolatilityModerate
	}
}

// OptimizeAllocation weights each strategy by score times confidence,
// tilted toward strategies named by the analysis or favored by its trend.
func (r *RuleBased) OptimizeAllocation(ctx context.Context, scores map[string]types.StrategyScore, profile risk.Profile, analysis types.MarketAnalysis) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tilt := make(map[string]float64)
	for _, opp := range analysis.Opportunities {
		tilt[opp.StrategyKind] += opp.Confidence * r.config.OpportunityTilt
	}
	favored := map[types.Trend][]string{
		types.TrendBullish: r.config.TrendFollowers,
		types.TrendBearish: r.config.Contrarians,
	}
	for _, id := range favored[analysis.Trend] {
		tilt[id] += r.config.OpportunityTilt / 2
	}

	raw := make(map[string]float64, len(scores))
	for id, s := range scores {
		w := s.Score * s.Confidence * (1 + tilt[id])
		if w > 0 {
			raw[id] = w
		}
	}
	return raw, nil
}

// AnalyzePerformance compares drawdown and win rate against the profile
func (r *RuleBased) AnalyzePerformance(ctx context.Context, metrics performance.Metrics, profile risk.Profile) (types.PerformanceCommentary, error) {
	if err := ctx.Err(); err != nil {
		return types.PerformanceCommentary{}, err
	}

	var recs []types.Recommendation
	reviewed := metrics.ClosedTrades >= r.config.MinTradesForReview

	if metrics.MaxDrawdown > profile.MaxDrawdown {
		recs = append(recs, types.Recommendation{
			Priority: types.PriorityHigh,
			Category: "risk",
			Action:   fmt.Sprintf("Reduce exposure: drawdown %.1f%% exceeds the %.1f%% limit", metrics.MaxDrawdown*100, profile.MaxDrawdown*100),
		})
	}
	if reviewed && metrics.WinRate < r.config.PoorWinRate {
		recs = append(recs, types.Recommendation{
			Priority: types.PriorityHigh,
			Category: "risk",
			Action:   fmt.Sprintf("Reduce position size: win rate %.0f%% over %d closed trades", metrics.WinRate*100, metrics.ClosedTrades),
		})
	}
	if reviewed && metrics.WinRate > r.config.StrongWinRate && metrics.TotalReturn > 0 && metrics.MaxDrawdown < profile.MaxDrawdown/2 {
		recs = append(recs, types.Recommendation{
			Priority: types.PriorityHigh,
			Category: "risk",
			Action:   fmt.Sprintf("Increase position size: win rate %.0f%% with %.1f%% drawdown", metrics.WinRate*100, metrics.MaxDrawdown*100),
		})
	}
	if len(metrics.DailyReturns) >= 2 && metrics.SharpeRatio < 0 {
		recs = append(recs, types.Recommendation{
			Priority: types.PriorityMedium,
			Category: "strategy",
			Action:   fmt.Sprintf("Review strategy mix: Sharpe ratio %.2f", metrics.SharpeRatio),
		})
	}
	if len(recs) == 0 {
		recs = append(recs, types.Recommendation{
			Priority: types.PriorityLow,
			Category: "monitoring",
			Action:   "Maintain current settings",
		})
	}

	return types.PerformanceCommentary{
		Summary: fmt.Sprintf("return %+.2f%%, drawdown %.2f%%, win rate %.0f%% over %d trades",
			metrics.TotalReturn*100, metrics.MaxDrawdown*100, metrics.WinRate*100, metrics.TotalTrades),
		Recommendations: recs,
	}, nil
}

func firstOr(ids []string, fallback string) string {
	if len(ids) == 0 {
		return fallback
	}
	return ids[0]
}
