package advisory

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog"

	boterrors "github.com/ducminhle1904/strategy-orchestrator/internal/errors"
	"github.com/ducminhle1904/strategy-orchestrator/internal/performance"
	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// Guard coerces whatever an inner Advisor returns into well-formed values
type Guard struct {
	inner  Advisor
	logger zerolog.Logger
}

// NewGuard wraps inner
func NewGuard(inner Advisor, logger zerolog.Logger) *Guard {
	return &Guard{
		inner:  inner,
		logger: logger.With().Str("component", "advisory").Logger(),
	}
}

// AnalyzeMarket never fails: an inner error yields NeutralAnalysis
func (g *Guard) AnalyzeMarket(ctx context.Context, snapshot types.MarketSnapshot) (types.MarketAnalysis, error) {
	analysis, err := g.inner.AnalyzeMarket(ctx, snapshot)
	if err != nil {
		g.logger.Warn().
			Err(boterrors.NewAdvisoryError("advisory", "analyze_market", err)).
			Msg("market analysis unavailable, using neutral analysis")
		return NeutralAnalysis(), nil
	}
	return SanitizeAnalysis(analysis), nil
}

// OptimizeAllocation drops unusable weights and passes errors through
func (g *Guard) OptimizeAllocation(ctx context.Context, scores map[string]types.StrategyScore, profile risk.Profile, analysis types.MarketAnalysis) (map[string]float64, error) {
	raw, err := g.inner.OptimizeAllocation(ctx, scores, profile, analysis)
	if err != nil {
		return nil, boterrors.NewAdvisoryError("advisory", "optimize_allocation", err)
	}
	return SanitizeWeights(raw), nil
}

// AnalyzePerformance normalizes recommendation priorities
func (g *Guard) AnalyzePerformance(ctx context.Context, metrics performance.Metrics, profile risk.Profile) (types.PerformanceCommentary, error) {
	commentary, err := g.inner.AnalyzePerformance(ctx, metrics, profile)
	if err != nil {
		return types.PerformanceCommentary{}, boterrors.NewAdvisoryError("advisory", "analyze_performance", err)
	}
	return SanitizeCommentary(commentary), nil
}

// SanitizeAnalysis maps unknown trend and volatility values to their
// neutral defaults and clamps opportunity confidence to [0,1].
func SanitizeAnalysis(a types.MarketAnalysis) types.MarketAnalysis {
	out := types.MarketAnalysis{
		Trend:         types.ParseTrend(string(a.Trend)),
		Volatility:    types.ParseVolatilityLevel(string(a.Volatility)),
		Opportunities: make([]types.Opportunity, 0, len(a.Opportunities)),
		Summary:       strings.TrimSpace(a.Summary),
	}
	for _, o := range a.Opportunities {
		if o.Asset == "" {
			continue
		}
		o.Confidence = clampUnit(o.Confidence)
		out.Opportunities = append(out.Opportunities, o)
	}
	return out
}

// SanitizeWeights drops negative, NaN and infinite weights
func SanitizeWeights(raw map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for id, w := range raw {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			continue
		}
		out[id] = w
	}
	return out
}

// SanitizeCommentary lower-cases priorities; unknown become low
func SanitizeCommentary(c types.PerformanceCommentary) types.PerformanceCommentary {
	out := types.PerformanceCommentary{
		Summary:         c.Summary,
		Recommendations: make([]types.Recommendation, 0, len(c.Recommendations)),
	}
	for _, rec := range c.Recommendations {
		rec.Priority = types.ParsePriority(string(rec.Priority))
		out.Recommendations = append(out.Recommendations, rec)
	}
	return out
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 1)
}
