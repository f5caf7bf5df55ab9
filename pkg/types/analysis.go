package types

import "strings"

type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// ParseTrend maps free text to a Trend, falling back to neutral.
func ParseTrend(s string) Trend {
	switch Trend(strings.ToLower(strings.TrimSpace(s))) {
	case TrendBullish:
		return TrendBullish
	case TrendBearish:
		return TrendBearish
	default:
		return TrendNeutral
	}
}

type VolatilityLevel string

const (
	VolatilityLow      VolatilityLevel = "low"
	VolatilityModerate VolatilityLevel = "moderate"
	VolatilityHigh     VolatilityLevel = "high"
)

// ParseVolatilityLevel maps free text to a VolatilityLevel, falling back to moderate.
func ParseVolatilityLevel(s string) VolatilityLevel {
	switch VolatilityLevel(strings.ToLower(strings.TrimSpace(s))) {
	case VolatilityLow:
		return VolatilityLow
	case VolatilityHigh:
		return VolatilityHigh
	default:
		return VolatilityModerate
	}
}

type Opportunity struct {
	Asset        string  `json:"asset"`
	StrategyKind string  `json:"strategy_kind"`
	Confidence   float64 `json:"confidence"`
	Rationale    string  `json:"rationale"`
}

// MarketAnalysis is the advisory oracle's read of the market.
type MarketAnalysis struct {
	Trend         Trend           `json:"trend"`
	Volatility    VolatilityLevel `json:"volatility"`
	Opportunities []Opportunity   `json:"opportunities"`
	Summary       string          `json:"summary,omitempty"`
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps free text to a Priority, falling back to low.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

type Recommendation struct {
	Priority Priority `json:"priority"`
	Category string   `json:"category"`
	Action   string   `json:"action"`
}

// PerformanceCommentary is the oracle's review of recent performance.
type PerformanceCommentary struct {
	Summary         string           `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
}
