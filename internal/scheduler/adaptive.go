package scheduler

import (
	"math"
	"time"
)

const (
	// DefaultBaseInterval is the delay before the next cycle in a typical market.
	DefaultBaseInterval = 60 * time.Second

	minVolatilityFactor = 0.5
	maxVolatilityFactor = 2.0

	busyActivityFactor  = 0.8
	quietActivityFactor = 1.2
	busyThreshold       = 0.5
)

// Adaptive computes the delay until the next cycle. Higher volatility and
// more capital allocated shorten the delay.
type Adaptive struct {
	Base time.Duration
}

// NewAdaptive creates a scheduler with the given base interval.
// A non-positive base falls back to DefaultBaseInterval.
func NewAdaptive(base time.Duration) *Adaptive {
	if base <= 0 {
		base = DefaultBaseInterval
	}
	return &Adaptive{Base: base}
}

// NextDelay returns base * volatilityFactor * activityFactor rounded to the
// nearest millisecond. allocatedWeight is the total weight of the current
// allocation; hasAllocation is false before any allocation exists.
func (a *Adaptive) NextDelay(volatility float64, allocatedWeight float64, hasAllocation bool) time.Duration {
	factor := VolatilityFactor(volatility) * ActivityFactor(allocatedWeight, hasAllocation)
	ms := float64(a.Base) / float64(time.Millisecond) * factor
	return time.Duration(math.Round(ms)) * time.Millisecond
}

// VolatilityFactor is clamp(1/(4v), 0.5, 2.0). Zero, negative or NaN
// volatility is treated as a calm market.
func VolatilityFactor(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return maxVolatilityFactor
	}
	f := 1 / (4 * v)
	return math.Min(math.Max(f, minVolatilityFactor), maxVolatilityFactor)
}

// ActivityFactor speeds up the cadence when more than half the capital is allocated.
func ActivityFactor(allocatedWeight float64, hasAllocation bool) float64 {
	if !hasAllocation {
		return 1.0
	}
	if allocatedWeight > busyThreshold {
		return busyActivityFactor
	}
	return quietActivityFactor
}
