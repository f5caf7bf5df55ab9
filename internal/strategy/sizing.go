package strategy

import (
	"math"

	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
)

// PositionSizer turns an allocation and signal into an order amount
type PositionSizer struct {
	// MinOrder is the smallest amount worth sending
	MinOrder float64
}

// Size scales the allocated capital by the profile's position size factor
// and signal strength, damps it in volatile markets and caps it at the
// per-asset exposure limit. Returns 0 when below MinOrder.
func (p PositionSizer) Size(alloc Allocation, profile risk.Profile, strength, volatility float64) float64 {
	if alloc.Capital <= 0 {
		return 0
	}

	size := alloc.Capital * profile.PositionSizeFactor
	size *= 0.5 + clamp(strength, 0, 1) // 50% to 150% of the base size
	size *= 1.0 / (1.0 + clamp(volatility, 0, 1))

	size = math.Min(size, alloc.Capital)
	if limit := profile.MaxPositionValue(alloc.TotalCapital); limit > 0 {
		size = math.Min(size, limit)
	}

	if size < p.MinOrder {
		return 0
	}
	return size
}
