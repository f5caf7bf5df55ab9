package risk

import (
	"fmt"
	"math"
	"strings"
)

// Kind names a risk posture preset.
type Kind int

const (
	KindBalanced Kind = iota
	KindAggressive
	KindLowRisk
)

func (k Kind) String() string {
	switch k {
	case KindAggressive:
		return "AGGRESSIVE"
	case KindBalanced:
		return "BALANCED"
	case KindLowRisk:
		return "LOW_RISK"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the kind by name in JSON
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts any name ParseKind does
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind accepts the preset names used in configuration.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aggressive":
		return KindAggressive, nil
	case "balanced", "":
		return KindBalanced, nil
	case "low_risk", "lowrisk", "low-risk":
		return KindLowRisk, nil
	default:
		return KindBalanced, fmt.Errorf("unknown risk profile %q", s)
	}
}

// Hard bounds the adapter keeps the profile within.
const (
	MinPositionSizeFactor  = 0.5
	MaxPositionSizeFactor  = 1.5
	MinMaxExposurePerAsset = 0.05
	MaxMaxExposurePerAsset = 0.25
)

// Profile is the active risk posture. Only PositionSizeFactor and
// MaxExposurePerAsset are adjusted at runtime.
type Profile struct {
	Kind                Kind    `json:"kind"`
	MaxDrawdown         float64 `json:"max_drawdown"`
	Leverage            float64 `json:"leverage"`
	PositionSizeFactor  float64 `json:"position_size_factor"`
	MaxExposurePerAsset float64 `json:"max_exposure_per_asset"`
	StopLossPct         float64 `json:"stop_loss_pct"`
	TakeProfitPct       float64 `json:"take_profit_pct"`
}

// DefaultProfile returns the preset for kind.
func DefaultProfile(kind Kind) Profile {
	switch kind {
	case KindAggressive:
		return Profile{
			Kind:                KindAggressive,
			MaxDrawdown:         0.25,
			Leverage:            3,
			PositionSizeFactor:  1.3,
			MaxExposurePerAsset: 0.25,
			StopLossPct:         0.08,
			TakeProfitPct:       0.20,
		}
	case KindLowRisk:
		return Profile{
			Kind:                KindLowRisk,
			MaxDrawdown:         0.08,
			Leverage:            1,
			PositionSizeFactor:  0.7,
			MaxExposurePerAsset: 0.08,
			StopLossPct:         0.03,
			TakeProfitPct:       0.06,
		}
	default:
		return Profile{
			Kind:                KindBalanced,
			MaxDrawdown:         0.15,
			Leverage:            2,
			PositionSizeFactor:  1.0,
			MaxExposurePerAsset: 0.15,
			StopLossPct:         0.05,
			TakeProfitPct:       0.12,
		}
	}
}

// MaxPositionValue returns the most capital a single asset may take.
func (p Profile) MaxPositionValue(capital float64) float64 {
	return capital * p.MaxExposurePerAsset
}

// Clamp pulls the adjustable fields back inside the hard bounds.
func (p Profile) Clamp() Profile {
	p.PositionSizeFactor = math.Min(math.Max(p.PositionSizeFactor, MinPositionSizeFactor), MaxPositionSizeFactor)
	p.MaxExposurePerAsset = math.Min(math.Max(p.MaxExposurePerAsset, MinMaxExposurePerAsset), MaxMaxExposurePerAsset)
	return p
}
