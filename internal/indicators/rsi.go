package indicators

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned when a series is shorter than the indicator period.
var ErrInsufficientData = errors.New("insufficient data")

// RSI calculates the Relative Strength Index over closes
type RSI struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSI creates a new RSI with the usual 30/70 thresholds
func NewRSI(period int) *RSI {
	return &RSI{period: period, oversold: 30, overbought: 70}
}

// Calculate returns the RSI of the last period changes in prices
func (r *RSI) Calculate(prices []float64) (float64, error) {
	if r.period <= 0 || len(prices) < r.period+1 {
		return 0, ErrInsufficientData
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := len(prices) - r.period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += math.Abs(change)
		}
	}
	avgGain /= float64(r.period)
	avgLoss /= float64(r.period)

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil
		}
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), nil
}

// IsOversold returns true below the oversold threshold
func (r *RSI) IsOversold(value float64) bool {
	return value < r.oversold
}

// IsOverbought returns true above the overbought threshold
func (r *RSI) IsOverbought(value float64) bool {
	return value > r.overbought
}
