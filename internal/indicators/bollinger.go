package indicators

import "math"

// BollingerBands represents the Bollinger Bands indicator
type BollingerBands struct {
	period         int
	stdDevMultiple float64
}

// NewBollingerBands creates bands period bars wide at stdDev deviations
func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	return &BollingerBands{
		period:         period,
		stdDevMultiple: stdDev,
	}
}

// Bands holds one Bollinger calculation. PercentB is the last price's
// position within the bands, 0 at the lower and 100 at the upper band.
type Bands struct {
	Upper    float64
	Middle   float64
	Lower    float64
	PercentB float64
}

// Calculate computes the bands over the last period prices
func (bb *BollingerBands) Calculate(prices []float64) (Bands, error) {
	if bb.period <= 0 || len(prices) < bb.period {
		return Bands{}, ErrInsufficientData
	}

	recent := prices[len(prices)-bb.period:]
	middle := mean(recent)
	stdDev := populationStdDev(recent, middle)

	b := Bands{
		Upper:  middle + bb.stdDevMultiple*stdDev,
		Middle: middle,
		Lower:  middle - bb.stdDevMultiple*stdDev,
	}

	current := prices[len(prices)-1]
	if b.Upper == b.Lower {
		b.PercentB = 50
	} else {
		b.PercentB = (current - b.Lower) / (b.Upper - b.Lower) * 100
	}
	return b, nil
}

func populationStdDev(values []float64, avg float64) float64 {
	variance := 0.0
	for _, v := range values {
		variance += math.Pow(v-avg, 2)
	}
	return math.Sqrt(variance / float64(len(values)))
}
