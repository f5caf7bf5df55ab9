package indicators

// SMA represents the Simple Moving Average of closes
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Calculate averages the last period prices
func (s *SMA) Calculate(prices []float64) (float64, error) {
	if s.period <= 0 || len(prices) < s.period {
		return 0, ErrInsufficientData
	}
	return mean(prices[len(prices)-s.period:]), nil
}

// Slope returns the relative change between the SMA now and lag bars ago.
func (s *SMA) Slope(prices []float64, lag int) (float64, error) {
	if lag <= 0 || len(prices) < s.period+lag {
		return 0, ErrInsufficientData
	}
	now, err := s.Calculate(prices)
	if err != nil {
		return 0, err
	}
	before, err := s.Calculate(prices[:len(prices)-lag])
	if err != nil {
		return 0, err
	}
	if before == 0 {
		return 0, nil
	}
	return (now - before) / before, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
