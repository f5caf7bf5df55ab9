package indicators

import "math"

// ReturnVolatility is the population standard deviation of simple returns
// between consecutive prices. Non-positive prices are skipped.
func ReturnVolatility(prices []float64) float64 {
	returns := make([]float64, 0, len(prices))
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		returns = append(returns, prices[i]/prices[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}
	return populationStdDev(returns, mean(returns))
}

// NormalizeVolatility maps a per-bar return volatility onto [0,1] where
// reference maps to 0.25, the index of a typical market.
func NormalizeVolatility(vol, reference float64) float64 {
	if reference <= 0 || math.IsNaN(vol) || vol <= 0 {
		return 0
	}
	return math.Min(vol/reference*0.25, 1)
}
