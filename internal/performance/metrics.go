package performance

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// DayLayout keys DailyReturns by calendar day.
const DayLayout = "2006-01-02"

// Metrics is a point-in-time view of trading performance.
type Metrics struct {
	TotalReturn  float64            `json:"total_return"`
	SharpeRatio  float64            `json:"sharpe_ratio"`
	MaxDrawdown  float64            `json:"max_drawdown"`
	Volatility   float64            `json:"volatility"`
	WinRate      float64            `json:"win_rate"`
	AverageWin   float64            `json:"average_win"`
	AverageLoss  float64            `json:"average_loss"`
	ProfitFactor float64            `json:"profit_factor"`
	DailyReturns map[string]float64 `json:"daily_returns"`
	TotalTrades  int                `json:"total_trades"`
	ClosedTrades int                `json:"closed_trades"` // realized trades behind the win/loss stats
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Copy returns a deep copy.
func (m Metrics) Copy() Metrics {
	out := m
	out.DailyReturns = make(map[string]float64, len(m.DailyReturns))
	for d, r := range m.DailyReturns {
		out.DailyReturns[d] = r
	}
	return out
}

// Days returns the DailyReturns keys in chronological order.
func (m Metrics) Days() []string {
	days := make([]string, 0, len(m.DailyReturns))
	for d := range m.DailyReturns {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}

// MarshalJSON encodes an unbounded profit factor as -1 since JSON has no infinity.
func (m Metrics) MarshalJSON() ([]byte, error) {
	type alias Metrics
	a := alias(m)
	if math.IsInf(a.ProfitFactor, 0) || math.IsNaN(a.ProfitFactor) {
		a.ProfitFactor = -1
	}
	return json.Marshal(a)
}

// SharpeRatio is mean over population standard deviation, risk free rate 0.
func SharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	stdDev := StdDev(returns)
	if stdDev == 0 || stdDev < 1e-10 {
		return 0
	}
	return mean(returns) / stdDev
}

// StdDev is the population standard deviation.
func StdDev(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	avg := mean(returns)
	variance := 0.0
	for _, r := range returns {
		variance += math.Pow(r-avg, 2)
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// profitFactor is gross profit over gross loss. No losses with some profit
// is +Inf; no profit at all is 0.
func profitFactor(grossWin, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossWin > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossWin / grossLoss
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
