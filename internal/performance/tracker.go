package performance

import (
	"math"
	"sync"
	"time"

	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// Tracker accumulates executed trades into Metrics. Baseline capital is the
// first positive capital it sees; returns are measured against it. Win and
// loss statistics only count realized trades, since opening a position has no
// outcome yet.
type Tracker struct {
	mu       sync.RWMutex
	baseline float64
	realized float64
	peak     float64
	maxDD    float64

	trades    int
	closed    int
	wins      int
	losses    int
	grossWin  float64
	grossLoss float64

	daily   map[string]float64
	metrics Metrics
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		daily:   make(map[string]float64),
		metrics: Metrics{DailyReturns: make(map[string]float64)},
	}
}

// Update folds one cycle's trades into the metrics and returns a snapshot.
// Trades that were not executed are ignored.
func (t *Tracker) Update(trades []types.TradeResult, capital float64, at time.Time) Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.baseline <= 0 && capital > 0 {
		t.baseline = capital
		t.peak = capital
	}

	day := at.UTC().Format(DayLayout)
	dayPnL := 0.0
	for _, trade := range trades {
		if !trade.Executed {
			continue
		}
		t.trades++
		if !trade.Realized || math.IsNaN(trade.PnL) || math.IsInf(trade.PnL, 0) {
			continue
		}

		t.closed++
		switch {
		case trade.PnL > 0:
			t.wins++
			t.grossWin += trade.PnL
		case trade.PnL < 0:
			t.losses++
			t.grossLoss += -trade.PnL
		}
		t.realized += trade.PnL
		dayPnL += trade.PnL
	}

	if t.baseline > 0 {
		equity := t.baseline + t.realized
		if equity > t.peak {
			t.peak = equity
		}
		if t.peak > 0 {
			if dd := (t.peak - equity) / t.peak; dd > t.maxDD {
				t.maxDD = dd
			}
		}
	}

	t.daily[day] += dayPnL
	t.recompute(at)
	return t.metrics.Copy()
}

// Snapshot returns a copy of the latest metrics.
func (t *Tracker) Snapshot() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.metrics.Copy()
}

func (t *Tracker) recompute(at time.Time) {
	m := Metrics{
		DailyReturns: make(map[string]float64, len(t.daily)),
		TotalTrades:  t.trades,
		ClosedTrades: t.closed,
		MaxDrawdown:  t.maxDD,
		ProfitFactor: profitFactor(t.grossWin, t.grossLoss),
		UpdatedAt:    at,
	}

	for day, pnl := range t.daily {
		r := 0.0
		if t.baseline > 0 {
			r = pnl / t.baseline
		}
		m.DailyReturns[day] = r
	}
	days := m.Days()
	returns := make([]float64, 0, len(days))
	for _, day := range days {
		returns = append(returns, m.DailyReturns[day])
	}

	if t.baseline > 0 {
		m.TotalReturn = t.realized / t.baseline
	}
	m.Volatility = StdDev(returns)
	m.SharpeRatio = SharpeRatio(returns)

	if t.closed > 0 {
		m.WinRate = float64(t.wins) / float64(t.closed)
	}
	if t.wins > 0 {
		m.AverageWin = t.grossWin / float64(t.wins)
	}
	if t.losses > 0 {
		m.AverageLoss = t.grossLoss / float64(t.losses)
	}

	t.metrics = m
}
