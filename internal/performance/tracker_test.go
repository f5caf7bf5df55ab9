package performance

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// trade is a realized sell closing a position with pnl
func trade(pnl float64) types.TradeResult {
	return types.TradeResult{StrategyID: "momentum", Executed: true, PnL: pnl, Realized: true}
}

func openingBuy() types.TradeResult {
	return types.TradeResult{StrategyID: "momentum", IsBuy: true, Executed: true}
}

// TestTrackerSameDayOverwrites checks that two cycles on one day leave a single accumulated entry.
func TestTrackerSameDayOverwrites(t *testing.T) {
	tr := NewTracker()
	day := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	tr.Update([]types.TradeResult{trade(10)}, 1000, day)
	m := tr.Update([]types.TradeResult{trade(-5)}, 1010, day.Add(time.Hour))

	require.Len(t, m.DailyReturns, 1)
	assert.InDelta(t, 0.005, m.DailyReturns["2024-05-01"], 1e-12)
	assert.InDelta(t, 0.005, m.TotalReturn, 1e-12)
	assert.Equal(t, 2, m.TotalTrades)
}

func TestTrackerWinLossStats(t *testing.T) {
	tr := NewTracker()
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	m := tr.Update([]types.TradeResult{trade(30), trade(10), trade(-20), {StrategyID: "held", Executed: false, PnL: 99}}, 1000, at)

	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 3, m.ClosedTrades)
	assert.InDelta(t, 2.0/3, m.WinRate, 1e-12)
	assert.InDelta(t, 20, m.AverageWin, 1e-12)
	assert.InDelta(t, 20, m.AverageLoss, 1e-12)
	assert.InDelta(t, 2, m.ProfitFactor, 1e-12)
	assert.InDelta(t, 0.02, m.TotalReturn, 1e-12)
}

func TestTrackerIgnoresOpeningTradesInWinRate(t *testing.T) {
	tr := NewTracker()
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	buys := make([]types.TradeResult, 10)
	for i := range buys {
		buys[i] = openingBuy()
	}
	m := tr.Update(buys, 1000, at)

	assert.Equal(t, 10, m.TotalTrades)
	assert.Zero(t, m.ClosedTrades)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.AverageLoss)

	unmatched := types.TradeResult{StrategyID: "momentum", Executed: true}
	m = tr.Update([]types.TradeResult{trade(15), trade(-5), unmatched}, 1000, at.Add(time.Hour))

	assert.Equal(t, 13, m.TotalTrades)
	assert.Equal(t, 2, m.ClosedTrades)
	assert.InDelta(t, 0.5, m.WinRate, 1e-12)
	assert.InDelta(t, 3, m.ProfitFactor, 1e-12)
	assert.InDelta(t, 0.01, m.TotalReturn, 1e-12)
}

func TestTrackerDrawdownRecoversWithoutResetting(t *testing.T) {
	tr := NewTracker()
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tr.Update([]types.TradeResult{trade(-100)}, 1000, start)
	tr.Update([]types.TradeResult{trade(300)}, 900, start.Add(time.Hour))
	m := tr.Update([]types.TradeResult{trade(-60)}, 1200, start.Add(2*time.Hour))

	// trough 900 from 1000, later 1140 from a 1200 peak
	assert.InDelta(t, 0.1, m.MaxDrawdown, 1e-12)
}

func TestTrackerDrawdownAndSharpe(t *testing.T) {
	tr := NewTracker()
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tr.Update([]types.TradeResult{trade(100)}, 1000, start)
	tr.Update([]types.TradeResult{trade(-220)}, 1100, start.AddDate(0, 0, 1))
	m := tr.Update([]types.TradeResult{trade(50)}, 880, start.AddDate(0, 0, 2))

	assert.InDelta(t, 0.2, m.MaxDrawdown, 1e-12)
	assert.Len(t, m.DailyReturns, 3)
	assert.Greater(t, m.Volatility, 0.0)
	assert.NotZero(t, m.SharpeRatio)
}

func TestTrackerNoTrades(t *testing.T) {
	tr := NewTracker()
	m := tr.Update(nil, 1000, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 0.0, m.TotalReturn)
	assert.Equal(t, 0.0, m.WinRate)
	assert.Equal(t, 0.0, m.ProfitFactor)
	assert.Equal(t, 0.0, m.SharpeRatio)
	assert.Equal(t, 0.0, m.DailyReturns["2024-05-01"])
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker()
	tr.Update([]types.TradeResult{trade(10)}, 1000, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	snap := tr.Snapshot()
	snap.DailyReturns["2024-05-01"] = 42
	assert.NotEqual(t, 42.0, tr.Snapshot().DailyReturns["2024-05-01"])
}

func TestProfitFactor(t *testing.T) {
	tests := []struct {
		name      string
		grossWin  float64
		grossLoss float64
		want      float64
	}{
		{"empty", 0, 0, 0},
		{"only profit", 15, 0, math.Inf(1)},
		{"only loss", 0, 10, 0},
		{"mixed", 30, 15, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, profitFactor(tt.grossWin, tt.grossLoss))
		})
	}
}

func TestSharpeRatio(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01}))
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01, 0.01, 0.01}))
	assert.Greater(t, SharpeRatio([]float64{0.01, 0.02, 0.03}), 0.0)
	assert.Less(t, SharpeRatio([]float64{-0.01, -0.02, -0.03}), 0.0)
}

func TestMarshalInfiniteProfitFactor(t *testing.T) {
	m := Metrics{ProfitFactor: math.Inf(1)}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"profit_factor":-1`)
}
