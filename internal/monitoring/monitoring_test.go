package monitoring

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/strategy-orchestrator/internal/orchestrator"
	"github.com/ducminhle1904/strategy-orchestrator/internal/performance"
	"github.com/ducminhle1904/strategy-orchestrator/internal/portfolio"
	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

type staticStatus orchestrator.Status

func (s staticStatus) Status() orchestrator.Status { return orchestrator.Status(s) }

func TestCollectorRecordsTrades(t *testing.T) {
	c := NewCollector()

	c.RecordTrade(types.TradeResult{StrategyID: "momentum", Executed: true, IsBuy: true, Amount: 100})
	c.RecordTrade(types.TradeResult{StrategyID: "momentum", Executed: true, IsBuy: false, Amount: 50})
	c.RecordTrade(types.TradeResult{StrategyID: "momentum", Executed: false, IsBuy: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.tradesTotal.WithLabelValues("momentum", "buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tradesTotal.WithLabelValues("momentum", "sell")))
}

func TestCollectorOnCycle(t *testing.T) {
	c := NewCollector()

	c.OnCycle(orchestrator.CycleReport{
		Duration:   time.Second,
		Allocation: portfolio.Allocation{"momentum": 0.7, "mean_reversion": 0.3},
		Profile:    risk.DefaultProfile(risk.KindAggressive),
		Metrics:    performance.Metrics{TotalReturn: 0.05, WinRate: 0.6},
	})
	c.OnCycle(orchestrator.CycleReport{
		Err:                 errors.New("fetch failed"),
		Category:            "MARKET_DATA",
		ConsecutiveFailures: 1,
	})
	c.OnCycle(orchestrator.CycleReport{Cancelled: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.cyclesTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cyclesTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cyclesTotal.WithLabelValues("cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errorsTotal.WithLabelValues("MARKET_DATA")))
	assert.Equal(t, 0.7, testutil.ToFloat64(c.allocationWeight.WithLabelValues("momentum")))
	assert.Equal(t, 1.3, testutil.ToFloat64(c.riskSetting.WithLabelValues("position_size_factor")))
	assert.Equal(t, 0.05, testutil.ToFloat64(c.performance.WithLabelValues("total_return")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.consecutiveFailures))
}

func TestCollectorStateAndPrices(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.state.WithLabelValues("idle")))

	c.OnStateChange(orchestrator.StateIdle, orchestrator.StateHaltedOnFailure)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.state.WithLabelValues("idle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.state.WithLabelValues("halted_on_failure")))

	c.UpdatePrices(map[string]float64{"BTC": 65000})
	assert.Equal(t, 65000.0, testutil.ToFloat64(c.currentPrice.WithLabelValues("BTC")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "orchestrator_current_price"))
}

func TestHealthChecker(t *testing.T) {
	tests := []struct {
		name   string
		status orchestrator.Status
		want   string
		code   int
	}{
		{"awaiting", orchestrator.Status{State: orchestrator.StateAwaitingNextCycle}, "healthy", http.StatusOK},
		{"failing", orchestrator.Status{State: orchestrator.StateAwaitingNextCycle, ConsecutiveFailures: 2}, "degraded", http.StatusServiceUnavailable},
		{"stopped", orchestrator.Status{State: orchestrator.StateStopped}, "degraded", http.StatusServiceUnavailable},
		{"halted", orchestrator.Status{State: orchestrator.StateHaltedOnFailure, ConsecutiveFailures: 5}, "unhealthy", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(staticStatus(tt.status))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.code, rec.Code)
			var body HealthStatus
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.want, body.Status)
			assert.Equal(t, tt.status.State.String(), body.State)
		})
	}
}

func TestStatusHandler(t *testing.T) {
	provider := staticStatus(orchestrator.Status{
		State:      orchestrator.StateAwaitingNextCycle,
		Allocation: portfolio.Allocation{"momentum": 1},
		CycleCount: 3,
	})

	rec := httptest.NewRecorder()
	StatusHandler(provider).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "awaiting_next_cycle", body["state"])
	assert.Equal(t, 3.0, body["cycle_count"])
}
