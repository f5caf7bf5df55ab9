package orchestrator

import (
	"time"

	"github.com/ducminhle1904/strategy-orchestrator/internal/performance"
	"github.com/ducminhle1904/strategy-orchestrator/internal/portfolio"
	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// MetricsSink receives every executed trade
type MetricsSink interface {
	RecordTrade(trade types.TradeResult)
}

// Observer is notified of lifecycle changes and finished cycles.
// Observers are called synchronously from the cycle goroutine and must not
// call back into the Orchestrator.
type Observer interface {
	OnStateChange(from, to State)
	OnCycle(report CycleReport)
}

// CycleReport summarizes one cycle for observers
type CycleReport struct {
	CycleID             string
	StartedAt           time.Time
	Duration            time.Duration
	Err                 error // nil on success and on cancellation
	Category            string
	Cancelled           bool
	Trades              []types.TradeResult
	Allocation          portfolio.Allocation
	Profile             risk.Profile
	Metrics             performance.Metrics
	ConsecutiveFailures int
	Halted              bool
}

// Succeeded reports whether the cycle ran to completion
func (r CycleReport) Succeeded() bool {
	return r.Err == nil && !r.Cancelled
}
