package journal

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of entries kept before the oldest is evicted.
const DefaultCapacity = 100

// Kind identifies what a decision log entry records.
type Kind string

const (
	KindStarted              Kind = "orchestrator_started"
	KindStopped              Kind = "orchestrator_stopped"
	KindHalted               Kind = "orchestrator_halted"
	KindSnapshotFetched      Kind = "snapshot_fetched"
	KindMarketAnalyzed       Kind = "market_analyzed"
	KindStrategyScored       Kind = "strategy_scored"
	KindAllocationNormalized Kind = "allocation_normalized"
	KindAllocationFallback   Kind = "allocation_synthesized"
	KindTradeExecuted        Kind = "trade_executed"
	KindMetricsUpdated       Kind = "metrics_updated"
	KindPerformanceReviewed  Kind = "performance_reviewed"
	KindRiskAdjusted         Kind = "risk_adjusted"
	KindCycleCompleted       Kind = "cycle_completed"
	KindCycleFailed          Kind = "cycle_failed"
	KindCycleCancelled       Kind = "cycle_cancelled"
)

// Entry is a single decision log record. Payload values are expected to be
// plain data (numbers, strings, maps) so entries can be rendered or exported.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Kind      Kind                   `json:"kind"`
	CycleID   string                 `json:"cycle_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Log is a bounded, append-only decision log. Safe for concurrent use.
type Log struct {
	mu       sync.RWMutex
	entries  []Entry
	start    int
	size     int
	capacity int
	total    int
	now      func() time.Time
}

// New creates a log holding at most capacity entries.
// A non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries:  make([]Entry, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Record appends an entry, evicting the oldest once the log is full.
func (l *Log) Record(kind Kind, cycleID string, payload map[string]interface{}) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		Timestamp: l.now(),
		Kind:      kind,
		CycleID:   cycleID,
		Payload:   payload,
	}

	idx := (l.start + l.size) % l.capacity
	l.entries[idx] = entry
	if l.size < l.capacity {
		l.size++
	} else {
		l.start = (l.start + 1) % l.capacity
	}
	l.total++
	return entry
}

// Recent returns the last n entries, most recent last. n <= 0 or n larger
// than the log returns every retained entry.
func (l *Log) Recent(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > l.size {
		n = l.size
	}
	out := make([]Entry, n)
	offset := l.size - n
	for i := 0; i < n; i++ {
		out[i] = l.entries[(l.start+offset+i)%l.capacity]
	}
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Total returns how many entries were ever recorded, evicted ones included.
func (l *Log) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Count returns how many retained entries carry the given kind.
func (l *Log) Count(kind Kind) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0
	for i := 0; i < l.size; i++ {
		if l.entries[(l.start+i)%l.capacity].Kind == kind {
			count++
		}
	}
	return count
}
