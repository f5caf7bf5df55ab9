package safety

import (
	"sync"
	"time"
)

// BreakerState represents the state of a failure breaker
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
)

// String returns the string representation of the breaker state
func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// DefaultMaxConsecutiveFailures is the trip threshold used when none is configured.
const DefaultMaxConsecutiveFailures = 5

// BreakerConfig holds configuration for a failure breaker
type BreakerConfig struct {
	MaxConsecutiveFailures int
}

// FailureBreaker counts consecutive cycle failures and opens once the
// threshold is reached. An open breaker stays open until Reset.
type FailureBreaker struct {
	config      BreakerConfig
	state       BreakerState
	failures    int
	totalTrips  int
	lastFailure time.Time
	lastError   string
	mutex       sync.RWMutex
	name        string
}

// NewFailureBreaker creates a new breaker
func NewFailureBreaker(name string, config BreakerConfig) *FailureBreaker {
	if config.MaxConsecutiveFailures <= 0 {
		config.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	return &FailureBreaker{
		config: config,
		state:  StateClosed,
		name:   name,
	}
}

// RecordFailure counts a failure and reports whether the breaker is now open.
func (b *FailureBreaker) RecordFailure(err error) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failures++
	b.lastFailure = time.Now()
	if err != nil {
		b.lastError = err.Error()
	}

	if b.state == StateClosed && b.failures >= b.config.MaxConsecutiveFailures {
		b.state = StateOpen
		b.totalTrips++
	}
	return b.state == StateOpen
}

// RecordSuccess resets the consecutive failure count.
func (b *FailureBreaker) RecordSuccess() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failures = 0
	b.lastError = ""
}

// IsOpen reports whether the breaker has tripped
func (b *FailureBreaker) IsOpen() bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.state == StateOpen
}

// ConsecutiveFailures returns the current failure streak
func (b *FailureBreaker) ConsecutiveFailures() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.failures
}

// BreakerStats holds statistics about a breaker
type BreakerStats struct {
	Name                   string       `json:"name"`
	State                  BreakerState `json:"state"`
	ConsecutiveFailures    int          `json:"consecutive_failures"`
	MaxConsecutiveFailures int          `json:"max_consecutive_failures"`
	TotalTrips             int          `json:"total_trips"`
	LastFailure            time.Time    `json:"last_failure"`
	LastError              string       `json:"last_error,omitempty"`
}

// GetStats returns statistics about the breaker
func (b *FailureBreaker) GetStats() BreakerStats {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return BreakerStats{
		Name:                   b.name,
		State:                  b.state,
		ConsecutiveFailures:    b.failures,
		MaxConsecutiveFailures: b.config.MaxConsecutiveFailures,
		TotalTrips:             b.totalTrips,
		LastFailure:            b.lastFailure,
		LastError:              b.lastError,
	}
}

// Reset closes the breaker and clears the failure streak
func (b *FailureBreaker) Reset() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.lastError = ""
}
