package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/strategy-orchestrator/internal/advisory"
	"github.com/ducminhle1904/strategy-orchestrator/internal/exchange"
	"github.com/ducminhle1904/strategy-orchestrator/internal/journal"
	"github.com/ducminhle1904/strategy-orchestrator/internal/performance"
	"github.com/ducminhle1904/strategy-orchestrator/internal/portfolio"
	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
	"github.com/ducminhle1904/strategy-orchestrator/internal/safety"
	"github.com/ducminhle1904/strategy-orchestrator/internal/scheduler"
	"github.com/ducminhle1904/strategy-orchestrator/internal/strategy"
)

const (
	// DefaultCallTimeout bounds every collaborator call
	DefaultCallTimeout = 15 * time.Second
	DefaultQuoteAsset  = "USDT"

	recentEntries = 5
)

// Config holds orchestrator settings
type Config struct {
	RiskProfile            risk.Profile
	MaxConsecutiveFailures int
	BaseInterval           time.Duration
	CallTimeout            time.Duration
	QuoteAsset             string
	LogCapacity            int
}

// DefaultConfig returns a balanced configuration
func DefaultConfig() Config {
	return Config{
		RiskProfile:            risk.DefaultProfile(risk.KindBalanced),
		MaxConsecutiveFailures: safety.DefaultMaxConsecutiveFailures,
		BaseInterval:           scheduler.DefaultBaseInterval,
		CallTimeout:            DefaultCallTimeout,
		QuoteAsset:             DefaultQuoteAsset,
		LogCapacity:            journal.DefaultCapacity,
	}
}

func (c *Config) setDefaults() {
	if c.RiskProfile == (risk.Profile{}) {
		c.RiskProfile = risk.DefaultProfile(risk.KindBalanced)
	}
	c.RiskProfile = c.RiskProfile.Clamp()
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = safety.DefaultMaxConsecutiveFailures
	}
	if c.BaseInterval <= 0 {
		c.BaseInterval = scheduler.DefaultBaseInterval
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.QuoteAsset == "" {
		c.QuoteAsset = DefaultQuoteAsset
	}
	if c.LogCapacity <= 0 {
		c.LogCapacity = journal.DefaultCapacity
	}
}

// Dependencies are the collaborators a cycle drives
type Dependencies struct {
	Market     exchange.MarketData
	Wallet     exchange.Wallet
	Advisor    advisory.Advisor
	Strategies *strategy.Registry

	// Optional
	Adjuster  risk.Adjuster
	Metrics   MetricsSink
	Observers []Observer
	Logger    *zerolog.Logger
}

// Status is a point-in-time copy of the orchestrator's state
type Status struct {
	State               State                `json:"state"`
	LastRun             time.Time            `json:"last_run"`
	NextRun             time.Time            `json:"next_run"`
	RiskProfile         risk.Profile         `json:"risk_profile"`
	Allocation          portfolio.Allocation `json:"allocation"`
	Performance         performance.Metrics  `json:"performance"`
	Recent              []journal.Entry      `json:"recent"`
	ConsecutiveFailures int                  `json:"consecutive_failures"`
	CycleCount          int                  `json:"cycle_count"`
}

// Orchestrator runs decision cycles on an adaptive schedule until stopped
// or halted by consecutive failures.
type Orchestrator struct {
	config Config
	deps   Dependencies
	logger zerolog.Logger

	journal   *journal.Log
	breaker   *safety.FailureBreaker
	scheduler *scheduler.Adaptive
	tracker   *performance.Tracker
	adjuster  risk.Adjuster

	// Guarded by mu. profile and allocation are only replaced by a cycle.
	mu         sync.RWMutex
	state      State
	profile    risk.Profile
	allocation portfolio.Allocation
	volatility float64
	lastRun    time.Time
	nextRun    time.Time
	cycleCount int

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once

	now func() time.Time
}

// New creates an idle orchestrator
func New(config Config, deps Dependencies) (*Orchestrator, error) {
	if deps.Market == nil {
		return nil, fmt.Errorf("market data source is required")
	}
	if deps.Wallet == nil {
		return nil, fmt.Errorf("wallet is required")
	}
	if deps.Advisor == nil {
		return nil, fmt.Errorf("advisor is required")
	}
	if deps.Strategies == nil {
		deps.Strategies, _ = strategy.NewRegistry()
	}
	config.setDefaults()

	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	adjuster := deps.Adjuster
	if adjuster == nil {
		adjuster = risk.NewAdapter()
	}

	return &Orchestrator{
		config:    config,
		deps:      deps,
		logger:    logger.With().Str("component", "orchestrator").Logger(),
		journal:   journal.New(config.LogCapacity),
		breaker:   safety.NewFailureBreaker("cycle", safety.BreakerConfig{MaxConsecutiveFailures: config.MaxConsecutiveFailures}),
		scheduler: scheduler.NewAdaptive(config.BaseInterval),
		tracker:   performance.NewTracker(),
		adjuster:  adjuster,
		state:     StateIdle,
		profile:   config.RiskProfile,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		now:       time.Now,
	}, nil
}

// Start runs the first cycle synchronously and then keeps cycling in the
// background. Cycle failures are recorded, not returned. ctx bounds the whole
// run: cancelling it stops the orchestrator like Stop.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.transition(StateIdle, StateRunning) {
		return fmt.Errorf("start from %s: %w", o.State(), ErrInvalidTransition)
	}

	o.journal.Record(journal.KindStarted, "", map[string]interface{}{
		"strategies":      o.deps.Strategies.IDs(),
		"risk_profile":    o.config.RiskProfile.Kind.String(),
		"max_failures":    o.config.MaxConsecutiveFailures,
		"base_interval_s": o.config.BaseInterval.Seconds(),
	})
	o.logger.Info().
		Strs("strategies", o.deps.Strategies.IDs()).
		Str("risk_profile", o.config.RiskProfile.Kind.String()).
		Msg("Orchestrator started")

	if !o.cycle(ctx) {
		o.closeDone()
		return nil
	}

	go o.loop(ctx)
	return nil
}

// Stop ends the run. A cycle in flight finishes its current step and no
// further cycle is scheduled.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	from := o.state
	if from.IsTerminal() {
		o.mu.Unlock()
		return fmt.Errorf("stop from %s: %w", from, ErrInvalidTransition)
	}
	o.state = StateStopped
	o.nextRun = time.Time{}
	o.mu.Unlock()

	o.stopOnce.Do(func() { close(o.stopCh) })
	o.journal.Record(journal.KindStopped, "", map[string]interface{}{"from": from.String()})
	o.logger.Info().Str("from", from.String()).Msg("Orchestrator stopped")
	o.notifyState(from, StateStopped)

	// Nothing else will close done when no loop was ever started.
	if from == StateIdle {
		o.closeDone()
	}
	return nil
}

// Done is closed once the orchestrator is terminal and no cycle is running
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// State returns the current lifecycle state
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Status returns copies of the orchestrator's state
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return Status{
		State:               o.state,
		LastRun:             o.lastRun,
		NextRun:             o.nextRun,
		RiskProfile:         o.profile,
		Allocation:          o.allocation.Copy(),
		Performance:         o.tracker.Snapshot(),
		Recent:              o.journal.Recent(recentEntries),
		ConsecutiveFailures: o.breaker.ConsecutiveFailures(),
		CycleCount:          o.cycleCount,
	}
}

// DecisionLog returns the last n decision log entries, oldest first.
// n <= 0 returns everything retained.
func (o *Orchestrator) DecisionLog(n int) []journal.Entry {
	return o.journal.Recent(n)
}

// loop arms a one-shot timer after each cycle until a terminal state
func (o *Orchestrator) loop(ctx context.Context) {
	defer o.closeDone()

	for {
		delay, ok := o.scheduleNext()
		if !ok {
			return
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-o.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			_ = o.Stop()
			return
		}

		if !o.transition(StateAwaitingNextCycle, StateRunning) {
			return
		}
		if !o.cycle(ctx) {
			return
		}
	}
}

// scheduleNext computes the next delay; only valid while awaiting
func (o *Orchestrator) scheduleNext() (time.Duration, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateAwaitingNextCycle {
		return 0, false
	}
	allocated := o.allocation.Total()
	delay := o.scheduler.NextDelay(o.volatility, allocated, o.allocation != nil)
	o.nextRun = o.now().Add(delay)

	o.logger.Debug().
		Dur("delay", delay).
		Float64("volatility", o.volatility).
		Float64("allocated_weight", allocated).
		Msg("Next cycle scheduled")
	return delay, true
}

// transition moves from one state to another, failing if the state changed underneath
func (o *Orchestrator) transition(from, to State) bool {
	o.mu.Lock()
	if o.state != from {
		o.mu.Unlock()
		return false
	}
	o.state = to
	o.mu.Unlock()

	o.notifyState(from, to)
	return true
}

func (o *Orchestrator) stopRequested() bool {
	select {
	case <-o.stopCh:
		return true
	default:
		return false
	}
}

func (o *Orchestrator) closeDone() {
	o.doneOnce.Do(func() { close(o.done) })
}

func (o *Orchestrator) notifyState(from, to State) {
	for _, obs := range o.deps.Observers {
		obs.OnStateChange(from, to)
	}
}

func (o *Orchestrator) notifyCycle(report CycleReport) {
	for _, obs := range o.deps.Observers {
		obs.OnCycle(report)
	}
}
