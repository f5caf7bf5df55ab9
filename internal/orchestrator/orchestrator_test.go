package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/strategy-orchestrator/internal/errors"
	"github.com/ducminhle1904/strategy-orchestrator/internal/journal"
	"github.com/ducminhle1904/strategy-orchestrator/internal/performance"
	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
	"github.com/ducminhle1904/strategy-orchestrator/internal/strategy"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

type fakeMarket struct {
	mu    sync.Mutex
	calls int
	// failFirst fails the first n fetches; failAll fails every fetch
	failFirst int
	failAll   bool
}

func (m *fakeMarket) GetSnapshot(ctx context.Context) (types.MarketSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failAll || m.calls <= m.failFirst {
		return types.MarketSnapshot{}, errors.New("connection refused")
	}
	return types.MarketSnapshot{
		Timestamp:       time.Now(),
		VolatilityIndex: 0.25,
		Prices:          map[string]float64{"BTC": 50000},
		Changes24h:      map[string]float64{"BTC": 0.01},
	}, nil
}

type fakeWallet struct {
	balance float64
	err     error
}

func (w *fakeWallet) GetInfo(ctx context.Context) (types.WalletInfo, error) {
	if w.err != nil {
		return types.WalletInfo{}, w.err
	}
	return types.WalletInfo{Address: "test", Balances: map[string]float64{"USDT": w.balance}}, nil
}

func (w *fakeWallet) ExecuteTrade(ctx context.Context, asset string, amount float64, isBuy bool) (types.TransactionResult, error) {
	return types.TransactionResult{TxID: "tx", Asset: asset, Amount: amount, IsBuy: isBuy}, nil
}

type fakeAdvisor struct {
	weights    map[string]float64
	commentary types.PerformanceCommentary
	analyzeErr error
	optimErr   error
	perfErr    error
}

func (a *fakeAdvisor) AnalyzeMarket(ctx context.Context, snapshot types.MarketSnapshot) (types.MarketAnalysis, error) {
	if a.analyzeErr != nil {
		return types.MarketAnalysis{}, a.analyzeErr
	}
	return types.MarketAnalysis{Trend: types.TrendBullish, Volatility: types.VolatilityModerate}, nil
}

func (a *fakeAdvisor) OptimizeAllocation(ctx context.Context, scores map[string]types.StrategyScore, profile risk.Profile, analysis types.MarketAnalysis) (map[string]float64, error) {
	if a.optimErr != nil {
		return nil, a.optimErr
	}
	return a.weights, nil
}

func (a *fakeAdvisor) AnalyzePerformance(ctx context.Context, metrics performance.Metrics, profile risk.Profile) (types.PerformanceCommentary, error) {
	if a.perfErr != nil {
		return types.PerformanceCommentary{}, a.perfErr
	}
	return a.commentary, nil
}

type fakeStrategy struct {
	id         string
	score      float64
	confidence float64
	trade      bool
	evaluate   func(ctx context.Context)
	execute    func()

	mu       sync.Mutex
	executed []strategy.Allocation
}

func (s *fakeStrategy) ID() string { return s.id }

func (s *fakeStrategy) Evaluate(ctx context.Context, snapshot types.MarketSnapshot) (types.StrategyScore, error) {
	if s.evaluate != nil {
		s.evaluate(ctx)
	}
	if err := ctx.Err(); err != nil {
		return types.StrategyScore{}, err
	}
	conf := s.confidence
	if conf == 0 {
		conf = 1
	}
	return types.StrategyScore{Score: s.score, Confidence: conf, Rationale: s.id}, nil
}

func (s *fakeStrategy) Execute(ctx context.Context, snapshot types.MarketSnapshot, alloc strategy.Allocation, profile risk.Profile) (types.TradeResult, error) {
	if s.execute != nil {
		s.execute()
	}
	s.mu.Lock()
	s.executed = append(s.executed, alloc)
	s.mu.Unlock()

	if !s.trade {
		return types.TradeResult{StrategyID: s.id, Note: "hold"}, nil
	}
	return types.TradeResult{
		StrategyID: s.id,
		Asset:      "BTC",
		Amount:     alloc.Capital,
		Price:      50000,
		IsBuy:      true,
		Executed:   true,
		Timestamp:  time.Now(),
	}, nil
}

func (s *fakeStrategy) executions() []strategy.Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]strategy.Allocation(nil), s.executed...)
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions [][2]State
	reports     []CycleReport
	trades      []types.TradeResult
}

func (r *recordingObserver) OnStateChange(from, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, [2]State{from, to})
}

func (r *recordingObserver) OnCycle(report CycleReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *recordingObserver) RecordTrade(trade types.TradeResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades = append(r.trades, trade)
}

func (r *recordingObserver) cycles() []CycleReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CycleReport(nil), r.reports...)
}

type harness struct {
	market   *fakeMarket
	wallet   *fakeWallet
	advisor  *fakeAdvisor
	observer *recordingObserver
	config   Config
}

func newHarness() *harness {
	cfg := DefaultConfig()
	cfg.BaseInterval = time.Hour
	return &harness{
		market:   &fakeMarket{},
		wallet:   &fakeWallet{balance: 1000},
		advisor:  &fakeAdvisor{},
		observer: &recordingObserver{},
		config:   cfg,
	}
}

func (h *harness) build(t *testing.T, strategies ...strategy.Strategy) *Orchestrator {
	t.Helper()
	reg, err := strategy.NewRegistry(strategies...)
	require.NoError(t, err)

	o, err := New(h.config, Dependencies{
		Market:     h.market,
		Wallet:     h.wallet,
		Advisor:    h.advisor,
		Strategies: reg,
		Metrics:    h.observer,
		Observers:  []Observer{h.observer},
	})
	require.NoError(t, err)
	return o
}

func kinds(entries []journal.Entry) []journal.Kind {
	out := make([]journal.Kind, len(entries))
	for i, e := range entries {
		out[i] = e.Kind
	}
	return out
}

func countKind(entries []journal.Entry, kind journal.Kind) int {
	n := 0
	for _, e := range entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(DefaultConfig(), Dependencies{})
	assert.Error(t, err)

	_, err = New(DefaultConfig(), Dependencies{Market: &fakeMarket{}, Wallet: &fakeWallet{}})
	assert.Error(t, err)
}

func TestNewClampsConfiguredRiskProfile(t *testing.T) {
	h := newHarness()
	h.config.RiskProfile = risk.DefaultProfile(risk.KindAggressive)
	h.config.RiskProfile.PositionSizeFactor = 3
	h.config.RiskProfile.MaxExposurePerAsset = 0.01

	status := h.build(t).Status()
	assert.Equal(t, risk.MaxPositionSizeFactor, status.RiskProfile.PositionSizeFactor)
	assert.Equal(t, risk.MinMaxExposurePerAsset, status.RiskProfile.MaxExposurePerAsset)
	assert.Equal(t, risk.KindAggressive, status.RiskProfile.Kind)
}

func TestDegenerateAdviceSplitsEqually(t *testing.T) {
	h := newHarness()
	h.advisor.weights = map[string]float64{}
	o := h.build(t,
		&fakeStrategy{id: "s1", score: 40},
		&fakeStrategy{id: "s2", score: 70},
		&fakeStrategy{id: "s3", score: 55},
	)

	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()

	status := o.Status()
	assert.Equal(t, StateAwaitingNextCycle, status.State)
	require.Len(t, status.Allocation, 3)
	for _, id := range []string{"s1", "s2", "s3"} {
		assert.InDelta(t, 1.0/3.0, status.Allocation[id], 1e-9)
	}
	assert.InDelta(t, 1.0, status.Allocation.Total(), 1e-9)
	assert.Equal(t, 1, countKind(o.DecisionLog(0), journal.KindAllocationNormalized))
	assert.Zero(t, countKind(o.DecisionLog(0), journal.KindCycleFailed))
}

func TestAllocationSynthesizedWhenAdvisorFails(t *testing.T) {
	h := newHarness()
	h.advisor.optimErr = errors.New("oracle timeout")
	o := h.build(t,
		&fakeStrategy{id: "s1", score: 40},
		&fakeStrategy{id: "s2", score: 60},
	)

	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()

	status := o.Status()
	assert.InDelta(t, 0.4, status.Allocation["s1"], 1e-9)
	assert.InDelta(t, 0.6, status.Allocation["s2"], 1e-9)
	assert.Equal(t, 0, status.ConsecutiveFailures)
	assert.Equal(t, 1, countKind(o.DecisionLog(0), journal.KindAllocationFallback))
}

func TestCycleRunsStepsInOrder(t *testing.T) {
	h := newHarness()
	h.advisor.weights = map[string]float64{"trader": 3, "holder": 1}
	h.advisor.commentary = types.PerformanceCommentary{
		Recommendations: []types.Recommendation{
			{Priority: "high", Category: "risk", Action: "Reduce exposure after drawdown"},
			{Priority: "low", Category: "risk", Action: "Increase position size"},
		},
	}
	trader := &fakeStrategy{id: "trader", score: 80, trade: true}
	holder := &fakeStrategy{id: "holder", score: 20}
	o := h.build(t, trader, holder)

	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()

	assert.Equal(t, []journal.Kind{
		journal.KindStarted,
		journal.KindSnapshotFetched,
		journal.KindMarketAnalyzed,
		journal.KindStrategyScored,
		journal.KindStrategyScored,
		journal.KindAllocationNormalized,
		journal.KindTradeExecuted,
		journal.KindMetricsUpdated,
		journal.KindPerformanceReviewed,
		journal.KindRiskAdjusted,
		journal.KindCycleCompleted,
	}, kinds(o.DecisionLog(0)))

	scored := o.DecisionLog(0)[3:5]
	assert.Equal(t, "trader", scored[0].Payload["strategy"])
	assert.Equal(t, "holder", scored[1].Payload["strategy"])

	execs := trader.executions()
	require.Len(t, execs, 1)
	assert.InDelta(t, 0.75, execs[0].Weight, 1e-9)
	assert.InDelta(t, 750, execs[0].Capital, 1e-9)
	assert.Equal(t, 1000.0, execs[0].TotalCapital)
	assert.Len(t, holder.executions(), 1)

	status := o.Status()
	assert.InDelta(t, 0.9, status.RiskProfile.PositionSizeFactor, 1e-9)
	assert.InDelta(t, 0.135, status.RiskProfile.MaxExposurePerAsset, 1e-9)
	assert.Equal(t, 1, status.Performance.TotalTrades)
	assert.Len(t, status.Recent, 5)
	assert.Equal(t, 1, status.CycleCount)

	require.Len(t, h.observer.trades, 1)
	assert.Equal(t, "trader", h.observer.trades[0].StrategyID)

	reports := h.observer.cycles()
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Succeeded())
	assert.InDelta(t, 0.75, reports[0].Allocation["trader"], 1e-9)
}

func TestZeroWeightStrategiesAreNotExecuted(t *testing.T) {
	h := newHarness()
	h.advisor.weights = map[string]float64{"a": 1, "b": 0}
	a := &fakeStrategy{id: "a", score: 50}
	b := &fakeStrategy{id: "b", score: 50}
	o := h.build(t, a, b)

	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()

	assert.Len(t, a.executions(), 1)
	assert.Empty(t, b.executions())
}

func TestHaltsAfterConsecutiveFetchFailures(t *testing.T) {
	h := newHarness()
	h.config.BaseInterval = time.Millisecond
	h.market.failAll = true
	s := &fakeStrategy{id: "s1", score: 50, trade: true}
	o := h.build(t, s)

	require.NoError(t, o.Start(context.Background()))

	select {
	case <-o.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not halt")
	}

	status := o.Status()
	assert.Equal(t, StateHaltedOnFailure, status.State)
	assert.Equal(t, 5, status.ConsecutiveFailures)
	assert.Equal(t, 5, status.CycleCount)

	entries := o.DecisionLog(0)
	assert.Equal(t, 5, countKind(entries, journal.KindCycleFailed))
	assert.Zero(t, countKind(entries, journal.KindTradeExecuted))
	assert.Equal(t, 1, countKind(entries, journal.KindHalted))
	assert.Empty(t, s.executions())

	for _, e := range entries {
		if e.Kind == journal.KindCycleFailed {
			assert.Equal(t, string(boterrors.ErrorCategoryMarketData), e.Payload["category"])
		}
	}

	assert.ErrorIs(t, o.Stop(), ErrInvalidTransition)
	assert.ErrorIs(t, o.Start(context.Background()), ErrInvalidTransition)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	h := newHarness()
	h.config.BaseInterval = time.Millisecond
	h.config.MaxConsecutiveFailures = 3
	h.market.failFirst = 2
	o := h.build(t, &fakeStrategy{id: "s1", score: 50})

	require.NoError(t, o.Start(context.Background()))
	require.Eventually(t, func() bool {
		return o.Status().CycleCount >= 4
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, o.Stop())
	<-o.Done()

	status := o.Status()
	assert.Equal(t, StateStopped, status.State)
	assert.Equal(t, 0, status.ConsecutiveFailures)
	assert.Equal(t, 2, countKind(o.DecisionLog(0), journal.KindCycleFailed))
}

func TestStateTransitions(t *testing.T) {
	t.Run("stop from idle", func(t *testing.T) {
		o := newHarness().build(t)
		require.NoError(t, o.Stop())
		assert.Equal(t, StateStopped, o.State())

		select {
		case <-o.Done():
		default:
			t.Fatal("done not closed after stop from idle")
		}
		assert.ErrorIs(t, o.Start(context.Background()), ErrInvalidTransition)
		assert.ErrorIs(t, o.Stop(), ErrInvalidTransition)
	})

	t.Run("double start", func(t *testing.T) {
		o := newHarness().build(t)
		require.NoError(t, o.Start(context.Background()))
		assert.ErrorIs(t, o.Start(context.Background()), ErrInvalidTransition)
		require.NoError(t, o.Stop())
		<-o.Done()
	})

	t.Run("observers see transitions", func(t *testing.T) {
		h := newHarness()
		o := h.build(t)
		require.NoError(t, o.Start(context.Background()))
		require.NoError(t, o.Stop())
		<-o.Done()

		h.observer.mu.Lock()
		defer h.observer.mu.Unlock()
		assert.Equal(t, [][2]State{
			{StateIdle, StateRunning},
			{StateRunning, StateAwaitingNextCycle},
			{StateAwaitingNextCycle, StateStopped},
		}, h.observer.transitions)
	})

	t.Run("context cancel stops loop", func(t *testing.T) {
		h := newHarness()
		o := h.build(t)
		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, o.Start(ctx))
		cancel()

		select {
		case <-o.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("loop did not exit on context cancel")
		}
		assert.Equal(t, StateStopped, o.State())
	})
}

func TestStopMidCycleCancelsAtCheckpoint(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	h := newHarness()
	slow := &fakeStrategy{id: "slow", score: 50, trade: true, evaluate: func(ctx context.Context) {
		once.Do(func() { close(entered) })
		<-release
	}}
	o := h.build(t, slow)

	started := make(chan error, 1)
	go func() { started <- o.Start(context.Background()) }()

	<-entered
	assert.Equal(t, StateRunning, o.State())
	require.NoError(t, o.Stop())
	close(release)

	require.NoError(t, <-started)
	<-o.Done()

	entries := o.DecisionLog(0)
	assert.Equal(t, StateStopped, o.State())
	assert.Equal(t, 1, countKind(entries, journal.KindCycleCancelled))
	assert.Zero(t, countKind(entries, journal.KindCycleFailed))
	assert.Zero(t, countKind(entries, journal.KindTradeExecuted))
	assert.Empty(t, slow.executions())
	assert.Equal(t, 0, o.Status().ConsecutiveFailures)
}

func TestAdvisoryFailuresDoNotFailCycle(t *testing.T) {
	h := newHarness()
	h.advisor.analyzeErr = errors.New("bad json")
	h.advisor.perfErr = errors.New("rate limited")
	h.advisor.weights = map[string]float64{"s1": 1}
	o := h.build(t, &fakeStrategy{id: "s1", score: 50})

	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()

	entries := o.DecisionLog(0)
	assert.Equal(t, 1, countKind(entries, journal.KindCycleCompleted))
	assert.Zero(t, countKind(entries, journal.KindRiskAdjusted))

	for _, e := range entries {
		switch e.Kind {
		case journal.KindMarketAnalyzed:
			assert.Equal(t, true, e.Payload["fallback"])
			assert.Equal(t, "neutral", e.Payload["trend"])
		case journal.KindPerformanceReviewed:
			assert.Equal(t, true, e.Payload["skipped"])
		}
	}
	assert.Equal(t, risk.DefaultProfile(risk.KindBalanced), o.Status().RiskProfile)
}

func TestCollaboratorFailuresCountAsCycleFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(h *harness, s *fakeStrategy)
		category boterrors.ErrorCategory
	}{
		{
			name:     "wallet unavailable",
			setup:    func(h *harness, s *fakeStrategy) { h.wallet.err = errors.New("wallet locked") },
			category: boterrors.ErrorCategoryWallet,
		},
		{
			name:     "strategy panics",
			setup:    func(h *harness, s *fakeStrategy) { s.execute = func() { panic("boom") } },
			category: boterrors.ErrorCategoryPanic,
		},
		{
			name: "strategy evaluation times out",
			setup: func(h *harness, s *fakeStrategy) {
				h.config.CallTimeout = 20 * time.Millisecond
				s.evaluate = func(ctx context.Context) { <-ctx.Done() }
			},
			category: boterrors.ErrorCategoryTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.advisor.weights = map[string]float64{"s1": 1}
			s := &fakeStrategy{id: "s1", score: 50, trade: true}
			tt.setup(h, s)
			o := h.build(t, s)

			require.NoError(t, o.Start(context.Background()))
			defer o.Stop()

			status := o.Status()
			assert.Equal(t, StateAwaitingNextCycle, status.State)
			assert.Equal(t, 1, status.ConsecutiveFailures)
			assert.Nil(t, status.Allocation)

			entries := o.DecisionLog(0)
			require.Equal(t, 1, countKind(entries, journal.KindCycleFailed))
			last := entries[len(entries)-1]
			assert.Equal(t, journal.KindCycleFailed, last.Kind)
			assert.Equal(t, string(tt.category), last.Payload["category"])
			assert.Zero(t, countKind(entries, journal.KindTradeExecuted))

			reports := h.observer.cycles()
			require.Len(t, reports, 1)
			assert.Error(t, reports[0].Err)
		})
	}
}

func TestLoopReschedules(t *testing.T) {
	h := newHarness()
	h.config.BaseInterval = time.Millisecond
	h.advisor.weights = map[string]float64{"s1": 1}
	o := h.build(t, &fakeStrategy{id: "s1", score: 50, trade: true})

	require.NoError(t, o.Start(context.Background()))
	require.Eventually(t, func() bool {
		return o.Status().CycleCount >= 3
	}, 5*time.Second, time.Millisecond)

	status := o.Status()
	assert.False(t, status.NextRun.IsZero())
	assert.False(t, status.LastRun.IsZero())
	assert.InDelta(t, 1.0, status.Allocation["s1"], 1e-9)

	require.NoError(t, o.Stop())
	<-o.Done()
	assert.GreaterOrEqual(t, len(h.observer.cycles()), 3)
}

func TestCadenceFollowsAllocatedWeight(t *testing.T) {
	clock := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		weights map[string]float64
		trade   bool
		want    time.Duration
	}{
		// volatility 0.25 keeps the volatility factor at 1
		{"fully allocated strategy holding", map[string]float64{"s1": 1}, false, 48 * time.Second},
		{"fully allocated strategy trading", map[string]float64{"s1": 1}, true, 48 * time.Second},
		{"nothing allocated", map[string]float64{}, false, 48 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.config.BaseInterval = time.Minute
			h.advisor.weights = tt.weights
			o := h.build(t, &fakeStrategy{id: "s1", score: 50, trade: tt.trade})
			o.now = func() time.Time { return clock }

			require.NoError(t, o.Start(context.Background()))
			defer o.Stop()

			require.Eventually(t, func() bool {
				return !o.Status().NextRun.IsZero()
			}, time.Second, time.Millisecond)
			assert.Equal(t, tt.want, o.Status().NextRun.Sub(clock))
		})
	}
}

func TestCadenceQuietWithEmptyAllocation(t *testing.T) {
	clock := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	h := newHarness()
	h.config.BaseInterval = time.Minute
	o := h.build(t)
	o.now = func() time.Time { return clock }

	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()

	require.Eventually(t, func() bool {
		return !o.Status().NextRun.IsZero()
	}, time.Second, time.Millisecond)
	assert.Equal(t, 72*time.Second, o.Status().NextRun.Sub(clock))
}

func TestNoStrategiesCompletesWithEmptyAllocation(t *testing.T) {
	h := newHarness()
	o := h.build(t)

	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()

	status := o.Status()
	assert.NotNil(t, status.Allocation)
	assert.Empty(t, status.Allocation)
	assert.Equal(t, 1, countKind(o.DecisionLog(0), journal.KindCycleCompleted))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "halted_on_failure", StateHaltedOnFailure.String())
	assert.True(t, StateStopped.IsTerminal())
	assert.False(t, StateAwaitingNextCycle.IsTerminal())

	text, err := StateRunning.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "running", string(text))
}
