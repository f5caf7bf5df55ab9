package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/strategy-orchestrator/internal/advisory"
	boterrors "github.com/ducminhle1904/strategy-orchestrator/internal/errors"
	"github.com/ducminhle1904/strategy-orchestrator/internal/journal"
	"github.com/ducminhle1904/strategy-orchestrator/internal/performance"
	"github.com/ducminhle1904/strategy-orchestrator/internal/portfolio"
	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
	"github.com/ducminhle1904/strategy-orchestrator/internal/strategy"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// errCycleCancelled ends a cycle at a step boundary after Stop
var errCycleCancelled = errors.New("cycle cancelled")

// cycleState carries what one cycle produced so far
type cycleState struct {
	id         string
	startedAt  time.Time
	profile    risk.Profile
	allocation portfolio.Allocation
	traded     float64 // weight of strategies that executed a trade
	trades     []types.TradeResult
	metrics    performance.Metrics
}

// cycle runs one cycle and settles its outcome. It returns true when the
// orchestrator is awaiting the next cycle afterwards.
func (o *Orchestrator) cycle(ctx context.Context) bool {
	o.mu.RLock()
	cs := &cycleState{
		id:        uuid.NewString(),
		startedAt: o.now(),
		profile:   o.profile,
	}
	o.mu.RUnlock()

	err := o.runCycle(ctx, cs)
	return o.finishCycle(cs, err)
}

// runCycle executes fetch, analyze, score, allocate, execute, measure and
// adapt in order. The first failing step aborts the rest.
func (o *Orchestrator) runCycle(ctx context.Context, cs *cycleState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = boterrors.NewPanicError("orchestrator", "run_cycle", r)
		}
	}()

	snapshot, err := o.fetchSnapshot(ctx, cs)
	if err != nil {
		return err
	}
	if o.stopRequested() {
		return errCycleCancelled
	}

	analysis := o.analyzeMarket(ctx, cs, snapshot)
	if o.stopRequested() {
		return errCycleCancelled
	}

	scores, err := o.scoreStrategies(ctx, cs, snapshot)
	if err != nil {
		return err
	}
	if o.stopRequested() {
		return errCycleCancelled
	}

	o.allocate(ctx, cs, scores, analysis)
	if o.stopRequested() {
		return errCycleCancelled
	}

	capital, err := o.execute(ctx, cs, snapshot)
	if err != nil {
		return err
	}
	if o.stopRequested() {
		return errCycleCancelled
	}

	cs.metrics = o.tracker.Update(cs.trades, capital, o.now())
	o.journal.Record(journal.KindMetricsUpdated, cs.id, map[string]interface{}{
		"total_return":  cs.metrics.TotalReturn,
		"sharpe_ratio":  cs.metrics.SharpeRatio,
		"max_drawdown":  cs.metrics.MaxDrawdown,
		"win_rate":      cs.metrics.WinRate,
		"total_trades":  cs.metrics.TotalTrades,
		"cycle_trades":  len(cs.trades),
		"capital":       capital,
		"traded_weight": cs.traded,
	})
	if o.stopRequested() {
		return errCycleCancelled
	}

	o.reviewAndAdapt(ctx, cs)
	return nil
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.config.CallTimeout)
}

func (o *Orchestrator) fetchSnapshot(ctx context.Context, cs *cycleState) (types.MarketSnapshot, error) {
	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	snapshot, err := o.deps.Market.GetSnapshot(callCtx)
	if err != nil {
		return types.MarketSnapshot{}, boterrors.NewMarketDataError("market", "get_snapshot", err)
	}

	o.mu.Lock()
	o.volatility = snapshot.VolatilityIndex
	o.mu.Unlock()

	o.journal.Record(journal.KindSnapshotFetched, cs.id, map[string]interface{}{
		"snapshot_time":    snapshot.Timestamp,
		"volatility_index": snapshot.VolatilityIndex,
		"assets":           len(snapshot.Prices),
	})
	return snapshot, nil
}

// analyzeMarket never fails the cycle: advisory errors fall back to a neutral read
func (o *Orchestrator) analyzeMarket(ctx context.Context, cs *cycleState, snapshot types.MarketSnapshot) types.MarketAnalysis {
	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	payload := map[string]interface{}{}
	analysis, err := o.deps.Advisor.AnalyzeMarket(callCtx, snapshot)
	if err != nil {
		o.logger.Warn().Err(err).Str("cycle_id", cs.id).Msg("Market analysis failed, using neutral analysis")
		analysis = advisory.NeutralAnalysis()
		payload["fallback"] = true
		payload["error"] = err.Error()
	} else {
		analysis = advisory.SanitizeAnalysis(analysis)
	}

	payload["trend"] = string(analysis.Trend)
	payload["volatility"] = string(analysis.Volatility)
	payload["opportunities"] = len(analysis.Opportunities)
	payload["summary"] = analysis.Summary
	o.journal.Record(journal.KindMarketAnalyzed, cs.id, payload)
	return analysis
}

type scored struct {
	id    string
	score types.StrategyScore
	err   error
}

// scoreStrategies evaluates every strategy concurrently and joins before
// returning. Log entries are written in registration order.
func (o *Orchestrator) scoreStrategies(ctx context.Context, cs *cycleState, snapshot types.MarketSnapshot) (map[string]types.StrategyScore, error) {
	all := o.deps.Strategies.All()
	results := make([]scored, len(all))

	var wg sync.WaitGroup
	for i, s := range all {
		wg.Add(1)
		go func(i int, s strategy.Strategy) {
			defer wg.Done()
			results[i] = o.evaluate(ctx, s, snapshot)
		}(i, s)
	}
	wg.Wait()

	scores := make(map[string]types.StrategyScore, len(results))
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		scores[r.id] = r.score
		o.journal.Record(journal.KindStrategyScored, cs.id, map[string]interface{}{
			"strategy":   r.id,
			"score":      r.score.Score,
			"confidence": r.score.Confidence,
			"rationale":  r.score.Rationale,
		})
	}
	return scores, nil
}

func (o *Orchestrator) evaluate(ctx context.Context, s strategy.Strategy, snapshot types.MarketSnapshot) (res scored) {
	res.id = s.ID()
	defer func() {
		if r := recover(); r != nil {
			res.err = boterrors.NewPanicError(res.id, "evaluate", r)
		}
	}()

	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	score, err := s.Evaluate(callCtx, snapshot)
	if err != nil {
		res.err = boterrors.NewStrategyError(res.id, "evaluate", err)
		return res
	}
	res.score = strategy.ClampScore(score)
	return res
}

// allocate normalizes the advisor's weights, or synthesizes them from the
// scores when the advisor fails.
func (o *Orchestrator) allocate(ctx context.Context, cs *cycleState, scores map[string]types.StrategyScore, analysis types.MarketAnalysis) {
	known := o.deps.Strategies.IDs()

	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	raw, err := o.deps.Advisor.OptimizeAllocation(callCtx, scores, cs.profile, analysis)
	if err != nil {
		cs.allocation = portfolio.FromScores(scores, known)
		o.logger.Warn().Err(err).Str("cycle_id", cs.id).Msg("Allocation advice failed, synthesizing from scores")
		o.journal.Record(journal.KindAllocationFallback, cs.id, map[string]interface{}{
			"weights": map[string]float64(cs.allocation.Copy()),
			"error":   err.Error(),
		})
		return
	}

	cs.allocation = portfolio.Normalize(raw, known)
	o.journal.Record(journal.KindAllocationNormalized, cs.id, map[string]interface{}{
		"weights":     map[string]float64(cs.allocation.Copy()),
		"raw_weights": len(raw),
	})
}

// execute hands each strategy with a positive weight its share of the
// wallet's quote balance. Holding is not a failure; an error aborts the rest.
func (o *Orchestrator) execute(ctx context.Context, cs *cycleState, snapshot types.MarketSnapshot) (float64, error) {
	infoCtx, cancel := o.callContext(ctx)
	info, err := o.deps.Wallet.GetInfo(infoCtx)
	cancel()
	if err != nil {
		return 0, boterrors.NewWalletError("wallet", "get_info", err)
	}
	capital := info.Balance(o.config.QuoteAsset)

	for _, s := range o.deps.Strategies.All() {
		weight := cs.allocation[s.ID()]
		if weight <= 0 {
			continue
		}
		if o.stopRequested() {
			return capital, errCycleCancelled
		}

		alloc := strategy.Allocation{Weight: weight, Capital: capital * weight, TotalCapital: capital}
		result, err := o.executeOne(ctx, s, snapshot, alloc, cs.profile)
		if err != nil {
			return capital, err
		}
		if result.StrategyID == "" {
			result.StrategyID = s.ID()
		}
		if !result.Executed {
			o.logger.Debug().Str("strategy", s.ID()).Str("note", result.Note).Msg("Strategy held")
			continue
		}

		cs.trades = append(cs.trades, result)
		cs.traded += weight
		if o.deps.Metrics != nil {
			o.deps.Metrics.RecordTrade(result)
		}
		o.journal.Record(journal.KindTradeExecuted, cs.id, map[string]interface{}{
			"strategy": result.StrategyID,
			"asset":    result.Asset,
			"side":     result.Side(),
			"amount":   result.Amount,
			"price":    result.Price,
			"pnl":      result.PnL,
			"tx_id":    result.TxID,
			"weight":   weight,
		})
		o.logger.Info().
			Str("strategy", result.StrategyID).
			Str("side", result.Side()).
			Str("asset", result.Asset).
			Float64("amount", result.Amount).
			Float64("price", result.Price).
			Msg("Trade executed")
	}
	return capital, nil
}

func (o *Orchestrator) executeOne(ctx context.Context, s strategy.Strategy, snapshot types.MarketSnapshot, alloc strategy.Allocation, profile risk.Profile) (result types.TradeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = boterrors.NewPanicError(s.ID(), "execute", r)
		}
	}()

	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	result, err = s.Execute(callCtx, snapshot, alloc, profile)
	if err != nil {
		return types.TradeResult{}, boterrors.NewStrategyError(s.ID(), "execute", err)
	}
	return result, nil
}

// reviewAndAdapt asks for performance commentary and applies the risk
// adapter. A failed review skips adaptation for this cycle.
func (o *Orchestrator) reviewAndAdapt(ctx context.Context, cs *cycleState) {
	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	commentary, err := o.deps.Advisor.AnalyzePerformance(callCtx, cs.metrics, cs.profile)
	if err != nil {
		o.logger.Warn().Err(err).Str("cycle_id", cs.id).Msg("Performance review failed, keeping risk profile")
		o.journal.Record(journal.KindPerformanceReviewed, cs.id, map[string]interface{}{
			"skipped": true,
			"error":   err.Error(),
		})
		return
	}
	commentary = advisory.SanitizeCommentary(commentary)
	o.journal.Record(journal.KindPerformanceReviewed, cs.id, map[string]interface{}{
		"summary":         commentary.Summary,
		"recommendations": len(commentary.Recommendations),
	})

	adj := o.adjuster.Apply(cs.profile, commentary)
	applied := make([]string, len(adj.Applied))
	for i, d := range adj.Applied {
		applied[i] = d.String()
	}
	o.journal.Record(journal.KindRiskAdjusted, cs.id, map[string]interface{}{
		"changed":                       adj.Changed(),
		"applied":                       applied,
		"position_size_factor_before":   adj.Before.PositionSizeFactor,
		"position_size_factor_after":    adj.After.PositionSizeFactor,
		"max_exposure_per_asset_before": adj.Before.MaxExposurePerAsset,
		"max_exposure_per_asset_after":  adj.After.MaxExposurePerAsset,
	})
	if adj.Changed() {
		o.logger.Info().
			Strs("applied", applied).
			Float64("position_size_factor", adj.After.PositionSizeFactor).
			Float64("max_exposure_per_asset", adj.After.MaxExposurePerAsset).
			Msg("Risk profile adjusted")
	}
	cs.profile = adj.After
}

// finishCycle commits a successful cycle, counts a failed one and records
// cancellation. It returns true when another cycle should be scheduled.
func (o *Orchestrator) finishCycle(cs *cycleState, err error) bool {
	finishedAt := o.now()
	report := CycleReport{
		CycleID:   cs.id,
		StartedAt: cs.startedAt,
		Duration:  finishedAt.Sub(cs.startedAt),
		Trades:    cs.trades,
		Profile:   cs.profile,
		Metrics:   cs.metrics,
	}

	switch {
	case errors.Is(err, errCycleCancelled):
		report.Cancelled = true
		o.journal.Record(journal.KindCycleCancelled, cs.id, map[string]interface{}{
			"trades": len(cs.trades),
		})
		o.logger.Info().Str("cycle_id", cs.id).Msg("Cycle cancelled by stop")

	case err != nil:
		category := string(boterrors.CategoryOf(err))
		halted := o.breaker.RecordFailure(err)
		report.Err = err
		report.Category = category
		report.ConsecutiveFailures = o.breaker.ConsecutiveFailures()
		report.Halted = halted

		o.journal.Record(journal.KindCycleFailed, cs.id, map[string]interface{}{
			"error":                err.Error(),
			"category":             category,
			"consecutive_failures": report.ConsecutiveFailures,
		})
		o.logger.Error().
			Err(err).
			Str("cycle_id", cs.id).
			Str("category", category).
			Int("consecutive_failures", report.ConsecutiveFailures).
			Msg("Cycle failed")

	default:
		o.breaker.RecordSuccess()
		o.mu.Lock()
		o.profile = cs.profile
		o.allocation = cs.allocation
		o.mu.Unlock()

		report.Allocation = cs.allocation.Copy()
		o.journal.Record(journal.KindCycleCompleted, cs.id, map[string]interface{}{
			"duration_ms":   report.Duration.Milliseconds(),
			"trades":        len(cs.trades),
			"traded_weight": cs.traded,
		})
		o.logger.Info().
			Str("cycle_id", cs.id).
			Int("trades", len(cs.trades)).
			Dur("duration", report.Duration).
			Msg("Cycle completed")
	}

	o.mu.Lock()
	o.lastRun = finishedAt
	o.cycleCount++
	state := o.state
	next := state
	if state == StateRunning {
		next = StateAwaitingNextCycle
		if report.Halted {
			next = StateHaltedOnFailure
			o.nextRun = time.Time{}
		}
		o.state = next
	}
	o.mu.Unlock()

	o.notifyCycle(report)
	if next != state {
		o.notifyState(state, next)
	}
	if next == StateHaltedOnFailure {
		o.journal.Record(journal.KindHalted, cs.id, map[string]interface{}{
			"consecutive_failures": report.ConsecutiveFailures,
			"last_error":           fmt.Sprint(err),
		})
		o.logger.Error().
			Int("consecutive_failures", report.ConsecutiveFailures).
			Msg("Circuit breaker tripped, orchestrator halted")
	}
	return next == StateAwaitingNextCycle
}
