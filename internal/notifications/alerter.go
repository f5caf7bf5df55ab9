package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/strategy-orchestrator/internal/orchestrator"
)

const (
	defaultWarnAfter = 3
	sendTimeout      = 10 * time.Second
)

// Alerter turns orchestrator events into notifications. A failure streak
// reaching warnAfter warns, a halt is an error. Sends run in the background.
type Alerter struct {
	notifier  Notifier
	warnAfter int
	logger    zerolog.Logger

	mu        sync.Mutex
	lastError string
	wg        sync.WaitGroup
}

// NewAlerter creates an alerter; warnAfter <= 0 uses the default of 3
func NewAlerter(notifier Notifier, warnAfter int, logger zerolog.Logger) *Alerter {
	if warnAfter <= 0 {
		warnAfter = defaultWarnAfter
	}
	return &Alerter{
		notifier:  notifier,
		warnAfter: warnAfter,
		logger:    logger.With().Str("component", "alerts").Logger(),
	}
}

func (a *Alerter) OnCycle(report orchestrator.CycleReport) {
	if report.Err == nil {
		return
	}

	a.mu.Lock()
	a.lastError = report.Err.Error()
	a.mu.Unlock()

	if report.ConsecutiveFailures == a.warnAfter && !report.Halted {
		a.send(LevelWarning, fmt.Sprintf("%d consecutive cycle failures (%s)\n%s",
			report.ConsecutiveFailures, report.Category, report.Err))
	}
}

func (a *Alerter) OnStateChange(from, to orchestrator.State) {
	switch to {
	case orchestrator.StateHaltedOnFailure:
		a.mu.Lock()
		last := a.lastError
		a.mu.Unlock()
		a.send(LevelError, fmt.Sprintf("Orchestrator halted after repeated failures. Restart required.\nLast error: %s", last))
	case orchestrator.StateStopped:
		a.send(LevelInfo, fmt.Sprintf("Orchestrator stopped (was %s)", from))
	}
}

// Wait blocks until every pending alert was sent or timed out
func (a *Alerter) Wait() {
	a.wg.Wait()
}

func (a *Alerter) send(level, message string) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := a.notifier.SendAlert(ctx, level, message); err != nil {
			a.logger.Warn().Err(err).Str("level", level).Msg("Failed to send alert")
		}
	}()
}
