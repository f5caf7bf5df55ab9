package monitoring

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ducminhle1904/strategy-orchestrator/internal/orchestrator"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

const namespace = "orchestrator"

var allStates = []orchestrator.State{
	orchestrator.StateIdle,
	orchestrator.StateRunning,
	orchestrator.StateAwaitingNextCycle,
	orchestrator.StateStopped,
	orchestrator.StateHaltedOnFailure,
}

// Collector exports orchestrator activity as Prometheus metrics. It is the
// orchestrator's MetricsSink and Observer, and listens to feed prices.
type Collector struct {
	registry *prometheus.Registry

	tradesTotal         *prometheus.CounterVec
	tradeAmount         *prometheus.HistogramVec
	cyclesTotal         *prometheus.CounterVec
	cycleDuration       prometheus.Histogram
	errorsTotal         *prometheus.CounterVec
	consecutiveFailures prometheus.Gauge
	allocationWeight    *prometheus.GaugeVec
	riskSetting         *prometheus.GaugeVec
	performance         *prometheus.GaugeVec
	currentPrice        *prometheus.GaugeVec
	state               *prometheus.GaugeVec
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		tradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trades_total",
				Help:      "Total number of trades executed",
			},
			[]string{"strategy", "side"},
		),
		tradeAmount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trade_amount",
				Help:      "Distribution of trade amounts in quote currency",
				Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
			},
			[]string{"strategy"},
		),
		cyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Decision cycles by result",
			},
			[]string{"result"},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of decision cycles",
				Buckets:   prometheus.DefBuckets,
			},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Cycle failures by error category",
			},
			[]string{"category"},
		),
		consecutiveFailures: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "consecutive_failures",
				Help:      "Current run of failed cycles",
			},
		),
		allocationWeight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "allocation_weight",
				Help:      "Capital weight per strategy",
			},
			[]string{"strategy"},
		),
		riskSetting: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "risk_setting",
				Help:      "Adaptive risk profile values",
			},
			[]string{"setting"},
		),
		performance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "performance",
				Help:      "Performance metrics of realized trades",
			},
			[]string{"metric"},
		),
		currentPrice: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "current_price",
				Help:      "Last price per asset",
			},
			[]string{"asset"},
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "state",
				Help:      "1 for the current lifecycle state",
			},
			[]string{"state"},
		),
	}

	c.registry.MustRegister(
		c.tradesTotal,
		c.tradeAmount,
		c.cyclesTotal,
		c.cycleDuration,
		c.errorsTotal,
		c.consecutiveFailures,
		c.allocationWeight,
		c.riskSetting,
		c.performance,
		c.currentPrice,
		c.state,
	)
	c.setState(orchestrator.StateIdle)
	return c
}

// Registry exposes the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the Prometheus metrics endpoint
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordTrade records an executed trade
func (c *Collector) RecordTrade(trade types.TradeResult) {
	if !trade.Executed {
		return
	}
	c.tradesTotal.WithLabelValues(trade.StrategyID, strings.ToLower(trade.Side())).Inc()
	c.tradeAmount.WithLabelValues(trade.StrategyID).Observe(trade.Amount)
}

// OnStateChange tracks the lifecycle state
func (c *Collector) OnStateChange(from, to orchestrator.State) {
	c.setState(to)
}

// OnCycle records the cycle result and the state it committed
func (c *Collector) OnCycle(report orchestrator.CycleReport) {
	c.cycleDuration.Observe(report.Duration.Seconds())
	c.consecutiveFailures.Set(float64(report.ConsecutiveFailures))

	switch {
	case report.Cancelled:
		c.cyclesTotal.WithLabelValues("cancelled").Inc()
		return
	case report.Err != nil:
		c.cyclesTotal.WithLabelValues("failed").Inc()
		c.errorsTotal.WithLabelValues(report.Category).Inc()
		return
	}

	c.cyclesTotal.WithLabelValues("completed").Inc()
	for id, weight := range report.Allocation {
		c.allocationWeight.WithLabelValues(id).Set(weight)
	}

	c.riskSetting.WithLabelValues("position_size_factor").Set(report.Profile.PositionSizeFactor)
	c.riskSetting.WithLabelValues("max_exposure_per_asset").Set(report.Profile.MaxExposurePerAsset)

	m := report.Metrics
	c.performance.WithLabelValues("total_return").Set(m.TotalReturn)
	c.performance.WithLabelValues("sharpe_ratio").Set(m.SharpeRatio)
	c.performance.WithLabelValues("max_drawdown").Set(m.MaxDrawdown)
	c.performance.WithLabelValues("win_rate").Set(m.WinRate)
}

// UpdatePrices records the prices of every snapshot the feed produces
func (c *Collector) UpdatePrices(prices map[string]float64) {
	for asset, price := range prices {
		c.currentPrice.WithLabelValues(asset).Set(price)
	}
}

func (c *Collector) setState(current orchestrator.State) {
	for _, s := range allStates {
		v := 0.0
		if s == current {
			v = 1
		}
		c.state.WithLabelValues(s.String()).Set(v)
	}
}
