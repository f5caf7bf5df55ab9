package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ducminhle1904/strategy-orchestrator/internal/advisory"
	"github.com/ducminhle1904/strategy-orchestrator/internal/config"
	boterrors "github.com/ducminhle1904/strategy-orchestrator/internal/errors"
	"github.com/ducminhle1904/strategy-orchestrator/internal/exchange"
	"github.com/ducminhle1904/strategy-orchestrator/internal/exchange/bybit"
	"github.com/ducminhle1904/strategy-orchestrator/internal/logger"
	"github.com/ducminhle1904/strategy-orchestrator/internal/monitoring"
	"github.com/ducminhle1904/strategy-orchestrator/internal/notifications"
	"github.com/ducminhle1904/strategy-orchestrator/internal/orchestrator"
	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
	"github.com/ducminhle1904/strategy-orchestrator/internal/strategy"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/reporting"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Optional JSON configuration file overlaid on the environment")
		envFile     = flag.String("env", ".env", "Environment file path")
		dryRun      = flag.Bool("dry-run", true, "Paper trade against live market data")
		statusEvery = flag.Duration("status-every", 0, "Print the status table at this interval (0 disables)")
	)
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "dry-run" {
			cfg.Paper.DryRun = *dryRun
		}
	})
	if cfg.LiveTrading() && !cfg.HasCredentials() {
		fmt.Fprintln(os.Stderr, "❌ Live trading requires BYBIT_API_KEY and BYBIT_API_SECRET")
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Name:    "orchestrator",
		Dir:     cfg.LogDir,
		Level:   cfg.LogLevel,
		Console: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	if err := run(cfg, log, *statusEvery); err != nil {
		log.Error().Err(err).Msg("Orchestrator exited with error")
		log.Close()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// checkCredentials fails fast when the exchange rejects the API key. Other
// errors are left for the first cycle to report.
func checkCredentials(wallet exchange.Wallet, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := wallet.GetInfo(ctx)
	var botErr *boterrors.BotError
	if errors.As(err, &botErr) && botErr.IsFatal() {
		return err
	}
	return nil
}

func run(cfg *config.Config, log *logger.Logger, statusEvery time.Duration) error {
	client := bybit.NewClient(bybit.Config{
		APIKey:        cfg.Exchange.APIKey,
		APISecret:     cfg.Exchange.APISecret,
		Testnet:       cfg.Exchange.Testnet,
		Demo:          cfg.Exchange.Demo,
		RatePerSecond: cfg.Exchange.RatePerSecond,
		Retry:         bybit.DefaultRetryConfig(),
		Logger:        log.Component("bybit"),
	})

	collector := monitoring.NewCollector()
	listeners := []exchange.PriceListener{collector}

	var wallet exchange.Wallet
	if cfg.LiveTrading() {
		wallet = exchange.NewBybitWallet(client, cfg.Market.QuoteAsset, cfg.Market.Category)
		if err := checkCredentials(wallet, cfg.Orchestrator.CallTimeout.Std()); err != nil {
			return err
		}
	} else {
		paper := exchange.NewPaperWallet(cfg.Market.QuoteAsset, cfg.Paper.Balance, cfg.Paper.FeeRate)
		listeners = append(listeners, paper)
		wallet = paper
	}

	feed := exchange.NewFeed(client, exchange.FeedConfig{
		Assets:     cfg.Market.Symbols,
		Quote:      cfg.Market.QuoteAsset,
		Category:   cfg.Market.Category,
		Interval:   bybit.KlineInterval(cfg.Market.KlineInterval),
		KlineLimit: cfg.Market.KlineLimit,
	}, listeners...)

	registry, err := strategy.NewRegistry(
		strategy.NewMomentum(wallet, cfg.Market.QuoteAsset),
		strategy.NewMeanReversion(wallet, cfg.Market.QuoteAsset),
	)
	if err != nil {
		return err
	}

	advisor := advisory.NewGuard(advisory.NewRuleBased(advisory.DefaultRuleBasedConfig()), log.Component("advisory"))

	observers := []orchestrator.Observer{collector}
	var alerter *notifications.Alerter
	if cfg.Notifications.TelegramToken != "" && cfg.Notifications.TelegramChatID != "" {
		notifier := notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)
		alerter = notifications.NewAlerter(notifier, max(1, cfg.Orchestrator.MaxConsecutiveFailures-2), log.Component("alerts"))
		observers = append(observers, alerter)
	}

	orchLogger := log.Logger
	orch, err := orchestrator.New(orchestrator.Config{
		RiskProfile:            risk.DefaultProfile(cfg.RiskKind()),
		MaxConsecutiveFailures: cfg.Orchestrator.MaxConsecutiveFailures,
		BaseInterval:           cfg.Orchestrator.BaseInterval.Std(),
		CallTimeout:            cfg.Orchestrator.CallTimeout.Std(),
		QuoteAsset:             cfg.Market.QuoteAsset,
	}, orchestrator.Dependencies{
		Market:     feed,
		Wallet:     wallet,
		Advisor:    advisor,
		Strategies: registry,
		Metrics:    collector,
		Observers:  observers,
		Logger:     &orchLogger,
	})
	if err != nil {
		return err
	}

	printBanner(cfg, client.GetEnvironment())

	var server *monitoring.Server
	if cfg.Monitoring.Port > 0 {
		server = monitoring.NewServer(cfg.Monitoring.Port, collector, orch, log.Component("monitoring"))
		server.Start()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		return err
	}

	var ticker <-chan time.Time
	if statusEvery > 0 {
		t := time.NewTicker(statusEvery)
		defer t.Stop()
		ticker = t.C
	}

wait:
	for {
		select {
		case <-orch.Done():
			break wait
		case <-ctx.Done():
			log.Info().Msg("Shutdown signal received")
			_ = orch.Stop()
			<-orch.Done()
			break wait
		case <-ticker:
			reporting.RenderStatus(os.Stdout, orch.Status())
		}
	}

	status := orch.Status()
	reporting.RenderStatus(os.Stdout, status)

	if path := reporting.ResolveReportPath(cfg.Report.Path, time.Now()); path != "" {
		if err := reporting.WriteWorkbook(path, status, orch.DecisionLog(0)); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to write report")
		} else {
			log.Info().Str("path", path).Msg("Report written")
		}
	}

	if alerter != nil {
		alerter.Wait()
	}
	if server != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Monitoring server shutdown failed")
		}
	}

	if status.State == orchestrator.StateHaltedOnFailure {
		return fmt.Errorf("halted after %d consecutive failures", status.ConsecutiveFailures)
	}
	return nil
}

func printBanner(cfg *config.Config, env string) {
	mode := "📝 PAPER"
	if cfg.LiveTrading() {
		mode = "💰 LIVE"
	}
	fmt.Println("🚀 Strategy Orchestrator")
	fmt.Printf("   Mode: %s | Exchange: %s | Risk: %s\n", mode, env, cfg.RiskKind())
	fmt.Printf("   Assets: %v / %s | Base interval: %s\n", cfg.Market.Symbols, cfg.Market.QuoteAsset, cfg.Orchestrator.BaseInterval.Std())
	if cfg.Monitoring.Port > 0 {
		fmt.Printf("   Monitoring: http://localhost:%d/metrics\n", cfg.Monitoring.Port)
	}
	fmt.Println()
}
