package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Environment string `json:"environment"`
	LogLevel    string `json:"log_level"`
	LogDir      string `json:"log_dir"`

	Orchestrator  OrchestratorConfig  `json:"orchestrator"`
	Market        MarketConfig        `json:"market"`
	Exchange      ExchangeConfig      `json:"exchange"`
	Paper         PaperConfig         `json:"paper"`
	Monitoring    MonitoringConfig    `json:"monitoring"`
	Notifications NotificationsConfig `json:"notifications"`
	Report        ReportConfig        `json:"report"`
}

type OrchestratorConfig struct {
	RiskProfile            string   `json:"risk_profile"`
	MaxConsecutiveFailures int      `json:"max_consecutive_failures"`
	BaseInterval           Duration `json:"base_interval"`
	CallTimeout            Duration `json:"call_timeout"`
}

type MarketConfig struct {
	QuoteAsset    string   `json:"quote_asset"`
	Symbols       []string `json:"symbols"` // base assets, e.g. BTC
	Category      string   `json:"category"`
	KlineInterval string   `json:"kline_interval"`
	KlineLimit    int      `json:"kline_limit"`
}

type ExchangeConfig struct {
	APIKey        string  `json:"api_key"`
	APISecret     string  `json:"api_secret"`
	Demo          bool    `json:"demo"`
	Testnet       bool    `json:"testnet"`
	RatePerSecond float64 `json:"rate_per_second"`
}

type PaperConfig struct {
	DryRun  bool    `json:"dry_run"`
	Balance float64 `json:"balance"`
	FeeRate float64 `json:"fee_rate"`
}

type MonitoringConfig struct {
	Port int `json:"port"` // 0 disables the server
}

type NotificationsConfig struct {
	TelegramToken  string `json:"telegram_token"`
	TelegramChatID string `json:"telegram_chat_id"`
}

type ReportConfig struct {
	Path string `json:"path"`
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	c := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogDir:      getEnv("LOG_DIR", "logs"),

		Orchestrator: OrchestratorConfig{
			RiskProfile:            getEnv("RISK_PROFILE", "balanced"),
			MaxConsecutiveFailures: getEnvInt("MAX_CONSECUTIVE_FAILURES", 5),
			BaseInterval:           Duration(getEnvDuration("BASE_INTERVAL", 60*time.Second)),
			CallTimeout:            Duration(getEnvDuration("CALL_TIMEOUT", 15*time.Second)),
		},
		Market: MarketConfig{
			QuoteAsset:    strings.ToUpper(getEnv("QUOTE_ASSET", "USDT")),
			Symbols:       getEnvList("SYMBOLS", []string{"BTC", "ETH", "SOL"}),
			Category:      getEnv("EXCHANGE_CATEGORY", "spot"),
			KlineInterval: getEnv("KLINE_INTERVAL", "60"),
			KlineLimit:    getEnvInt("KLINE_LIMIT", 48),
		},
		Exchange: ExchangeConfig{
			APIKey:        getEnv("BYBIT_API_KEY", ""),
			APISecret:     getEnv("BYBIT_API_SECRET", ""),
			Demo:          getEnvBool("BYBIT_DEMO", false),
			Testnet:       getEnvBool("BYBIT_TESTNET", true),
			RatePerSecond: getEnvFloat("API_RATE_PER_SEC", 5),
		},
		Paper: PaperConfig{
			DryRun:  getEnvBool("DRY_RUN", true),
			Balance: getEnvFloat("PAPER_BALANCE", 10000),
			FeeRate: getEnvFloat("PAPER_FEE_RATE", 0.001),
		},
		Monitoring: MonitoringConfig{
			Port: getEnvInt("MONITORING_PORT", 8080),
		},
		Notifications: NotificationsConfig{
			TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
			TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),
		},
		Report: ReportConfig{
			Path: getEnv("REPORT_PATH", ""),
		},
	}

	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadEnvFile loads a .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadFile reads the environment and overlays the JSON file at path
func LoadFile(path string) (*Config, error) {
	c, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// RiskKind returns the configured risk preset
func (c *Config) RiskKind() risk.Kind {
	kind, _ := risk.ParseKind(c.Orchestrator.RiskProfile)
	return kind
}

// LiveTrading reports whether orders go to the exchange
func (c *Config) LiveTrading() bool {
	return !c.Paper.DryRun
}

// HasCredentials reports whether exchange credentials are set
func (c *Config) HasCredentials() bool {
	return c.Exchange.APIKey != "" && c.Exchange.APISecret != ""
}

func (c *Config) setDefaults() {
	if c.Orchestrator.MaxConsecutiveFailures == 0 {
		c.Orchestrator.MaxConsecutiveFailures = 5
	}
	if c.Orchestrator.BaseInterval == 0 {
		c.Orchestrator.BaseInterval = Duration(60 * time.Second)
	}
	if c.Orchestrator.CallTimeout == 0 {
		c.Orchestrator.CallTimeout = Duration(15 * time.Second)
	}
	if c.Market.QuoteAsset == "" {
		c.Market.QuoteAsset = "USDT"
	}
	if c.Market.Category == "" {
		c.Market.Category = "spot"
	}
	if c.Market.KlineInterval == "" {
		c.Market.KlineInterval = "60"
	}
	if c.Market.KlineLimit == 0 {
		c.Market.KlineLimit = 48
	}
	for i, s := range c.Market.Symbols {
		c.Market.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
}

func (c *Config) validate() error {
	if _, err := risk.ParseKind(c.Orchestrator.RiskProfile); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Orchestrator.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("%w: max consecutive failures must be at least 1", ErrInvalidConfig)
	}
	if c.Orchestrator.BaseInterval.Std() <= 0 || c.Orchestrator.CallTimeout.Std() <= 0 {
		return fmt.Errorf("%w: intervals must be positive", ErrInvalidConfig)
	}
	if len(c.Market.Symbols) == 0 {
		return fmt.Errorf("%w: at least one symbol is required", ErrInvalidConfig)
	}
	for _, s := range c.Market.Symbols {
		if s == "" || s == c.Market.QuoteAsset {
			return fmt.Errorf("%w: invalid symbol %q", ErrInvalidConfig, s)
		}
	}
	if c.Market.KlineLimit < 2 || c.Market.KlineLimit > 1000 {
		return fmt.Errorf("%w: kline limit must be between 2 and 1000", ErrInvalidConfig)
	}
	if c.Paper.DryRun && c.Paper.Balance <= 0 {
		return fmt.Errorf("%w: paper balance must be positive", ErrInvalidConfig)
	}
	if c.Paper.FeeRate < 0 || c.Paper.FeeRate >= 1 {
		return fmt.Errorf("%w: fee rate must be in [0,1)", ErrInvalidConfig)
	}
	if c.LiveTrading() && !c.HasCredentials() {
		return fmt.Errorf("%w: live trading requires BYBIT_API_KEY and BYBIT_API_SECRET", ErrInvalidConfig)
	}
	if c.Monitoring.Port < 0 || c.Monitoring.Port > 65535 {
		return fmt.Errorf("%w: invalid monitoring port %d", ErrInvalidConfig, c.Monitoring.Port)
	}
	return nil
}

// Duration is a time.Duration read from "90s" style strings or seconds in JSON
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return fmt.Errorf("duration must be a string or seconds: %w", err)
	}
	*d = Duration(seconds * float64(time.Second))
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
