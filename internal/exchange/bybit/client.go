package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/ducminhle1904/strategy-orchestrator/internal/safety"
)

const demoBaseURL = "https://api-demo.bybit.com"

// Client wraps the Bybit API client with throttling and retries
type Client struct {
	httpClient *bybit_api.Client
	limiter    *safety.RateLimiter
	retry      RetryConfig
	testnet    bool
	demo       bool
	logger     zerolog.Logger
}

// Config holds the configuration for the Bybit client
type Config struct {
	APIKey        string
	APISecret     string
	Testnet       bool
	Demo          bool // Demo trading environment
	RatePerSecond float64
	Retry         RetryConfig
	Logger        zerolog.Logger
}

// RetryConfig bounds the exponential backoff used for retryable API errors
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsedTime:  10 * time.Second,
	}
}

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	var baseURL string
	if config.Demo {
		baseURL = demoBaseURL
	} else if config.Testnet {
		baseURL = bybit_api.TESTNET
	} else {
		baseURL = bybit_api.MAINNET
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	if config.Retry == (RetryConfig{}) {
		config.Retry = DefaultRetryConfig()
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = 5
	}

	return &Client{
		httpClient: httpClient,
		limiter:    safety.NewRateLimiter("bybit", config.RatePerSecond, int(config.RatePerSecond)),
		retry:      config.Retry,
		testnet:    config.Testnet,
		demo:       config.Demo,
		logger:     config.Logger.With().Str("component", "bybit_client").Logger(),
	}
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	if c.demo {
		return "demo"
	} else if c.testnet {
		return "testnet"
	}
	return "mainnet"
}

// LimiterStats exposes the request limiter statistics
func (c *Client) LimiterStats() safety.RateLimiterStats {
	return c.limiter.GetStats()
}

// call runs one API request under the rate limiter, retrying retryable
// failures with exponential backoff until ctx ends, and decodes Result into out.
func (c *Client) call(ctx context.Context, operation string, fn func() (interface{}, error), out interface{}) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.InitialInterval
	b.MaxInterval = c.retry.MaxInterval
	b.MaxElapsedTime = c.retry.MaxElapsedTime

	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		response, err := fn()
		if err != nil {
			return err
		}
		if err := decodeResult(response, out); err != nil {
			if IsRetryableError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn().Err(err).Str("operation", operation).Int("attempt", attempt).Dur("retry_in", wait).Msg("bybit request failed, retrying")
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return WrapAPIError(operation, err)
	}
	return nil
}

// decodeResult checks the response envelope and re-decodes Result into out.
func decodeResult(response interface{}, out interface{}) error {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok || serverResp == nil {
		return fmt.Errorf("invalid response type %T", response)
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := json.Unmarshal(resultBytes, out); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}
