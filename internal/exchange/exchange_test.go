package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/strategy-orchestrator/internal/errors"
	"github.com/ducminhle1904/strategy-orchestrator/internal/exchange/bybit"
)

type fakeMarketClient struct {
	tickers map[string]bybit.Ticker
	closes  map[string][]float64
	err     error
}

func (f *fakeMarketClient) GetTicker(ctx context.Context, category, symbol string) (bybit.Ticker, error) {
	if f.err != nil {
		return bybit.Ticker{}, f.err
	}
	return f.tickers[symbol], nil
}

func (f *fakeMarketClient) GetKlines(ctx context.Context, params bybit.KlineParams) ([]bybit.Kline, error) {
	var out []bybit.Kline
	for _, c := range f.closes[params.Symbol] {
		out = append(out, bybit.Kline{ClosePrice: c})
	}
	return out, nil
}

type recordingListener struct {
	prices map[string]float64
}

func (r *recordingListener) UpdatePrices(prices map[string]float64) {
	r.prices = prices
}

func TestFeedGetSnapshot(t *testing.T) {
	client := &fakeMarketClient{
		tickers: map[string]bybit.Ticker{
			"BTCUSDT": {Symbol: "BTCUSDT", LastPrice: 60000, Price24hPcnt: 0.02},
			"ETHUSDT": {Symbol: "ETHUSDT", LastPrice: 3000, Price24hPcnt: -0.01},
		},
		closes: map[string][]float64{
			"BTCUSDT": {100, 101, 100, 101, 100},
			"ETHUSDT": {100, 100, 100},
		},
	}
	listener := &recordingListener{}
	feed := NewFeed(client, FeedConfig{Assets: []string{"BTC", "ETH"}}, listener)

	snap, err := feed.GetSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 60000.0, snap.Prices["BTC"])
	assert.Equal(t, -0.01, snap.Changes24h["ETH"])
	assert.Len(t, snap.History["BTC"], 5)
	assert.Greater(t, snap.VolatilityIndex, 0.0)
	assert.LessOrEqual(t, snap.VolatilityIndex, 1.0)
	assert.Equal(t, 3000.0, listener.prices["ETH"])
}

func TestFeedPropagatesErrors(t *testing.T) {
	feed := NewFeed(&fakeMarketClient{err: errors.New("connection reset")}, FeedConfig{Assets: []string{"BTC"}})
	_, err := feed.GetSnapshot(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}

func TestFeedRejectsBadPrice(t *testing.T) {
	client := &fakeMarketClient{tickers: map[string]bybit.Ticker{"BTCUSDT": {LastPrice: 0}}}
	feed := NewFeed(client, FeedConfig{Assets: []string{"BTC"}})
	_, err := feed.GetSnapshot(context.Background())
	assert.ErrorContains(t, err, "INVALID_PRICE")
}

func TestPaperWalletRoundTrip(t *testing.T) {
	ctx := context.Background()
	w := NewPaperWallet("USDT", 1000, 0)
	w.UpdatePrices(map[string]float64{"BTC": 100})

	buy, err := w.ExecuteTrade(ctx, "BTC", 500, true)
	require.NoError(t, err)
	assert.InDelta(t, 5, buy.Quantity, 1e-9)
	assert.NotEmpty(t, buy.TxID)

	info, err := w.GetInfo(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 500, info.Balance("USDT"), 1e-9)
	assert.InDelta(t, 5, info.Balance("BTC"), 1e-9)

	w.UpdatePrices(map[string]float64{"BTC": 120})
	sell, err := w.ExecuteTrade(ctx, "BTC", 240, false)
	require.NoError(t, err)
	assert.InDelta(t, 2, sell.Quantity, 1e-9)
	assert.InDelta(t, 40, sell.RealizedPnL, 1e-9)
	assert.True(t, sell.Realized)
	assert.False(t, buy.Realized)

	info, _ = w.GetInfo(ctx)
	assert.InDelta(t, 740, info.Balance("USDT"), 1e-9)
	assert.InDelta(t, 3, info.Balance("BTC"), 1e-9)
}

func TestPaperWalletSellCapsAtPosition(t *testing.T) {
	ctx := context.Background()
	w := NewPaperWallet("USDT", 100, 0)
	w.UpdatePrices(map[string]float64{"ETH": 10})

	_, err := w.ExecuteTrade(ctx, "ETH", 50, true)
	require.NoError(t, err)

	sell, err := w.ExecuteTrade(ctx, "ETH", 1000, false)
	require.NoError(t, err)
	assert.InDelta(t, 5, sell.Quantity, 1e-9)
	assert.InDelta(t, 0, sell.RealizedPnL, 1e-9)
}

func TestPaperWalletErrors(t *testing.T) {
	ctx := context.Background()
	w := NewPaperWallet("USDT", 100, 0.001)

	_, err := w.ExecuteTrade(ctx, "BTC", 10, true)
	assert.ErrorContains(t, err, "no usable price")

	w.UpdatePrices(map[string]float64{"BTC": 100})
	_, err = w.ExecuteTrade(ctx, "BTC", 1000, true)
	assert.ErrorContains(t, err, "insufficient balance")

	_, err = w.ExecuteTrade(ctx, "BTC", 10, false)
	assert.ErrorContains(t, err, "no BTC position")

	_, err = w.ExecuteTrade(ctx, "BTC", -1, true)
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = w.ExecuteTrade(cancelled, "BTC", 10, true)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeTradingClient struct {
	placed   []float64
	side     bybit.OrderSide
	price    float64
	err      error
	orderErr error
}

func (f *fakeTradingClient) GetAccountBalance(ctx context.Context, accountType bybit.AccountType, coins ...string) (*bybit.AccountInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &bybit.AccountInfo{Coins: []bybit.Balance{{Coin: "USDT", AvailableToTrade: 250}}}, nil
}

func (f *fakeTradingClient) GetTicker(ctx context.Context, category, symbol string) (bybit.Ticker, error) {
	price := f.price
	if price == 0 {
		price = 50
	}
	return bybit.Ticker{Symbol: symbol, LastPrice: price}, nil
}

func (f *fakeTradingClient) PlaceMarketOrder(ctx context.Context, category, symbol string, side bybit.OrderSide, quoteAmount float64, linkID string) (*bybit.Order, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.placed = append(f.placed, quoteAmount)
	f.side = side
	return &bybit.Order{OrderID: "ord-1", Symbol: symbol, Side: side}, nil
}

func (f *fakeTradingClient) GetEnvironment() string { return "demo" }

func TestBybitWallet(t *testing.T) {
	client := &fakeTradingClient{}
	w := NewBybitWallet(client, "USDT", "")
	w.now = func() time.Time { return time.Unix(0, 0) }

	info, err := w.GetInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 250.0, info.Balance("USDT"))
	assert.Equal(t, "bybit-demo-UNIFIED", info.Address)

	res, err := w.ExecuteTrade(context.Background(), "SOL", 100, false)
	require.NoError(t, err)
	assert.Equal(t, "ord-1", res.TxID)
	assert.Equal(t, bybit.OrderSideSell, client.side)
	assert.InDelta(t, 2, res.Quantity, 1e-12)
	assert.False(t, res.Realized, "no basis for holdings bought elsewhere")
}

func TestBybitWalletCategorizesAPIErrors(t *testing.T) {
	tests := []struct {
		name     string
		client   *fakeTradingClient
		trade    bool
		category boterrors.ErrorCategory
	}{
		{
			name:     "rejected key on balance",
			client:   &fakeTradingClient{err: bybit.WrapAPIError("get_balance", bybit.NewBybitError(bybit.ErrCodeInvalidAPIKey, "invalid key"))},
			category: boterrors.ErrorCategoryCredentials,
		},
		{
			name:     "unfunded order",
			client:   &fakeTradingClient{orderErr: bybit.NewBybitError(bybit.ErrCodeInsufficientBalance, "insufficient")},
			trade:    true,
			category: boterrors.ErrorCategoryValidation,
		},
		{
			name:     "rate limited order",
			client:   &fakeTradingClient{orderErr: bybit.NewBybitError(bybit.ErrCodeRateLimitExceeded, "too many requests")},
			trade:    true,
			category: boterrors.ErrorCategoryRateLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewBybitWallet(tt.client, "USDT", "spot")
			var err error
			if tt.trade {
				_, err = w.ExecuteTrade(context.Background(), "BTC", 100, true)
			} else {
				_, err = w.GetInfo(context.Background())
			}
			require.Error(t, err)

			var botErr *boterrors.BotError
			require.ErrorAs(t, err, &botErr)
			assert.Equal(t, tt.category, botErr.Category)
			assert.Equal(t, tt.category == boterrors.ErrorCategoryRateLimit, botErr.IsRetryable())
		})
	}
}

func TestBybitWalletRealizesAgainstCostBasis(t *testing.T) {
	ctx := context.Background()
	client := &fakeTradingClient{price: 100}
	w := NewBybitWallet(client, "USDT", "spot")

	buy, err := w.ExecuteTrade(ctx, "BTC", 500, true)
	require.NoError(t, err)
	assert.False(t, buy.Realized)
	assert.Zero(t, buy.RealizedPnL)

	client.price = 120
	sell, err := w.ExecuteTrade(ctx, "BTC", 240, false)
	require.NoError(t, err)
	assert.True(t, sell.Realized)
	assert.InDelta(t, 40, sell.RealizedPnL, 1e-9)

	// 3 BTC left at a basis of 300; selling more than that only matches what is tracked
	client.price = 90
	rest, err := w.ExecuteTrade(ctx, "BTC", 450, false)
	require.NoError(t, err)
	assert.True(t, rest.Realized)
	assert.InDelta(t, -30, rest.RealizedPnL, 1e-9)

	again, err := w.ExecuteTrade(ctx, "BTC", 90, false)
	require.NoError(t, err)
	assert.False(t, again.Realized)
}
