package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	boterrors "github.com/ducminhle1904/strategy-orchestrator/internal/errors"
	"github.com/ducminhle1904/strategy-orchestrator/internal/exchange/bybit"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// TradingClient is the subset of the Bybit client the wallet needs.
type TradingClient interface {
	GetAccountBalance(ctx context.Context, accountType bybit.AccountType, coins ...string) (*bybit.AccountInfo, error)
	GetTicker(ctx context.Context, category, symbol string) (bybit.Ticker, error)
	PlaceMarketOrder(ctx context.Context, category, symbol string, side bybit.OrderSide, quoteAmount float64, linkID string) (*bybit.Order, error)
	GetEnvironment() string
}

// BybitWallet trades spot market orders on a Bybit account. It keeps the
// cost basis of what it bought itself so sells can report realized PnL;
// holdings from before the process started have no basis and are unrealized.
type BybitWallet struct {
	client      TradingClient
	quote       string
	category    string
	accountType bybit.AccountType
	now         func() time.Time

	mu    sync.Mutex
	basis map[string]*position
}

// NewBybitWallet creates a wallet trading asset/quote pairs
func NewBybitWallet(client TradingClient, quote, category string) *BybitWallet {
	if category == "" {
		category = "spot"
	}
	return &BybitWallet{
		client:      client,
		quote:       quote,
		category:    category,
		accountType: bybit.AccountTypeUnified,
		now:         time.Now,
		basis:       make(map[string]*position),
	}
}

// GetInfo returns tradable balances per coin
func (w *BybitWallet) GetInfo(ctx context.Context) (types.WalletInfo, error) {
	account, err := w.client.GetAccountBalance(ctx, w.accountType)
	if err != nil {
		return types.WalletInfo{}, walletError("get_balance", err)
	}

	balances := make(map[string]float64, len(account.Coins))
	for _, coin := range account.Coins {
		balances[coin.Coin] = coin.AvailableToTrade
	}
	return types.WalletInfo{
		Address:  fmt.Sprintf("bybit-%s-%s", w.client.GetEnvironment(), w.accountType),
		Balances: balances,
	}, nil
}

// ExecuteTrade places a market order for amount of quote currency
func (w *BybitWallet) ExecuteTrade(ctx context.Context, asset string, amount float64, isBuy bool) (types.TransactionResult, error) {
	symbol := asset + w.quote
	side := bybit.OrderSideSell
	if isBuy {
		side = bybit.OrderSideBuy
	}

	ticker, err := w.client.GetTicker(ctx, w.category, symbol)
	if err != nil {
		return types.TransactionResult{}, walletError("get_ticker", err)
	}

	order, err := w.client.PlaceMarketOrder(ctx, w.category, symbol, side, amount, uuid.NewString())
	if err != nil {
		return types.TransactionResult{}, walletError("place_order", err).
			WithContext("symbol", symbol).
			WithContext("amount", amount)
	}

	result := types.TransactionResult{
		TxID:      order.OrderID,
		Asset:     asset,
		Amount:    amount,
		Price:     ticker.LastPrice,
		IsBuy:     isBuy,
		Timestamp: w.now(),
	}
	if ticker.LastPrice > 0 {
		result.Quantity = amount / ticker.LastPrice
		w.settle(&result)
	}
	return result, nil
}

// walletError categorizes API failures. Rejected credentials are fatal and
// an order the account cannot fund is a validation failure.
func walletError(operation string, err error) *boterrors.BotError {
	switch {
	case bybit.IsAuthenticationError(err):
		return boterrors.WrapError(err, boterrors.ErrorCategoryCredentials, "bybit_wallet", operation)
	case bybit.IsInsufficientBalanceError(err):
		return boterrors.WrapError(err, boterrors.ErrorCategoryValidation, "bybit_wallet", operation)
	default:
		return boterrors.CategorizeError(err, "bybit_wallet", operation)
	}
}

// settle updates the tracked cost basis and fills in realized PnL on sells
func (w *BybitWallet) settle(result *types.TransactionResult) {
	w.mu.Lock()
	defer w.mu.Unlock()

	qty := decimal.NewFromFloat(result.Quantity)
	value := decimal.NewFromFloat(result.Amount)

	pos, ok := w.basis[result.Asset]
	if result.IsBuy {
		if !ok {
			pos = &position{}
			w.basis[result.Asset] = pos
		}
		pos.qty = pos.qty.Add(qty)
		pos.cost = pos.cost.Add(value)
		return
	}

	if !ok || !pos.qty.IsPositive() {
		return
	}
	matched := decimal.Min(qty, pos.qty)
	costBasis := pos.cost.Mul(matched).Div(pos.qty)
	proceeds := matched.Mul(decimal.NewFromFloat(result.Price))

	pos.cost = pos.cost.Sub(costBasis)
	pos.qty = pos.qty.Sub(matched)
	result.RealizedPnL = proceeds.Sub(costBasis).InexactFloat64()
	result.Realized = true
}
