package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/strategy-orchestrator/internal/safety"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// position is the quantity held and the quote spent acquiring it
type position struct {
	qty  decimal.Decimal
	cost decimal.Decimal
}

// PaperWallet simulates fills at the last seen price. Balances are kept in
// decimal so repeated small fills do not drift.
type PaperWallet struct {
	mu        sync.Mutex
	quote     string
	cash      decimal.Decimal
	feeRate   decimal.Decimal
	positions map[string]*position
	prices    map[string]float64
	validator *safety.Validator
	now       func() time.Time
}

// NewPaperWallet creates a wallet holding balance of quote.
func NewPaperWallet(quote string, balance, feeRate float64) *PaperWallet {
	return &PaperWallet{
		quote:     quote,
		cash:      decimal.NewFromFloat(balance),
		feeRate:   decimal.NewFromFloat(feeRate),
		positions: make(map[string]*position),
		prices:    make(map[string]float64),
		validator: safety.NewValidator(),
		now:       time.Now,
	}
}

// UpdatePrices records the latest prices used for fills
func (w *PaperWallet) UpdatePrices(prices map[string]float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for asset, p := range prices {
		w.prices[asset] = p
	}
}

// GetInfo returns cash and position quantities
func (w *PaperWallet) GetInfo(ctx context.Context) (types.WalletInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	balances := map[string]float64{w.quote: w.cash.InexactFloat64()}
	for asset, pos := range w.positions {
		if pos.qty.IsPositive() {
			balances[asset] = pos.qty.InexactFloat64()
		}
	}
	return types.WalletInfo{Address: "paper-" + w.quote, Balances: balances}, nil
}

// ExecuteTrade fills amount of quote currency at the last price
func (w *PaperWallet) ExecuteTrade(ctx context.Context, asset string, amount float64, isBuy bool) (types.TransactionResult, error) {
	if err := ctx.Err(); err != nil {
		return types.TransactionResult{}, err
	}
	if err := w.validator.ValidateAmount(amount, asset).Err(); err != nil {
		return types.TransactionResult{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	price := w.prices[asset]
	if err := w.validator.ValidatePrice(price, asset).Err(); err != nil {
		return types.TransactionResult{}, fmt.Errorf("no usable price for %s: %w", asset, err)
	}

	px := decimal.NewFromFloat(price)
	value := decimal.NewFromFloat(amount)
	fee := value.Mul(w.feeRate)
	result := types.TransactionResult{
		TxID:      uuid.NewString(),
		Asset:     asset,
		Price:     price,
		IsBuy:     isBuy,
		Timestamp: w.now(),
	}

	pos, ok := w.positions[asset]
	if !ok {
		pos = &position{}
		w.positions[asset] = pos
	}

	if isBuy {
		if w.cash.LessThan(value) {
			return types.TransactionResult{}, fmt.Errorf("insufficient balance: need %s %s, have %s", value.StringFixed(2), w.quote, w.cash.StringFixed(2))
		}
		qty := value.Sub(fee).Div(px)
		w.cash = w.cash.Sub(value)
		pos.qty = pos.qty.Add(qty)
		pos.cost = pos.cost.Add(value)

		result.Amount = amount
		result.Quantity = qty.InexactFloat64()
		return result, nil
	}

	if !pos.qty.IsPositive() {
		return types.TransactionResult{}, fmt.Errorf("insufficient balance: no %s position to sell", asset)
	}
	qty := decimal.Min(value.Div(px), pos.qty)
	gross := qty.Mul(px)
	proceeds := gross.Sub(gross.Mul(w.feeRate))
	costBasis := pos.cost.Mul(qty).Div(pos.qty)

	pos.cost = pos.cost.Sub(costBasis)
	pos.qty = pos.qty.Sub(qty)
	w.cash = w.cash.Add(proceeds)

	result.Amount = gross.InexactFloat64()
	result.Quantity = qty.InexactFloat64()
	result.RealizedPnL = proceeds.Sub(costBasis).InexactFloat64()
	result.Realized = true
	return result, nil
}
