package strategy

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ducminhle1904/strategy-orchestrator/internal/exchange"
	"github.com/ducminhle1904/strategy-orchestrator/internal/risk"
	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// DefaultMinOrder is the smallest order in quote currency a strategy sends
const DefaultMinOrder = 5.0

// trader holds what every built-in strategy needs to turn a decision into a trade
type trader struct {
	id     string
	quote  string
	wallet exchange.Wallet
	sizer  PositionSizer
	now    func() time.Time
}

func newTrader(id, quote string, wallet exchange.Wallet) trader {
	return trader{
		id:     id,
		quote:  quote,
		wallet: wallet,
		sizer:  PositionSizer{MinOrder: DefaultMinOrder},
		now:    time.Now,
	}
}

func (t trader) ID() string { return t.id }

func (t trader) hold(note string) types.TradeResult {
	return types.TradeResult{StrategyID: t.id, Note: note, Timestamp: t.now()}
}

func (t trader) trade(ctx context.Context, asset string, amount float64, action TradeAction, note string) (types.TradeResult, error) {
	tx, err := t.wallet.ExecuteTrade(ctx, asset, amount, action == ActionBuy)
	if err != nil {
		return types.TradeResult{}, fmt.Errorf("%s %s %.2f %s: %w", t.id, action, amount, asset, err)
	}
	return types.TradeResult{
		StrategyID: t.id,
		Asset:      asset,
		Amount:     tx.Amount,
		Price:      tx.Price,
		IsBuy:      tx.IsBuy,
		Executed:   true,
		PnL:        tx.RealizedPnL,
		Realized:   tx.Realized,
		TxID:       tx.TxID,
		Note:       note,
		Timestamp:  tx.Timestamp,
	}, nil
}

// buy sizes and places a buy, holding when the wallet can't fund it
func (t trader) buy(ctx context.Context, info types.WalletInfo, asset string, alloc Allocation, profile risk.Profile, strength, volatility float64, note string) (types.TradeResult, error) {
	amount := t.sizer.Size(alloc, profile, strength, volatility)
	if cash := info.Balance(t.quote); amount > cash {
		amount = cash
	}
	if amount < t.sizer.MinOrder {
		return t.hold(fmt.Sprintf("%s buy signal but order below minimum", asset)), nil
	}
	return t.trade(ctx, asset, amount, ActionBuy, note)
}

// heldValue is the quote value of the position in asset
func heldValue(info types.WalletInfo, snapshot types.MarketSnapshot, asset string) float64 {
	price, ok := snapshot.Price(asset)
	if !ok {
		return 0
	}
	return info.Balance(asset) * price
}

func sortedAssets(snapshot types.MarketSnapshot) []string {
	assets := snapshot.Assets()
	sort.Strings(assets)
	return assets
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
