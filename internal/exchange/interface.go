package exchange

import (
	"context"

	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// Wallet holds balances and executes trades. Amounts are in quote currency.
type Wallet interface {
	GetInfo(ctx context.Context) (types.WalletInfo, error)
	ExecuteTrade(ctx context.Context, asset string, amount float64, isBuy bool) (types.TransactionResult, error)
}

// MarketData produces the snapshot a cycle starts from.
type MarketData interface {
	GetSnapshot(ctx context.Context) (types.MarketSnapshot, error)
}

// PriceListener receives every snapshot a feed produces.
type PriceListener interface {
	UpdatePrices(prices map[string]float64)
}
