package types

import "time"

// StrategyScore is a strategy's self-assessment for the current cycle.
type StrategyScore struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// TradeResult is what a strategy reports after being given capital.
// Executed is false when the strategy chose to hold. Realized marks a trade
// that closed (part of) a position with a known cost basis; only those carry
// a meaningful PnL.
type TradeResult struct {
	StrategyID string    `json:"strategy_id"`
	Asset      string    `json:"asset,omitempty"`
	Amount     float64   `json:"amount"`
	Price      float64   `json:"price"`
	IsBuy      bool      `json:"is_buy"`
	Executed   bool      `json:"executed"`
	PnL        float64   `json:"pnl"`
	Realized   bool      `json:"realized"`
	TxID       string    `json:"tx_id,omitempty"`
	Note       string    `json:"note,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Side returns BUY or SELL for logging.
func (r TradeResult) Side() string {
	if r.IsBuy {
		return "BUY"
	}
	return "SELL"
}

// WalletInfo describes the account the orchestrator trades from.
type WalletInfo struct {
	Address  string             `json:"address"`
	Balances map[string]float64 `json:"balances"`
}

// Balance returns the free balance of asset, 0 when unknown.
func (w WalletInfo) Balance(asset string) float64 {
	return w.Balances[asset]
}

// TransactionResult is the wallet's receipt for an executed trade. Amount is
// in quote currency. Realized is true on sells the wallet could match against
// a cost basis, and RealizedPnL is only meaningful then.
type TransactionResult struct {
	TxID        string    `json:"tx_id"`
	Asset       string    `json:"asset"`
	Amount      float64   `json:"amount"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	IsBuy       bool      `json:"is_buy"`
	RealizedPnL float64   `json:"realized_pnl"`
	Realized    bool      `json:"realized"`
	Timestamp   time.Time `json:"timestamp"`
}
