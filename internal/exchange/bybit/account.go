package bybit

import (
	"context"
	"strings"
)

// AccountType represents different account types in Bybit
type AccountType string

const (
	AccountTypeUnified AccountType = "UNIFIED"
	AccountTypeSpot    AccountType = "SPOT"
	AccountTypeFund    AccountType = "FUND"
)

// Balance represents a coin balance in the account
type Balance struct {
	Coin             string  `json:"coin"`
	WalletBalance    float64 `json:"walletBalance"`
	AvailableToTrade float64 `json:"availableToTrade"`
	Locked           float64 `json:"locked"`
}

// AccountInfo represents account information
type AccountInfo struct {
	AccountType string    `json:"accountType"`
	TotalEquity float64   `json:"totalEquity"`
	Coins       []Balance `json:"coin"`
}

// GetAccountBalance retrieves account balances, optionally filtered to coins
func (c *Client) GetAccountBalance(ctx context.Context, accountType AccountType, coins ...string) (*AccountInfo, error) {
	params := map[string]interface{}{
		"accountType": string(accountType),
	}
	if len(coins) > 0 {
		params["coin"] = strings.Join(coins, ",")
	}

	var result struct {
		List []struct {
			AccountType string `json:"accountType"`
			TotalEquity string `json:"totalEquity"`
			Coin        []struct {
				Coin            string `json:"coin"`
				WalletBalance   string `json:"walletBalance"`
				Locked          string `json:"locked"`
				TotalOrderIM    string `json:"totalOrderIM"`
				TotalPositionIM string `json:"totalPositionIM"`
			} `json:"coin"`
		} `json:"list"`
	}
	err := c.call(ctx, "get_wallet_balance", func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.List) == 0 {
		return nil, NewBybitError(0, "no account data found", string(accountType))
	}

	account := result.List[0]
	info := &AccountInfo{
		AccountType: account.AccountType,
		TotalEquity: parseFloat64(account.TotalEquity),
		Coins:       make([]Balance, 0, len(account.Coin)),
	}
	for _, coin := range account.Coin {
		wallet := parseFloat64(coin.WalletBalance)
		locked := parseFloat64(coin.Locked) + parseFloat64(coin.TotalOrderIM) + parseFloat64(coin.TotalPositionIM)
		info.Coins = append(info.Coins, Balance{
			Coin:             coin.Coin,
			WalletBalance:    wallet,
			AvailableToTrade: wallet - locked,
			Locked:           locked,
		})
	}
	return info, nil
}
