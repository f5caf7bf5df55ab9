package bybit

import (
	"context"
	"fmt"
)

// OrderSide represents the side of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// Order is the acknowledgement of a placed order
type Order struct {
	OrderID     string    `json:"orderId"`
	OrderLinkID string    `json:"orderLinkId"`
	Symbol      string    `json:"symbol"`
	Side        OrderSide `json:"side"`
	Qty         string    `json:"qty"`
}

// PlaceMarketOrder places a market order sized in quote currency
func (c *Client) PlaceMarketOrder(ctx context.Context, category, symbol string, side OrderSide, quoteAmount float64, linkID string) (*Order, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if quoteAmount <= 0 {
		return nil, NewBybitError(ErrCodeInvalidQuantity, "quote amount must be positive", symbol)
	}
	if category == "" {
		category = "spot"
	}

	qty := formatAmount(quoteAmount)
	apiParams := map[string]interface{}{
		"category":   category,
		"symbol":     symbol,
		"side":       string(side),
		"orderType":  "Market",
		"qty":        qty,
		"marketUnit": "quoteCoin",
	}
	if linkID != "" {
		apiParams["orderLinkId"] = linkID
	}

	var result struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	err := c.call(ctx, "place_order", func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(apiParams).PlaceOrder(ctx)
	}, &result)
	if err != nil {
		return nil, err
	}

	return &Order{
		OrderID:     result.OrderID,
		OrderLinkID: result.OrderLinkID,
		Symbol:      symbol,
		Side:        side,
		Qty:         qty,
	}, nil
}
