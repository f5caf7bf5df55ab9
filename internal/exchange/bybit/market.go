package bybit

import (
	"context"
	"time"
)

// KlineInterval represents the time interval for kline data
type KlineInterval string

const (
	Interval1m  KlineInterval = "1"
	Interval5m  KlineInterval = "5"
	Interval15m KlineInterval = "15"
	Interval1h  KlineInterval = "60"
	Interval4h  KlineInterval = "240"
	Interval1d  KlineInterval = "D"
)

// Kline represents a single kline/candlestick data point
type Kline struct {
	StartTime  time.Time
	OpenPrice  float64
	HighPrice  float64
	LowPrice   float64
	ClosePrice float64
	Volume     float64
	Turnover   float64
}

// KlineParams holds parameters for fetching kline data
type KlineParams struct {
	Category string        // "spot", "linear", "inverse"
	Symbol   string        // Trading pair symbol (e.g., "BTCUSDT")
	Interval KlineInterval // Time interval
	Limit    int           // Number of records to return (max 1000, default 200)
}

// Ticker is the 24h ticker of one symbol
type Ticker struct {
	Symbol       string
	LastPrice    float64
	Price24hPcnt float64
	Volume24h    float64
}

// GetKlines fetches klines oldest first. Bybit returns them newest first.
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]Kline, error) {
	if params.Category == "" {
		params.Category = "spot"
	}
	if params.Interval == "" {
		params.Interval = Interval1h
	}
	if params.Limit <= 0 {
		params.Limit = 200
	}
	if params.Limit > 1000 {
		params.Limit = 1000
	}

	reqParams := map[string]interface{}{
		"category": params.Category,
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}

	var result struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	err := c.call(ctx, "get_klines", func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
	}, &result)
	if err != nil {
		return nil, err
	}

	return parseKlines(result.List), nil
}

func parseKlines(list [][]string) []Kline {
	klines := make([]Kline, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		item := list[i]
		if len(item) < 7 {
			continue
		}
		// [startTime, open, high, low, close, volume, turnover]
		klines = append(klines, Kline{
			StartTime:  parseTimestamp(item[0]),
			OpenPrice:  parseFloat64(item[1]),
			HighPrice:  parseFloat64(item[2]),
			LowPrice:   parseFloat64(item[3]),
			ClosePrice: parseFloat64(item[4]),
			Volume:     parseFloat64(item[5]),
			Turnover:   parseFloat64(item[6]),
		})
	}
	return klines
}

// GetTicker fetches the 24h ticker for a symbol
func (c *Client) GetTicker(ctx context.Context, category, symbol string) (Ticker, error) {
	if category == "" {
		category = "spot"
	}
	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	var result struct {
		Category string `json:"category"`
		List     []struct {
			Symbol       string `json:"symbol"`
			LastPrice    string `json:"lastPrice"`
			Price24hPcnt string `json:"price24hPcnt"`
			Volume24h    string `json:"volume24h"`
		} `json:"list"`
	}
	err := c.call(ctx, "get_ticker", func() (interface{}, error) {
		return c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	}, &result)
	if err != nil {
		return Ticker{}, err
	}
	if len(result.List) == 0 {
		return Ticker{}, NewBybitError(ErrCodeSymbolNotFound, "no ticker data found", symbol)
	}

	t := result.List[0]
	return Ticker{
		Symbol:       t.Symbol,
		LastPrice:    parseFloat64(t.LastPrice),
		Price24hPcnt: parseFloat64(t.Price24hPcnt),
		Volume24h:    parseFloat64(t.Volume24h),
	}, nil
}
