package cex

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/spread-go/pkg/server/sources"
)

const binanceAPIURL = "https://api.binance.com/api/v3/ticker/price?symbol=USDTUSD"

// BinanceExtractor reads the symbol price ticker.
type BinanceExtractor struct{}

// BinanceTicker is the /api/v3/ticker/price response. Errors come back as {code, msg}.
type BinanceTicker struct {
	Symbol string          `json:"symbol"` // e.g., "USDTUSD"
	Price  json.RawMessage `json:"price"`
	Code   int             `json:"code"`
	Msg    string          `json:"msg"`
}

// NewBinanceExtractor creates a Binance extractor.
func NewBinanceExtractor(_ map[string]interface{}) (sources.Extractor, error) {
	return &BinanceExtractor{}, nil
}

// Extract implements sources.Extractor.
func (e *BinanceExtractor) Extract(body []byte) (decimal.Decimal, error) {
	var ticker BinanceTicker
	if err := sources.Decode(body, &ticker); err != nil {
		return decimal.Zero, err
	}

	if ticker.Code != 0 {
		return decimal.Zero, fmt.Errorf("%w: %d %s", sources.ErrAPIError, ticker.Code, ticker.Msg)
	}

	price, err := sources.PriceFromJSON(ticker.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance price: %w", err)
	}
	return price, nil
}
