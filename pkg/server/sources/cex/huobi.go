package cex

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/spread-go/pkg/server/sources"
)

const (
	huobiAPIURL = "https://api.huobi.pro/market/detail/merged?symbol=usdtusd"
	huobiOK     = "ok"
)

// HuobiExtractor reads the merged market detail.
type HuobiExtractor struct{}

// HuobiTick represents the merged tick.
type HuobiTick struct {
	Open   float64         `json:"open"`
	High   float64         `json:"high"`
	Low    float64         `json:"low"`
	Close  json.RawMessage `json:"close"`  // Last price
	Amount float64         `json:"amount"` // Base currency volume
	Vol    float64         `json:"vol"`    // Quote currency volume
	Count  int             `json:"count"`  // Number of trades
}

// HuobiResponse represents the API response
type HuobiResponse struct {
	Status  string     `json:"status"` // "ok" or "error"
	Ch      string     `json:"ch"`
	Ts      int64      `json:"ts"` // Timestamp in milliseconds
	ErrCode string     `json:"err-code"`
	ErrMsg  string     `json:"err-msg"`
	Tick    *HuobiTick `json:"tick"`
}

// NewHuobiExtractor creates a Huobi extractor.
func NewHuobiExtractor(_ map[string]interface{}) (sources.Extractor, error) {
	return &HuobiExtractor{}, nil
}

// Extract implements sources.Extractor.
func (e *HuobiExtractor) Extract(body []byte) (decimal.Decimal, error) {
	var response HuobiResponse
	if err := sources.Decode(body, &response); err != nil {
		return decimal.Zero, err
	}

	if response.Status != huobiOK {
		return decimal.Zero, fmt.Errorf("%w: %s %s", sources.ErrAPIError, response.ErrCode, response.ErrMsg)
	}

	if response.Tick == nil {
		return decimal.Zero, fmt.Errorf("%w: tick", sources.ErrMissingField)
	}

	price, err := sources.PriceFromJSON(response.Tick.Close)
	if err != nil {
		return decimal.Zero, fmt.Errorf("huobi tick.close: %w", err)
	}
	return price, nil
}
