package cex

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/spread-go/pkg/server/sources"
)

const gateioAPIURL = "https://api.gate.io/api2/1/ticker/usdt_usd"

// GateioExtractor reads the legacy api2 ticker.
type GateioExtractor struct{}

// GateioTicker represents the api2 ticker response. Result is "true" on
// success; failures carry "false" with code and message.
type GateioTicker struct {
	Result     json.RawMessage `json:"result"`
	Code       int             `json:"code"`
	Message    string          `json:"message"`
	Last       json.RawMessage `json:"last"`
	LowestAsk  string          `json:"lowestAsk"`
	HighestBid string          `json:"highestBid"`
	BaseVolume string          `json:"baseVolume"`
}

// NewGateioExtractor creates a Gate.io extractor.
func NewGateioExtractor(_ map[string]interface{}) (sources.Extractor, error) {
	return &GateioExtractor{}, nil
}

// Extract implements sources.Extractor.
func (e *GateioExtractor) Extract(body []byte) (decimal.Decimal, error) {
	var ticker GateioTicker
	if err := sources.Decode(body, &ticker); err != nil {
		return decimal.Zero, err
	}

	if isFalse(ticker.Result) {
		return decimal.Zero, fmt.Errorf("%w: %d %s", sources.ErrAPIError, ticker.Code, ticker.Message)
	}

	price, err := sources.PriceFromJSON(ticker.Last)
	if err != nil {
		return decimal.Zero, fmt.Errorf("gateio last: %w", err)
	}
	return price, nil
}

// isFalse matches both "false" and false.
func isFalse(raw json.RawMessage) bool {
	s := string(raw)
	return s == `"false"` || s == "false"
}
