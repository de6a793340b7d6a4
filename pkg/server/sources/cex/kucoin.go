package cex

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/spread-go/pkg/server/sources"
)

const (
	kucoinAPIURL      = "https://api.kucoin.com/api/v1/market/orderbook/level1?symbol=USDT-USDT"
	kucoinSuccessCode = "200000"
)

// KucoinExtractor reads the level-1 orderbook ticker.
type KucoinExtractor struct{}

// KucoinLevel1 represents the level-1 data block.
type KucoinLevel1 struct {
	Time     int64           `json:"time"`
	Sequence string          `json:"sequence"`
	Price    json.RawMessage `json:"price"`   // Last traded price
	Size     string          `json:"size"`    // Last traded size
	BestBid  string          `json:"bestBid"` // Best bid price
	BestAsk  string          `json:"bestAsk"` // Best ask price
}

// KucoinResponse represents the API response.
type KucoinResponse struct {
	Code string        `json:"code"` // "200000" for success
	Msg  string        `json:"msg"`
	Data *KucoinLevel1 `json:"data"`
}

// NewKucoinExtractor creates a KuCoin extractor.
func NewKucoinExtractor(_ map[string]interface{}) (sources.Extractor, error) {
	return &KucoinExtractor{}, nil
}

// Extract implements sources.Extractor.
func (e *KucoinExtractor) Extract(body []byte) (decimal.Decimal, error) {
	var response KucoinResponse
	if err := sources.Decode(body, &response); err != nil {
		return decimal.Zero, err
	}

	if response.Code != kucoinSuccessCode {
		return decimal.Zero, fmt.Errorf("%w: %s %s", sources.ErrAPIError, response.Code, response.Msg)
	}

	if response.Data == nil {
		return decimal.Zero, fmt.Errorf("%w: data", sources.ErrMissingField)
	}

	price, err := sources.PriceFromJSON(response.Data.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("kucoin data.price: %w", err)
	}
	return price, nil
}
