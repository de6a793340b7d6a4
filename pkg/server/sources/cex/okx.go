package cex

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/spread-go/pkg/server/sources"
)

const (
	okxAPIURL      = "https://www.okx.com/api/v5/market/ticker?instId=USDT-USD"
	okxSuccessCode = "0"
)

// OKXExtractor reads the single-instrument ticker.
type OKXExtractor struct {
	instID string
}

// OKXTicker represents a ticker in the API response
type OKXTicker struct {
	InstID string          `json:"instId"` // Instrument ID (e.g., "USDT-USD")
	Last   json.RawMessage `json:"last"`   // Last traded price
	AskPx  string          `json:"askPx"`  // Best ask price
	BidPx  string          `json:"bidPx"`  // Best bid price
	Vol24h string          `json:"vol24h"` // 24h trading volume
	Ts     string          `json:"ts"`     // Ticker data generation time
}

// OKXResponse represents the API response
type OKXResponse struct {
	Code string      `json:"code"` // Error code, "0" means success
	Msg  string      `json:"msg"`  // Error message
	Data []OKXTicker `json:"data"` // Ticker data
}

// NewOKXExtractor creates an OKX extractor. params["inst_id"] optionally
// selects the entry; otherwise the first entry is used.
func NewOKXExtractor(params map[string]interface{}) (sources.Extractor, error) {
	return &OKXExtractor{instID: sources.GetStringParam(params, "inst_id", "")}, nil
}

// Extract implements sources.Extractor.
func (e *OKXExtractor) Extract(body []byte) (decimal.Decimal, error) {
	var response OKXResponse
	if err := sources.Decode(body, &response); err != nil {
		return decimal.Zero, err
	}

	if response.Code != okxSuccessCode {
		return decimal.Zero, fmt.Errorf("%w: %s %s", sources.ErrAPIError, response.Code, response.Msg)
	}

	if len(response.Data) == 0 {
		return decimal.Zero, fmt.Errorf("%w: data", sources.ErrMissingField)
	}

	ticker := response.Data[0]
	if e.instID != "" {
		found := false
		for _, t := range response.Data {
			if t.InstID == e.instID {
				ticker, found = t, true
				break
			}
		}
		if !found {
			return decimal.Zero, fmt.Errorf("%w: %s", sources.ErrSymbolNotFound, e.instID)
		}
	}

	price, err := sources.PriceFromJSON(ticker.Last)
	if err != nil {
		return decimal.Zero, fmt.Errorf("okx %s last: %w", ticker.InstID, err)
	}
	return price, nil
}
