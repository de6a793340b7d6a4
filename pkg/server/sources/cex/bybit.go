package cex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/spread-go/pkg/server/sources"
)

const (
	bybitAPIURL        = "https://api.bybit.com/v2/public/tickers?symbol=USDTUSD"
	bybitDefaultSymbol = "USDTUSD"
)

// BybitExtractor finds the configured symbol in a tickers list. Both the
// legacy v2 shape (result: [{symbol, last_price}]) and the v5 shape
// (result: {list: [{symbol, lastPrice}]}) are understood.
type BybitExtractor struct {
	symbol string
}

// BybitTicker represents a ticker entry in either API version.
type BybitTicker struct {
	Symbol      string          `json:"symbol"`
	LastPriceV2 json.RawMessage `json:"last_price"`
	LastPrice   json.RawMessage `json:"lastPrice"`
}

// BybitResponse represents the API envelope.
type BybitResponse struct {
	RetCodeV2 *int            `json:"ret_code"`
	RetMsgV2  string          `json:"ret_msg"`
	RetCode   *int            `json:"retCode"`
	RetMsg    string          `json:"retMsg"`
	Result    json.RawMessage `json:"result"`
}

// NewBybitExtractor creates a Bybit extractor. params["symbol"] defaults to USDTUSD.
func NewBybitExtractor(params map[string]interface{}) (sources.Extractor, error) {
	return &BybitExtractor{symbol: sources.GetStringParam(params, "symbol", bybitDefaultSymbol)}, nil
}

// Extract implements sources.Extractor.
func (e *BybitExtractor) Extract(body []byte) (decimal.Decimal, error) {
	var response BybitResponse
	if err := sources.Decode(body, &response); err != nil {
		return decimal.Zero, err
	}

	if response.RetCodeV2 != nil && *response.RetCodeV2 != 0 {
		return decimal.Zero, fmt.Errorf("%w: %d %s", sources.ErrAPIError, *response.RetCodeV2, response.RetMsgV2)
	}
	if response.RetCode != nil && *response.RetCode != 0 {
		return decimal.Zero, fmt.Errorf("%w: %d %s", sources.ErrAPIError, *response.RetCode, response.RetMsg)
	}

	tickers, err := bybitTickers(response.Result)
	if err != nil {
		return decimal.Zero, err
	}

	for _, ticker := range tickers {
		if !strings.EqualFold(ticker.Symbol, e.symbol) {
			continue
		}
		raw := ticker.LastPrice
		if len(raw) == 0 {
			raw = ticker.LastPriceV2
		}
		price, err := sources.PriceFromJSON(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("bybit %s last price: %w", e.symbol, err)
		}
		return price, nil
	}

	return decimal.Zero, fmt.Errorf("%w: %s", sources.ErrSymbolNotFound, e.symbol)
}

func bybitTickers(result json.RawMessage) ([]BybitTicker, error) {
	result = bytes.TrimSpace(result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, fmt.Errorf("%w: result", sources.ErrMissingField)
	}

	var tickers []BybitTicker
	if result[0] == '[' {
		if err := sources.Decode(result, &tickers); err != nil {
			return nil, err
		}
		return tickers, nil
	}

	var v5 struct {
		Category string        `json:"category"`
		List     []BybitTicker `json:"list"`
	}
	if err := sources.Decode(result, &v5); err != nil {
		return nil, err
	}
	return v5.List, nil
}
