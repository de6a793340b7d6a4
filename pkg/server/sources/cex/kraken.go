package cex

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/StrathCole/spread-go/pkg/server/sources"
)

const krakenAPIURL = "https://api.kraken.com/0/public/Ticker?pair=USDTUSD"

// KrakenExtractor reads the last trade price from the public Ticker endpoint.
// Kraken keys the result by its own pair name (USDTZUSD for USDTUSD), so with
// no configured pair the first entry in document order is used.
type KrakenExtractor struct {
	pair string
}

// KrakenTickerData represents ticker data for a single pair
type KrakenTickerData struct {
	A []string `json:"a"` // Ask [price, whole lot volume, lot volume]
	B []string `json:"b"` // Bid [price, whole lot volume, lot volume]
	C []string `json:"c"` // Last trade [price, lot volume]
	V []string `json:"v"` // Volume [today, last 24 hours]
	O string   `json:"o"` // Today's opening price
}

// KrakenResponse represents the API envelope
type KrakenResponse struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// NewKrakenExtractor creates a Kraken extractor. params["pair"] optionally
// selects the result entry (e.g. "USDTUSD").
func NewKrakenExtractor(params map[string]interface{}) (sources.Extractor, error) {
	return &KrakenExtractor{pair: sources.GetStringParam(params, "pair", "")}, nil
}

// Extract implements sources.Extractor.
func (e *KrakenExtractor) Extract(body []byte) (decimal.Decimal, error) {
	var response KrakenResponse
	if err := sources.Decode(body, &response); err != nil {
		return decimal.Zero, err
	}

	if len(response.Error) > 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", sources.ErrAPIError, strings.Join(response.Error, "; "))
	}

	result := gjson.ParseBytes(response.Result)
	if !result.IsObject() {
		return decimal.Zero, fmt.Errorf("%w: result", sources.ErrMissingField)
	}

	var raw string
	result.ForEach(func(key, value gjson.Result) bool {
		if e.pair == "" || matchKrakenPair(key.String(), e.pair) {
			raw = value.Raw
			return false
		}
		return true
	})
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: %s", sources.ErrSymbolNotFound, e.pair)
	}

	var ticker KrakenTickerData
	if err := sources.Decode([]byte(raw), &ticker); err != nil {
		return decimal.Zero, err
	}
	if len(ticker.C) == 0 {
		return decimal.Zero, fmt.Errorf("%w: result.c", sources.ErrMissingField)
	}

	price, err := sources.ParsePrice(ticker.C[0])
	if err != nil {
		return decimal.Zero, fmt.Errorf("kraken c[0]: %w", err)
	}
	return price, nil
}

// matchKrakenPair reports whether a response key refers to the configured pair.
// Kraken returns several formats depending on the asset:
//   - USDTZUSD (Z-prefixed fiat quote for USDTUSD)
//   - XXBTZUSD (X/Z prefixed, XBT for BTC)
//   - ADAUSD (unchanged)
func matchKrakenPair(responseKey, pair string) bool {
	clean := func(s string) string {
		return strings.ToUpper(strings.NewReplacer("/", "", "-", "").Replace(s))
	}
	key := clean(responseKey)
	want := clean(pair)

	if key == want {
		return true
	}

	want = strings.ReplaceAll(want, "BTC", "XBT")
	if len(want) > 3 {
		base, quote := want[:len(want)-3], want[len(want)-3:]
		for _, candidate := range []string{base + "Z" + quote, "X" + base + "Z" + quote, "X" + base + quote} {
			if key == candidate {
				return true
			}
		}
	}
	return false
}
