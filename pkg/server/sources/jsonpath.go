package sources

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// KindJSONPath is the extractor kind for config-defined sources.
const KindJSONPath = "json_path"

func init() {
	RegisterExtractor(KindJSONPath, NewJSONPathExtractor)
}

// JSONPathExtractor reads the price at a gjson path, e.g. "data.price" or "data.0.last".
type JSONPathExtractor struct {
	path string
}

// NewJSONPathExtractor creates an extractor from params["path"].
func NewJSONPathExtractor(params map[string]interface{}) (Extractor, error) {
	path := GetStringParam(params, "path", "")
	if path == "" {
		return nil, fmt.Errorf("%w: json_path requires 'path'", ErrInvalidConfig)
	}
	return &JSONPathExtractor{path: path}, nil
}

// Path returns the configured path.
func (e *JSONPathExtractor) Path() string {
	return e.path
}

// Extract implements Extractor.
func (e *JSONPathExtractor) Extract(body []byte) (decimal.Decimal, error) {
	if !gjson.ValidBytes(body) {
		return decimal.Zero, fmt.Errorf("%w: body is not valid JSON", ErrInvalidResponse)
	}

	res := gjson.GetBytes(body, e.path)
	if !res.Exists() || res.Type == gjson.Null {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrMissingField, e.path)
	}

	switch res.Type {
	case gjson.String:
		return ParsePrice(res.Str)
	case gjson.Number:
		return ParsePrice(res.Raw)
	default:
		return decimal.Zero, fmt.Errorf("%w: %s is %s", ErrInvalidPrice, e.path, res.Type)
	}
}
