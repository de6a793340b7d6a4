package sources

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Extractor turns a raw response body into a price.
// Implementations return an error instead of panicking; the error should wrap
// ErrInvalidResponse, ErrAPIError, ErrMissingField or ErrInvalidPrice.
type Extractor interface {
	Extract(body []byte) (decimal.Decimal, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(body []byte) (decimal.Decimal, error)

// Extract calls f(body).
func (f ExtractorFunc) Extract(body []byte) (decimal.Decimal, error) {
	return f(body)
}

// ExtractorFactory builds an extractor from source parameters.
type ExtractorFactory func(params map[string]interface{}) (Extractor, error)

// Descriptor identifies one price source: a unique name, the endpoint polled
// each cycle and the rule that pulls the price out of its response.
type Descriptor struct {
	Name      string
	Endpoint  string
	Extractor Extractor
}

// Validate reports construction-time defects in the descriptor.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidDescriptor)
	}
	if d.Extractor == nil {
		return fmt.Errorf("%w: %s has no extractor", ErrInvalidDescriptor, d.Name)
	}
	u, err := url.Parse(d.Endpoint)
	if err != nil {
		return fmt.Errorf("%w: %s endpoint: %w", ErrInvalidDescriptor, d.Name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s endpoint must be an absolute http(s) URL", ErrInvalidDescriptor, d.Name)
	}
	return nil
}

// Observation is one source's price for one poll cycle. An invalid Price
// means the source was unavailable; Err carries the reason for logs only.
type Observation struct {
	Source  string              `json:"source"`
	Price   decimal.NullDecimal `json:"price"`
	Latency time.Duration       `json:"-"`
	Err     error               `json:"-"`
}

// Valid reports whether the observation carries a usable price.
func (o Observation) Valid() bool {
	return o.Price.Valid && o.Price.Decimal.IsPositive()
}
