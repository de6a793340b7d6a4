package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/spread-go/pkg/logging"
	"github.com/StrathCole/spread-go/pkg/metrics"
	"github.com/StrathCole/spread-go/pkg/version"
)

const (
	// DefaultTimeout bounds a single source fetch, retries included.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 1 << 20

	defaultBackoff = 250 * time.Millisecond
)

// Adapter fetches, parses and validates one source at a time. It never
// returns an error: every failure becomes an observation without a price.
type Adapter struct {
	client  *http.Client
	timeout time.Duration
	retries int
	backoff time.Duration
	maxBody int64
	logger  *logging.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) AdapterOption {
	return func(a *Adapter) {
		if c != nil {
			a.client = c
		}
	}
}

// WithTimeout sets the per-source deadline.
func WithTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithRetries sets how many times a transport or server failure is retried
// within the per-source deadline.
func WithRetries(n int, backoff time.Duration) AdapterOption {
	return func(a *Adapter) {
		if n >= 0 {
			a.retries = n
		}
		if backoff > 0 {
			a.backoff = backoff
		}
	}
}

// WithMaxBodyBytes caps the response body size.
func WithMaxBodyBytes(n int64) AdapterOption {
	return func(a *Adapter) {
		if n > 0 {
			a.maxBody = n
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *logging.Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAdapter creates an adapter with a bounded timeout.
func NewAdapter(opts ...AdapterOption) *Adapter {
	a := &Adapter{
		timeout: DefaultTimeout,
		backoff: defaultBackoff,
		maxBody: DefaultMaxBodyBytes,
		logger:  logging.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.client == nil {
		a.client = &http.Client{Timeout: a.timeout}
	}
	return a
}

// Timeout returns the per-source deadline.
func (a *Adapter) Timeout() time.Duration {
	return a.timeout
}

// Observe fetches the descriptor's endpoint and extracts its price.
func (a *Adapter) Observe(ctx context.Context, d Descriptor) (obs Observation) {
	start := time.Now()
	obs = Observation{Source: d.Name}

	defer func() {
		if r := recover(); r != nil {
			obs = Observation{Source: d.Name, Err: fmt.Errorf("%w: %v", ErrExtractorPanic, r)}
		}
		obs.Latency = time.Since(start)
		a.record(obs)
	}()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	price, err := a.fetchWithRetry(ctx, d)
	if err != nil {
		obs.Err = err
		return obs
	}

	obs.Price = decimal.NewNullDecimal(price)
	return obs
}

func (a *Adapter) record(obs Observation) {
	if obs.Valid() {
		metrics.RecordObservation(obs.Source, metrics.OutcomeOK, obs.Latency)
		metrics.RecordSourcePrice(obs.Source, obs.Price.Decimal)
		a.logger.Debug("Observed price",
			"source", obs.Source,
			"price", obs.Price.Decimal.String(),
			"latency", obs.Latency)
		return
	}

	outcome := metrics.OutcomeFailed
	if isExtractionError(obs.Err) {
		outcome = metrics.OutcomeInvalid
	}
	metrics.RecordObservation(obs.Source, outcome, obs.Latency)
	a.logger.Warn("Source unavailable",
		"source", obs.Source,
		"outcome", outcome,
		"error", obs.Err,
		"latency", obs.Latency)
}

func (a *Adapter) fetchWithRetry(ctx context.Context, d Descriptor) (decimal.Decimal, error) {
	backoff := a.backoff
	var lastErr error

	for attempt := 0; attempt <= a.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return decimal.Zero, lastErr
			}
			backoff *= 2
		}

		price, err := a.fetch(ctx, d)
		if err == nil {
			return price, nil
		}
		lastErr = err

		if !isRetryable(err) || ctx.Err() != nil {
			break
		}
		a.logger.Debug("Retrying source", "source", d.Name, "attempt", attempt+1, "error", err)
	}

	return decimal.Zero, lastErr
}

func (a *Adapter) fetch(ctx context.Context, d Descriptor) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.Endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: failed to create request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.AgentString())

	resp, err := a.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return decimal.Zero, fmt.Errorf("%w (HTTP 429)", ErrRateLimitExceeded)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decimal.Zero, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBody+1))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err)
	}
	if int64(len(body)) > a.maxBody {
		return decimal.Zero, fmt.Errorf("%w: limit %d bytes", ErrResponseTooLarge, a.maxBody)
	}

	price, err := d.Extractor.Extract(body)
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s is not positive", ErrInvalidPrice, price.String())
	}
	return price, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.Code)
}

// Unwrap lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return errors.Is(err, ErrTransport)
}

func isExtractionError(err error) bool {
	return errors.Is(err, ErrInvalidResponse) ||
		errors.Is(err, ErrAPIError) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrExtractorPanic)
}
