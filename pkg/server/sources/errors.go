// Package sources provides price source descriptors, extractors and the fetch adapter.
package sources

import "errors"

var (
	// ErrInvalidDescriptor indicates a malformed source descriptor.
	ErrInvalidDescriptor = errors.New("invalid source descriptor")
	// ErrDuplicateSource indicates two descriptors share a name.
	ErrDuplicateSource = errors.New("duplicate source name")
	// ErrUnknownExtractor indicates no extractor factory is registered for a kind.
	ErrUnknownExtractor = errors.New("unknown extractor")
	// ErrInvalidConfig indicates that the extractor parameters are invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTransport indicates the request could not be completed.
	ErrTransport = errors.New("transport error")
	// ErrUnexpectedStatus indicates an unexpected HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status code")
	// ErrRateLimitExceeded indicates that a rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrResponseTooLarge indicates the response body exceeded the read limit.
	ErrResponseTooLarge = errors.New("response body too large")

	// ErrInvalidResponse indicates a body that is not the expected JSON shape.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrAPIError indicates the source answered with an error envelope.
	ErrAPIError = errors.New("API error")
	// ErrMissingField indicates the expected price field is absent.
	ErrMissingField = errors.New("missing price field")
	// ErrSymbolNotFound indicates the configured symbol is absent from a list response.
	ErrSymbolNotFound = errors.New("symbol not found in response")
	// ErrInvalidPrice indicates a price that is not a positive finite number.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrExtractorPanic indicates an extractor panicked.
	ErrExtractorPanic = errors.New("extractor panicked")

	// ErrInvalidSymbolFormat indicates that the symbol format is invalid.
	ErrInvalidSymbolFormat = errors.New("symbol must be in BASE/QUOTE format")
	// ErrEmptyBaseCurrency indicates that the symbol BASE currency cannot be empty.
	ErrEmptyBaseCurrency = errors.New("symbol BASE currency cannot be empty")
	// ErrEmptyQuoteCurrency indicates that the symbol QUOTE currency cannot be empty.
	ErrEmptyQuoteCurrency = errors.New("symbol QUOTE currency cannot be empty")
)
