package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pathDescriptor(t *testing.T, name, endpoint, path string) Descriptor {
	t.Helper()
	d, err := NewDescriptor(name, endpoint, KindJSONPath, map[string]interface{}{"path": path})
	require.NoError(t, err)
	return d
}

func TestAdapter_Observe_Success(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{"price":"1.0002"}`))
	}))
	defer srv.Close()

	a := NewAdapter(WithTimeout(2 * time.Second))
	obs := a.Observe(context.Background(), pathDescriptor(t, "Good", srv.URL, "price"))

	require.True(t, obs.Valid(), "err: %v", obs.Err)
	assert.Equal(t, "Good", obs.Source)
	assert.True(t, obs.Price.Decimal.Equal(decimal.RequireFromString("1.0002")))
	assert.NoError(t, obs.Err)
	assert.Positive(t, obs.Latency)
	assert.True(t, strings.HasPrefix(gotUA, "spread-go/"))
	assert.Equal(t, "application/json", gotAccept)
}

func TestAdapter_Observe_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		path    string
		wantErr error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			path:    "price",
			wantErr: ErrUnexpectedStatus,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.NotFound(w, nil)
			},
			path:    "price",
			wantErr: ErrUnexpectedStatus,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			path:    "price",
			wantErr: ErrRateLimitExceeded,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"price":`))
			},
			path:    "price",
			wantErr: ErrInvalidResponse,
		},
		{
			name: "missing field",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"other":"1.0"}`))
			},
			path:    "price",
			wantErr: ErrMissingField,
		},
		{
			name: "zero price",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"price":"0"}`))
			},
			path:    "price",
			wantErr: ErrInvalidPrice,
		},
		{
			name: "non numeric",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"price":"n/a"}`))
			},
			path:    "price",
			wantErr: ErrInvalidPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			a := NewAdapter(WithTimeout(2 * time.Second))
			obs := a.Observe(context.Background(), pathDescriptor(t, "Bad", srv.URL, tt.path))

			assert.False(t, obs.Valid())
			assert.False(t, obs.Price.Valid)
			assert.Equal(t, "Bad", obs.Source)
			assert.ErrorIs(t, obs.Err, tt.wantErr)
		})
	}
}

func TestAdapter_Observe_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	a := NewAdapter(WithTimeout(100 * time.Millisecond))
	start := time.Now()
	obs := a.Observe(context.Background(), pathDescriptor(t, "Slow", srv.URL, "price"))

	assert.False(t, obs.Valid())
	assert.ErrorIs(t, obs.Err, ErrTransport)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAdapter_Observe_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	a := NewAdapter(WithTimeout(time.Second))
	obs := a.Observe(context.Background(), pathDescriptor(t, "Gone", url, "price"))

	assert.False(t, obs.Valid())
	assert.ErrorIs(t, obs.Err, ErrTransport)
}

func TestAdapter_Observe_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"price":"1.0","pad":"` + strings.Repeat("x", 2048) + `"}`))
	}))
	defer srv.Close()

	a := NewAdapter(WithMaxBodyBytes(512))
	obs := a.Observe(context.Background(), pathDescriptor(t, "Big", srv.URL, "price"))

	assert.False(t, obs.Valid())
	assert.ErrorIs(t, obs.Err, ErrResponseTooLarge)
}

func TestAdapter_Observe_ExtractorPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	d := Descriptor{
		Name:     "Panicky",
		Endpoint: srv.URL,
		Extractor: ExtractorFunc(func([]byte) (decimal.Decimal, error) {
			panic("index out of range")
		}),
	}

	a := NewAdapter()
	var obs Observation
	require.NotPanics(t, func() {
		obs = a.Observe(context.Background(), d)
	})
	assert.Equal(t, "Panicky", obs.Source)
	assert.False(t, obs.Valid())
	assert.ErrorIs(t, obs.Err, ErrExtractorPanic)
}

func TestAdapter_Observe_ExtractorReturnsNonPositive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	d := Descriptor{
		Name:     "Negative",
		Endpoint: srv.URL,
		Extractor: ExtractorFunc(func([]byte) (decimal.Decimal, error) {
			return decimal.NewFromInt(-3), nil
		}),
	}

	obs := NewAdapter().Observe(context.Background(), d)
	assert.False(t, obs.Valid())
	assert.ErrorIs(t, obs.Err, ErrInvalidPrice)
}

func TestAdapter_Observe_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"price":"1.0005"}`))
	}))
	defer srv.Close()

	a := NewAdapter(WithRetries(2, 10*time.Millisecond))
	obs := a.Observe(context.Background(), pathDescriptor(t, "Flaky", srv.URL, "price"))

	require.True(t, obs.Valid(), "err: %v", obs.Err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestAdapter_Observe_DoesNotRetryExtractionErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	a := NewAdapter(WithRetries(3, 10*time.Millisecond))
	obs := a.Observe(context.Background(), pathDescriptor(t, "Shape", srv.URL, "price"))

	assert.False(t, obs.Valid())
	assert.ErrorIs(t, obs.Err, ErrMissingField)
	assert.EqualValues(t, 1, calls.Load())
}

func TestAdapter_Observe_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"price":"1"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	obs := NewAdapter().Observe(ctx, pathDescriptor(t, "Cancelled", srv.URL, "price"))
	assert.False(t, obs.Valid())
	assert.ErrorIs(t, obs.Err, ErrTransport)
}
