// Package metrics provides Prometheus metrics for the spread tracker.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Observation outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeInvalid = "invalid"
)

// Poll cycle results.
const (
	CycleOK          = "ok"
	CycleUnavailable = "unavailable"
	CycleSkipped     = "skipped"
	CycleDiscarded   = "discarded"
)

var (
	// SourceObservationsTotal counts observations per source by outcome.
	SourceObservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_observations_total",
			Help: "Total number of price observations by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	// SourceFetchDuration is a histogram of per-source fetch latency.
	SourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Duration of a single source fetch including parsing",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	// SourcePrice is the last valid price observed from a source.
	SourcePrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_price",
			Help: "Last valid price observed from a source",
		},
		[]string{"source"},
	)

	// SourceLastUpdate is a gauge of the last successful observation timestamp.
	SourceLastUpdate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_last_update_timestamp",
			Help: "Unix timestamp of last valid observation from source",
		},
		[]string{"source"},
	)

	// SnapshotSources is the number of valid observations in the latest snapshot.
	SnapshotSources = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_sources",
			Help: "Number of sources with a valid price in the latest snapshot",
		},
	)

	// AggregationDuration is a histogram of fan-out/fan-in duration.
	AggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregation_duration_seconds",
			Help:    "Duration of collecting observations from all sources",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PollCyclesTotal counts poll cycles by result.
	PollCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_cycles_total",
			Help: "Total number of poll cycles by result",
		},
		[]string{"result"},
	)

	// PollCycleDuration is a histogram of full cycle duration.
	PollCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poll_cycle_duration_seconds",
			Help:    "Duration of a full fetch, aggregate and compute cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ArbitrageSpread is the spread computed in the latest cycle with a signal.
	ArbitrageSpread = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "arbitrage_spread",
			Help: "Best sell price minus best buy price from the latest signal",
		},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)

	// WebSocketClients is the number of connected WebSocket clients.
	WebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Number of connected WebSocket clients",
		},
	)

	initOnce sync.Once
)

// Init registers all metrics with the default Prometheus registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			SourceObservationsTotal,
			SourceFetchDuration,
			SourcePrice,
			SourceLastUpdate,
			SnapshotSources,
			AggregationDuration,
			PollCyclesTotal,
			PollCycleDuration,
			ArbitrageSpread,
			HTTPRequestsTotal,
			HTTPRequestDuration,
			WebSocketClients,
		)
	})
}

// ServeHTTP serves Prometheus metrics on the specified address and path.
func ServeHTTP(addr, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordObservation records the outcome of one source fetch.
func RecordObservation(source, outcome string, duration time.Duration) {
	SourceObservationsTotal.WithLabelValues(source, outcome).Inc()
	SourceFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordSourcePrice records a valid price from a source.
func RecordSourcePrice(source string, price decimal.Decimal) {
	SourcePrice.WithLabelValues(source).Set(price.InexactFloat64())
	SourceLastUpdate.WithLabelValues(source).SetToCurrentTime()
}

// RecordAggregation records a completed fan-in.
func RecordAggregation(valid int, duration time.Duration) {
	SnapshotSources.Set(float64(valid))
	AggregationDuration.Observe(duration.Seconds())
}

// RecordCycle records a finished poll cycle.
func RecordCycle(result string, duration time.Duration) {
	PollCyclesTotal.WithLabelValues(result).Inc()
	if duration > 0 {
		PollCycleDuration.Observe(duration.Seconds())
	}
}

// RecordSpread records the spread of the latest signal.
func RecordSpread(spread decimal.Decimal) {
	ArbitrageSpread.Set(spread.InexactFloat64())
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
