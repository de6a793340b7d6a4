package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/spread-go/pkg/logging"
	"github.com/StrathCole/spread-go/pkg/metrics"
	"github.com/StrathCole/spread-go/pkg/server/aggregator"
	"github.com/StrathCole/spread-go/pkg/server/report"
	"github.com/StrathCole/spread-go/pkg/server/sources"
)

// fakeCollector returns a fixed snapshot and counts calls. When block is
// set, Collect waits for it or for ctx.
type fakeCollector struct {
	calls atomic.Int32
	block chan struct{}
	empty bool
}

func (c *fakeCollector) Collect(ctx context.Context, descs []sources.Descriptor) aggregator.Snapshot {
	c.calls.Add(1)
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
		}
	}
	snap := aggregator.Snapshot{ID: uuid.New(), Time: time.Now().UTC()}
	if c.empty {
		return snap
	}
	for i, d := range descs {
		snap.Observations = append(snap.Observations, sources.Observation{
			Source: d.Name,
			Price:  decimal.NewNullDecimal(decimal.RequireFromString("1.00").Add(decimal.New(int64(i), -2))),
		})
	}
	return snap
}

// recorder collects published reports.
type recorder struct {
	mu      sync.Mutex
	reports []report.Report
}

func (r *recorder) Publish(_ context.Context, rep report.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

func (r *recorder) last() report.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reports[len(r.reports)-1]
}

func testRegistry(t *testing.T) *sources.Registry {
	t.Helper()
	ex := sources.ExtractorFunc(func([]byte) (decimal.Decimal, error) { return decimal.NewFromInt(1), nil })
	reg, err := sources.NewRegistry(
		sources.Descriptor{Name: "X", Endpoint: "https://x.example/price", Extractor: ex},
		sources.Descriptor{Name: "Y", Endpoint: "https://y.example/price", Extractor: ex},
		sources.Descriptor{Name: "Z", Endpoint: "https://z.example/price", Extractor: ex},
	)
	require.NoError(t, err)
	return reg
}

func newScheduler(t *testing.T, cfg Config, c Collector, pubs ...Publisher) *Scheduler {
	t.Helper()
	s, err := New(cfg, testRegistry(t), c, logging.NewNoopLogger(), pubs...)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func TestNew_Validation(t *testing.T) {
	reg := testRegistry(t)
	c := &fakeCollector{}

	_, err := New(Config{}, nil, c, nil)
	assert.ErrorIs(t, err, ErrNoRegistry)

	_, err = New(Config{}, reg, nil, nil)
	assert.ErrorIs(t, err, ErrNoCollector)

	_, err = New(Config{Interval: 500 * time.Millisecond}, reg, c, nil)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = New(Config{Interval: 1500 * time.Millisecond}, reg, c, nil)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = New(Config{Overlap: "queue"}, reg, c, nil)
	assert.ErrorIs(t, err, ErrInvalidOverlap)

	s, err := New(Config{}, reg, c, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, s.cfg.Interval)
	assert.Equal(t, OverlapSkip, s.cfg.Overlap)
	assert.Equal(t, StateIdle, s.State())
}

func TestScheduler_ImmediateFirstCycle(t *testing.T) {
	rec := &recorder{}
	s := newScheduler(t, Config{Interval: time.Hour, Asset: "USDT/USD"}, &fakeCollector{}, rec)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StatePolling, s.State())

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 10*time.Millisecond)

	r := rec.last()
	assert.Equal(t, "USDT/USD", r.Asset)
	require.NotNil(t, r.Signal)
	assert.Equal(t, "X", r.Signal.BestBuy.Source)
	assert.Equal(t, "Z", r.Signal.BestSell.Source)
}

func TestScheduler_PeriodicTicks(t *testing.T) {
	rec := &recorder{}
	s := newScheduler(t, Config{Interval: time.Second}, &fakeCollector{}, rec)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return rec.count() >= 3 }, 4*time.Second, 20*time.Millisecond)
}

func TestScheduler_StartTwice(t *testing.T) {
	s := newScheduler(t, Config{Interval: time.Hour}, &fakeCollector{})

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)

	s.Stop()
	assert.ErrorIs(t, s.Start(context.Background()), ErrStopped)
}

func TestScheduler_StopIdempotent(t *testing.T) {
	s := newScheduler(t, Config{Interval: time.Hour}, &fakeCollector{})
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	s.Stop()
	assert.Equal(t, StateStopped, s.State())
}

func TestScheduler_StopBeforeStart(t *testing.T) {
	s := newScheduler(t, Config{}, &fakeCollector{})
	s.Stop()
	assert.Equal(t, StateStopped, s.State())
	assert.ErrorIs(t, s.Start(context.Background()), ErrStopped)
}

func TestScheduler_NoPublishAfterStop(t *testing.T) {
	before := testutil.ToFloat64(metrics.PollCyclesTotal.WithLabelValues(metrics.CycleDiscarded))

	c := &fakeCollector{block: make(chan struct{})}
	rec := &recorder{}
	s := newScheduler(t, Config{Interval: time.Hour}, c, rec)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return c.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	assert.Equal(t, 0, rec.count())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PollCyclesTotal.WithLabelValues(metrics.CycleDiscarded)))
}

func TestScheduler_ContextCancelStops(t *testing.T) {
	s := newScheduler(t, Config{Interval: time.Hour}, &fakeCollector{})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return s.State() == StateStopped }, time.Second, 5*time.Millisecond)
}

func TestScheduler_SkipIfBusy(t *testing.T) {
	before := testutil.ToFloat64(metrics.PollCyclesTotal.WithLabelValues(metrics.CycleSkipped))

	c := &fakeCollector{block: make(chan struct{})}
	rec := &recorder{}
	s := newScheduler(t, Config{Interval: time.Second, Overlap: OverlapSkip}, c, rec)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(2200 * time.Millisecond)

	assert.Equal(t, int32(1), c.calls.Load())
	assert.Greater(t, testutil.ToFloat64(metrics.PollCyclesTotal.WithLabelValues(metrics.CycleSkipped)), before)

	close(c.block)
	require.Eventually(t, func() bool { return rec.count() >= 1 }, time.Second, 10*time.Millisecond)
}

func TestScheduler_AllowOverlap(t *testing.T) {
	c := &fakeCollector{block: make(chan struct{})}
	s := newScheduler(t, Config{Interval: time.Second, Overlap: OverlapAllow}, c)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return c.calls.Load() >= 2 }, 3*time.Second, 20*time.Millisecond)

	close(c.block)
}

func TestScheduler_TotalFailureKeepsPolling(t *testing.T) {
	rec := &recorder{}
	s := newScheduler(t, Config{Interval: time.Second}, &fakeCollector{empty: true}, rec)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return rec.count() >= 2 }, 3*time.Second, 20*time.Millisecond)

	r := rec.last()
	assert.False(t, r.Available())
	assert.Empty(t, r.Prices)
	assert.Equal(t, StatePolling, s.State())
}

func TestScheduler_PublisherPanicIsolated(t *testing.T) {
	rec := &recorder{}
	panicky := PublisherFunc(func(context.Context, report.Report) { panic("sink exploded") })
	s := newScheduler(t, Config{Interval: time.Second}, &fakeCollector{}, panicky, rec)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return rec.count() >= 2 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, StatePolling, s.State())
}

func TestScheduler_CollectorPanicRecovered(t *testing.T) {
	for _, overlap := range []string{OverlapSkip, OverlapAllow} {
		t.Run(overlap, func(t *testing.T) {
			var calls atomic.Int32
			c := collectorFunc(func(ctx context.Context, descs []sources.Descriptor) aggregator.Snapshot {
				if calls.Add(1) == 1 {
					panic("collector exploded")
				}
				return aggregator.Snapshot{ID: uuid.New()}
			})
			rec := &recorder{}
			s := newScheduler(t, Config{Interval: time.Second, Overlap: overlap}, c, rec)

			require.NoError(t, s.Start(context.Background()))
			// the panicking cycle must not hold the overlap slot
			require.Eventually(t, func() bool { return rec.count() >= 2 }, 4*time.Second, 20*time.Millisecond)
			assert.Equal(t, StatePolling, s.State())
		})
	}
}

func TestScheduler_RunOnce(t *testing.T) {
	rec := &recorder{}
	s := newScheduler(t, Config{Asset: "USDT/USD"}, &fakeCollector{}, rec)

	r := s.RunOnce(context.Background())
	require.NotNil(t, r.Signal)
	assert.Len(t, r.Prices, 3)
	assert.True(t, decimal.RequireFromString("0.02").Equal(r.Signal.Spread))
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, StateIdle, s.State())
}

func TestLogPublisher(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	p := NewLogPublisher(logging.New(&buf, "json"))

	s := newScheduler(t, Config{Asset: "USDT/USD"}, &fakeCollector{}, p)
	s.RunOnce(context.Background())

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Arbitrage signal", line["message"])
	assert.Equal(t, "X@1", line["best_buy"])
	assert.Equal(t, "Z@1.02", line["best_sell"])
	assert.Equal(t, "0.02", line["spread"])

	buf.Reset()
	p.Publish(context.Background(), report.Report{CycleID: uuid.New(), Asset: "USDT/USD"})
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "Prices unavailable", line["message"])
}

type collectorFunc func(ctx context.Context, descs []sources.Descriptor) aggregator.Snapshot

func (f collectorFunc) Collect(ctx context.Context, descs []sources.Descriptor) aggregator.Snapshot {
	return f(ctx, descs)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "polling", StatePolling.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "state(9)", State(9).String())
}
