// Package poller runs the fetch, aggregate and compute cycle on a fixed
// interval and hands each report to the configured publishers.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/StrathCole/spread-go/pkg/logging"
	"github.com/StrathCole/spread-go/pkg/metrics"
	"github.com/StrathCole/spread-go/pkg/server/aggregator"
	"github.com/StrathCole/spread-go/pkg/server/arbitrage"
	"github.com/StrathCole/spread-go/pkg/server/report"
	"github.com/StrathCole/spread-go/pkg/server/sources"
)

const (
	// DefaultInterval is the polling period when none is configured.
	DefaultInterval = 15 * time.Second
	// MinInterval is the shortest supported period. Intervals must be whole
	// seconds because cron.Every truncates anything finer.
	MinInterval = time.Second
)

// Overlap policies for a tick that fires while the previous cycle is running.
const (
	OverlapSkip  = "skip"
	OverlapAllow = "allow"
)

// State is the scheduler lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePolling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Collector produces a snapshot for a set of descriptors.
type Collector interface {
	Collect(ctx context.Context, descs []sources.Descriptor) aggregator.Snapshot
}

// Config holds scheduler settings.
type Config struct {
	Interval time.Duration
	Overlap  string
	Asset    string
}

// Scheduler drives poll cycles.
type Scheduler struct {
	cfg        Config
	registry   *sources.Registry
	collector  Collector
	logger     *logging.Logger
	publishers []Publisher

	mu     sync.Mutex
	state  State
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	inflight sync.WaitGroup
	stopOnce sync.Once
}

// New creates a scheduler. Publishers are called in order after every cycle.
func New(cfg Config, registry *sources.Registry, collector Collector, logger *logging.Logger, publishers ...Publisher) (*Scheduler, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w", ErrNoRegistry)
	}
	if collector == nil {
		return nil, fmt.Errorf("%w", ErrNoCollector)
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Interval < MinInterval {
		return nil, fmt.Errorf("%w: %s (minimum %s)", ErrInvalidInterval, cfg.Interval, MinInterval)
	}
	if cfg.Interval%time.Second != 0 {
		return nil, fmt.Errorf("%w: %s (must be whole seconds)", ErrInvalidInterval, cfg.Interval)
	}
	switch cfg.Overlap {
	case "":
		cfg.Overlap = OverlapSkip
	case OverlapSkip, OverlapAllow:
	default:
		return nil, fmt.Errorf("%w: %q (supported: skip, allow)", ErrInvalidOverlap, cfg.Overlap)
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	return &Scheduler{
		cfg:        cfg,
		registry:   registry,
		collector:  collector,
		logger:     logger.With("component", "poller"),
		publishers: publishers,
	}, nil
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start runs one cycle immediately and then one every interval until Stop
// is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StatePolling:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrStopped
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	cronLogger := logging.NewCronLogger(s.logger)
	// SkipIfStillRunning only releases its slot when the job returns, so
	// Recover has to sit inside it.
	var wrappers []cron.JobWrapper
	if s.cfg.Overlap == OverlapSkip {
		wrappers = append(wrappers, cron.SkipIfStillRunning(&skipCounter{Logger: cronLogger}))
	}
	wrappers = append(wrappers, cron.Recover(cronLogger))

	s.cron = cron.New(cron.WithLogger(cronLogger), cron.WithChain(wrappers...))
	id := s.cron.Schedule(cron.Every(s.cfg.Interval), cron.FuncJob(s.runCycle))

	// the immediate cycle shares the wrapped job so it counts for overlap
	job := s.cron.Entry(id).WrappedJob
	s.state = StatePolling
	s.cron.Start()
	go job.Run()

	s.logger.Info("Scheduler started",
		"interval", s.cfg.Interval,
		"overlap", s.cfg.Overlap,
		"sources", s.registry.Names())

	go func() {
		<-s.ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the timer, cancels in-flight fetches and waits for running
// cycles to return. Results of those cycles are discarded. Safe to call
// more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		prev := s.state
		s.state = StateStopped
		cancel := s.cancel
		c := s.cron
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if c != nil {
			<-c.Stop().Done()
		}
		s.inflight.Wait()

		if prev == StatePolling {
			s.logger.Info("Scheduler stopped")
		}
	})
}

// RunOnce performs a single cycle synchronously, publishes it and returns the report.
func (s *Scheduler) RunOnce(ctx context.Context) report.Report {
	start := time.Now()
	r := s.cycle(ctx)
	s.publish(ctx, r)
	metrics.RecordCycle(cycleResult(r), time.Since(start))
	return r
}

func (s *Scheduler) runCycle() {
	s.mu.Lock()
	if s.state != StatePolling {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	ctx := s.ctx
	s.mu.Unlock()
	defer s.inflight.Done()

	start := time.Now()
	r := s.cycle(ctx)

	if ctx.Err() != nil {
		metrics.RecordCycle(metrics.CycleDiscarded, 0)
		s.logger.Debug("Discarding cycle finished after stop", "cycle_id", r.CycleID.String())
		return
	}

	s.publish(ctx, r)

	duration := time.Since(start)
	metrics.RecordCycle(cycleResult(r), duration)
	s.logger.Debug("Cycle complete",
		"cycle_id", r.CycleID.String(),
		"prices", len(r.Prices),
		"available", r.Available(),
		"duration", duration)
}

func (s *Scheduler) cycle(ctx context.Context) report.Report {
	snap := s.collector.Collect(ctx, s.registry.Descriptors())
	sig, ok := arbitrage.Compute(snap)
	if ok {
		metrics.RecordSpread(sig.Spread)
	}
	return report.New(s.cfg.Asset, snap, sig, ok)
}

func (s *Scheduler) publish(ctx context.Context, r report.Report) {
	for i, p := range s.publishers {
		s.publishOne(ctx, i, p, r)
	}
}

func (s *Scheduler) publishOne(ctx context.Context, i int, p Publisher, r report.Report) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Publisher panicked",
				"publisher", fmt.Sprintf("%d:%T", i, p),
				"cycle_id", r.CycleID.String(),
				"panic", fmt.Sprint(rec))
		}
	}()
	p.Publish(ctx, r)
}

func cycleResult(r report.Report) string {
	if r.Available() {
		return metrics.CycleOK
	}
	return metrics.CycleUnavailable
}

// skipCounter counts ticks dropped by cron.SkipIfStillRunning, which
// reports them through the logger.
type skipCounter struct {
	cron.Logger
}

func (c *skipCounter) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		metrics.RecordCycle(metrics.CycleSkipped, 0)
	}
	c.Logger.Info(msg, keysAndValues...)
}
