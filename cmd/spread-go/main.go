package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/StrathCole/spread-go/pkg/config"
	"github.com/StrathCole/spread-go/pkg/logging"
	"github.com/StrathCole/spread-go/pkg/metrics"
	"github.com/StrathCole/spread-go/pkg/server/aggregator"
	"github.com/StrathCole/spread-go/pkg/server/api"
	"github.com/StrathCole/spread-go/pkg/server/poller"
	"github.com/StrathCole/spread-go/pkg/server/report"
	"github.com/StrathCole/spread-go/pkg/server/sources"
	"github.com/StrathCole/spread-go/pkg/version"

	// Import extractors to register them
	_ "github.com/StrathCole/spread-go/pkg/server/sources/cex"
)

var (
	configFile = flag.String("config", "", "Path to configuration file (built-in sources when empty)")
	showVer    = flag.Bool("version", false, "Show version and exit")
	once       = flag.Bool("once", false, "Run a single poll cycle, print the report as JSON and exit")
	interval   = flag.Duration("interval", 0, "Override poll.interval")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("spread-go version %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Override settings from command line
	if *interval > 0 {
		cfg.Poll.Interval = config.Duration(*interval)
	}
	if *once && cfg.Logging.Output == "stdout" {
		// stdout carries the report
		cfg.Logging.Output = "stderr"
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting spread-go", "version", version.Version, "asset", cfg.Asset)

	registry, err := config.BuildRegistry(cfg)
	if err != nil {
		logger.Fatal("Failed to build source registry", "error", err)
	}

	adapter := sources.NewAdapter(
		sources.WithTimeout(cfg.Poll.Timeout.ToDuration()),
		sources.WithRetries(cfg.Poll.Retries, cfg.Poll.Backoff.ToDuration()),
		sources.WithLogger(logger.With("component", "adapter")),
	)

	agg, err := aggregator.New(adapter, logger.With("component", "aggregator"),
		aggregator.WithConcurrency(cfg.Poll.Concurrency))
	if err != nil {
		logger.Fatal("Failed to create aggregator", "error", err)
	}

	store := report.NewStore()
	publishers := []poller.Publisher{store, poller.NewLogPublisher(logger)}

	var wsServer *api.WebSocketServer
	if cfg.Server.WebSocket.Enabled && !*once {
		wsServer = api.NewWebSocketServer(cfg.Server.WebSocket.Addr, store, logger.With("component", "websocket"))
		publishers = append(publishers, wsServer)
	}

	scheduler, err := poller.New(poller.Config{
		Interval: cfg.Poll.Interval.ToDuration(),
		Overlap:  cfg.Poll.Overlap,
		Asset:    cfg.Asset,
	}, registry, agg, logger, publishers...)
	if err != nil {
		logger.Fatal("Failed to create scheduler", "error", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *once {
		go func() {
			<-sigChan
			cancel()
		}()
		if err := runOnce(ctx, scheduler); err != nil {
			logger.Error("Failed to write report", "error", err)
			os.Exit(1)
		}
		return
	}

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	errChan := make(chan error, 2)

	var httpServer *api.Server
	if cfg.Server.HTTP.IsEnabled() {
		httpServer = api.NewServer(cfg.Server.HTTP.Addr, store, logger.With("component", "http"))
		if cfg.Server.HTTP.TLS.Enabled {
			httpServer.SetTLS(cfg.Server.HTTP.TLS.Cert, cfg.Server.HTTP.TLS.Key)
		}
		if wsServer != nil && cfg.Server.WebSocket.Addr == "" {
			httpServer.SetWebSocketServer(wsServer)
		}
		go func() {
			errChan <- httpServer.Start()
		}()
	}

	if wsServer != nil && cfg.Server.WebSocket.Addr != "" {
		go func() {
			errChan <- wsServer.Start(ctx)
		}()
	}

	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler", "error", err)
	}

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		if err != nil {
			logger.Error("Component failed", "error", err)
		}
	}

	logger.Info("Shutting down gracefully...")
	cancel()
	scheduler.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if wsServer != nil {
		wsServer.Stop()
	}
	if httpServer != nil {
		if err := httpServer.Stop(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
	}

	logger.Info("Shutdown complete")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runOnce(ctx context.Context, scheduler *poller.Scheduler) error {
	r := scheduler.RunOnce(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
