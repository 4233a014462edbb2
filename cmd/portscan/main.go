// Package main is the entry point for the port scanner.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/JadenB9/mode/internal/api"
	"github.com/JadenB9/mode/internal/config"
	"github.com/JadenB9/mode/internal/metrics"
	"github.com/JadenB9/mode/internal/publisher"
	"github.com/JadenB9/mode/internal/report"
	"github.com/JadenB9/mode/internal/scanner"
	"github.com/JadenB9/mode/internal/session"
	"github.com/JadenB9/mode/internal/target"
	"github.com/JadenB9/mode/internal/ui"
)

func main() {
	flags := pflag.NewFlagSet("portscan", pflag.ExitOnError)
	config.RegisterFlags(flags)
	_ = flags.Parse(os.Args[1:])

	// Load configuration
	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Logging, cfg.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	sugar := logger.Sugar()
	sugar.Infow("Configuration loaded",
		"mode", cfg.Mode,
		"timeout_ms", cfg.Scanner.Timeout,
		"concurrency", cfg.Scanner.Concurrency,
		"rate_limit", cfg.Scanner.RateLimit,
		"report_dir", cfg.Report.Dir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	resolver, err := target.NewResolver(cfg.Resolver, m, sugar)
	if err != nil {
		sugar.Fatalf("Failed to initialize resolver: %v", err)
	}
	defer resolver.Close()

	// Initialize RabbitMQ publisher
	var events session.EventPublisher
	if cfg.RabbitMQ.Enabled {
		pub, err := publisher.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, sugar)
		if err != nil {
			sugar.Fatalf("Failed to initialize publisher: %v", err)
		}
		defer func() { _ = pub.Close() }()
		events = pub
	}

	engine := scanner.New(cfg.Scanner, m, sugar)
	reports := report.NewWriter(cfg.Report, sugar)
	runner := session.NewRunner(resolver, engine, reports, events, m, sugar)

	switch cfg.Mode {
	case "serve":
		serve(ctx, cfg, runner, reg, sugar)
	case "tui", "":
		if err := ui.Run(ctx, runner, sugar); err != nil {
			sugar.Errorw("Interactive session failed", "error", err)
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (expected tui or serve)\n", cfg.Mode)
		os.Exit(2)
	}
}

func serve(ctx context.Context, cfg *config.Config, runner *session.Runner, reg *prometheus.Registry, sugar *zap.SugaredLogger) {
	jobs := session.NewManager(runner, cfg.Server.Retention(), sugar)
	server := api.New(runner, jobs, reg, sugar)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		sugar.Infof("HTTP server listening on port %d", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	sugar.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop running scans
	if err := jobs.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("Scans did not stop in time", "error", err)
	}

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("Server forced to shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}
