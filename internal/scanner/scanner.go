// Package scanner implements the TCP connect-scan engine.
package scanner

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/JadenB9/mode/internal/config"
	"github.com/JadenB9/mode/internal/metrics"
	"github.com/JadenB9/mode/internal/scanerr"
	"github.com/JadenB9/mode/internal/services"
)

// DialFunc opens a connection. It matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ProgressFunc receives (attempts completed, total) after every probe.
type ProgressFunc func(completed, total int)

// Request describes one scan of a single resolved address.
type Request struct {
	IP    net.IP
	Ports []uint16
	// Timeout overrides the configured per-port timeout when positive.
	Timeout          time.Duration
	ServiceDetection bool
}

// Scanner performs connect scans.
type Scanner struct {
	config  config.ScannerConfig
	logger  *zap.SugaredLogger
	limiter *rate.Limiter
	metrics *metrics.Metrics
	dial    DialFunc
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithDialer replaces the network dialer, mainly for tests.
func WithDialer(dial DialFunc) Option {
	return func(s *Scanner) { s.dial = dial }
}

// New creates a new Scanner instance.
func New(cfg config.ScannerConfig, m *metrics.Metrics, logger *zap.SugaredLogger, opts ...Option) *Scanner {
	limit := rate.Inf
	burst := 0
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = cfg.RateLimit
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	var d net.Dialer
	s := &Scanner{
		config:  cfg,
		logger:  logger,
		limiter: rate.NewLimiter(limit, burst),
		metrics: m,
		dial:    d.DialContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan probes every port of req in order and returns the open ones in
// ascending slot order. Probes run concurrently up to the configured limit;
// onProgress is called from a single goroutine, and its last call happens
// before Scan returns. Per-port failures are never reported as errors.
func (s *Scanner) Scan(ctx context.Context, req Request, onProgress ProgressFunc) ([]PortInfo, error) {
	if req.IP == nil {
		return nil, scanerr.New(scanerr.ScanIOFailure, "scan", "no target address to scan", nil)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.config.ProbeTimeout()
	}

	total := len(req.Ports)
	host := req.IP.String()
	open := make([]bool, total)
	start := time.Now()

	s.logger.Infow("Starting port scan",
		"ip", host,
		"ports", total,
		"timeout", timeout,
		"concurrency", s.config.Concurrency,
	)

	// Single collector keeps progress monotonic regardless of completion order.
	done := make(chan struct{}, s.config.Concurrency)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		completed := 0
		for range done {
			completed++
			if onProgress != nil {
				onProgress(completed, total)
			}
		}
	}()

	sem := semaphore.NewWeighted(int64(s.config.Concurrency))
	var wg sync.WaitGroup
	var dispatchErr error

	for i, port := range req.Ports {
		if err := s.limiter.Wait(ctx); err != nil {
			dispatchErr = err
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			dispatchErr = err
			break
		}

		wg.Add(1)
		go func(slot int, address string) {
			defer wg.Done()
			defer sem.Release(1)

			open[slot] = s.probe(ctx, address, timeout)
			s.metrics.ObserveProbe(open[slot])
			done <- struct{}{}
		}(i, net.JoinHostPort(host, strconv.Itoa(int(port))))
	}

	wg.Wait()
	close(done)
	<-collected

	if dispatchErr == nil {
		dispatchErr = ctx.Err()
	}
	if dispatchErr != nil {
		s.logger.Infow("Port scan cancelled", "ip", host, "error", dispatchErr)
		if errors.Is(dispatchErr, context.Canceled) || errors.Is(dispatchErr, context.DeadlineExceeded) {
			return nil, scanerr.New(scanerr.Cancelled, "scan", "Scan cancelled", dispatchErr)
		}
		return nil, scanerr.New(scanerr.ScanIOFailure, "scan", "Scan aborted", dispatchErr)
	}

	results := make([]PortInfo, 0)
	for i, isOpen := range open {
		if !isOpen {
			continue
		}
		info := PortInfo{Port: req.Ports[i], State: Open}
		if req.ServiceDetection {
			if name, ok := services.Lookup(info.Port); ok {
				info.Service = name
			}
		}
		results = append(results, info)
	}

	s.logger.Infow("Port scan completed",
		"ip", host,
		"ports_scanned", total,
		"open_ports", len(results),
		"duration", time.Since(start),
	)

	return results, nil
}

// probe reports whether a TCP handshake with address completes within timeout.
// Refused, timed out and unreachable all count as not open.
func (s *Scanner) probe(ctx context.Context, address string, timeout time.Duration) bool {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := s.dial(dialCtx, "tcp", address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
