package session

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/JadenB9/mode/internal/metrics"
	"github.com/JadenB9/mode/internal/publisher"
	"github.com/JadenB9/mode/internal/scanerr"
	"github.com/JadenB9/mode/internal/scanner"
)

// TargetResolver turns a target into the address to probe.
type TargetResolver interface {
	Resolve(ctx context.Context, target string) (net.IP, error)
}

// Engine probes ports on one address.
type Engine interface {
	Scan(ctx context.Context, req scanner.Request, onProgress scanner.ProgressFunc) ([]scanner.PortInfo, error)
}

// ReportSaver persists results and returns the written paths.
type ReportSaver interface {
	Save(target string, results []scanner.PortInfo) ([]string, error)
}

// EventPublisher announces completed scans.
type EventPublisher interface {
	PublishScanCompleted(ctx context.Context, data publisher.ScanCompletedData) error
}

// Outcome is what a finished scan produced.
type Outcome struct {
	IP          net.IP
	Results     []scanner.PortInfo
	ReportPaths []string
	Duration    time.Duration
}

// Runner executes sessions: resolve, scan, persist, publish.
type Runner struct {
	resolver  TargetResolver
	engine    Engine
	reports   ReportSaver
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.SugaredLogger
}

// NewRunner creates a Runner. reports and pub may be nil.
func NewRunner(resolver TargetResolver, engine Engine, reports ReportSaver, pub EventPublisher, m *metrics.Metrics, logger *zap.SugaredLogger) *Runner {
	return &Runner{
		resolver:  resolver,
		engine:    engine,
		reports:   reports,
		publisher: pub,
		metrics:   m,
		logger:    logger,
	}
}

// Run executes sess. Resolution failure aborts before any port is probed.
// If the scan succeeds but saving fails, Run returns the outcome with its
// results together with a ReportWriteError.
func (r *Runner) Run(ctx context.Context, sess *Session, onProgress scanner.ProgressFunc) (*Outcome, error) {
	start := time.Now()
	log := r.logger.With("scan_id", sess.ID.String(), "target", sess.Target)

	ip, err := r.resolver.Resolve(ctx, sess.Target)
	if err != nil {
		log.Warnw("Target resolution failed", "error", err)
		r.metrics.ObserveScan("failed", time.Since(start).Seconds())
		return nil, err
	}

	req := scanner.Request{
		IP:               ip,
		Ports:            sess.Ports,
		ServiceDetection: sess.Options.ServiceDetection,
	}
	results, err := r.engine.Scan(ctx, req, func(completed, total int) {
		sess.setCompleted(completed)
		if onProgress != nil {
			onProgress(completed, total)
		}
	})
	if err != nil {
		status := "failed"
		if scanerr.Is(err, scanerr.Cancelled) {
			status = "cancelled"
		}
		log.Infow("Scan did not complete", "status", status, "error", err)
		r.metrics.ObserveScan(status, time.Since(start).Seconds())
		return nil, err
	}

	outcome := &Outcome{IP: ip, Results: results}

	if r.publisher != nil {
		if err := r.publisher.PublishScanCompleted(ctx, completedEvent(sess, ip, results)); err != nil {
			log.Warnw("Failed to publish scan completed event", "error", err)
		}
	}

	if sess.Options.SaveToFile && r.reports != nil {
		paths, err := r.reports.Save(sess.Target, results)
		outcome.ReportPaths = paths
		if err != nil {
			outcome.Duration = time.Since(start)
			log.Errorw("Failed to save scan results", "error", err)
			r.metrics.ObserveScan("save_failed", outcome.Duration.Seconds())
			return outcome, err
		}
	}

	outcome.Duration = time.Since(start)
	r.metrics.ObserveScan("completed", outcome.Duration.Seconds())
	log.Infow("Scan finished",
		"ip", ip.String(),
		"open_ports", len(results),
		"reports", outcome.ReportPaths,
		"duration", outcome.Duration,
	)

	return outcome, nil
}

func completedEvent(sess *Session, ip net.IP, results []scanner.PortInfo) publisher.ScanCompletedData {
	open := make([]publisher.OpenPort, 0, len(results))
	for _, p := range results {
		open = append(open, publisher.OpenPort{Port: p.Port, Service: p.Service})
	}
	return publisher.ScanCompletedData{
		ScanID:     sess.ID.String(),
		Target:     sess.Target,
		IP:         ip.String(),
		ScanType:   sess.ScanType.Name(),
		PortsTotal: len(sess.Ports),
		OpenPorts:  open,
	}
}
