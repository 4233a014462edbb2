package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JadenB9/mode/internal/callback"
	"github.com/JadenB9/mode/internal/scanerr"
	"github.com/JadenB9/mode/internal/scanner"
)

// JobStatus is the lifecycle state of a background scan.
type JobStatus string

const (
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

var (
	// ErrJobNotFound is returned for unknown scan IDs.
	ErrJobNotFound = errors.New("scan not found")
	// ErrJobFinished is returned when cancelling a scan that already ended.
	ErrJobFinished = errors.New("scan already finished")
)

// JobRequest starts a background scan. Empty callback URLs disable callbacks.
type JobRequest struct {
	Session     *Session
	ProgressURL string
	CompleteURL string
	APIKey      string
}

// Snapshot is a point-in-time view of a job.
type Snapshot struct {
	ID          string             `json:"scan_id"`
	Target      string             `json:"target"`
	ScanType    string             `json:"scan_type"`
	Status      JobStatus          `json:"status"`
	Completed   int                `json:"completed"`
	Total       int                `json:"total"`
	Results     []scanner.PortInfo `json:"results,omitempty"`
	ReportPaths []string           `json:"report_paths,omitempty"`
	Error       string             `json:"error,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  *time.Time         `json:"finished_at,omitempty"`
}

type job struct {
	session  *Session
	cancel   context.CancelFunc
	done     chan struct{}
	reporter *callback.Reporter

	mu          sync.RWMutex
	status      JobStatus
	results     []scanner.PortInfo
	reportPaths []string
	errMsg      string
	finishedAt  time.Time
}

// Manager runs scans in the background and tracks them by ID. Finished
// jobs are dropped once they are older than the retention period.
type Manager struct {
	runner           *Runner
	logger           *zap.SugaredLogger
	progressInterval time.Duration
	retention        time.Duration

	mu   sync.RWMutex
	jobs map[uuid.UUID]*job
	wg   sync.WaitGroup

	stopJanitor chan struct{}
	stopOnce    sync.Once
}

// NewManager creates a job manager. Progress callbacks fire every 10s.
func NewManager(runner *Runner, retention time.Duration, logger *zap.SugaredLogger) *Manager {
	if retention <= 0 {
		retention = time.Hour
	}
	m := &Manager{
		runner:           runner,
		logger:           logger,
		progressInterval: 10 * time.Second,
		retention:        retention,
		jobs:             make(map[uuid.UUID]*job),
		stopJanitor:      make(chan struct{}),
	}
	go m.janitor()
	return m
}

func (m *Manager) janitor() {
	interval := min(m.retention, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if n := m.prune(now); n > 0 {
				m.logger.Debugw("Dropped expired scan jobs", "count", n)
			}
		case <-m.stopJanitor:
			return
		}
	}
}

// prune removes jobs that finished at least one retention period before now.
func (m *Manager) prune(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, j := range m.jobs {
		j.mu.RLock()
		expired := j.status != StatusRunning && !j.finishedAt.IsZero() && now.Sub(j.finishedAt) >= m.retention
		j.mu.RUnlock()
		if expired {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}

// Start launches req in the background and returns its initial snapshot.
func (m *Manager) Start(req JobRequest) Snapshot {
	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		session:  req.Session,
		cancel:   cancel,
		done:     make(chan struct{}),
		reporter: callback.NewReporter(req.Session.ID.String(), req.ProgressURL, req.CompleteURL, req.APIKey, m.logger),
		status:   StatusRunning,
	}

	m.mu.Lock()
	m.jobs[req.Session.ID] = j
	m.mu.Unlock()

	m.logger.Infow("Starting background scan",
		"scan_id", req.Session.ID.String(),
		"target", req.Session.Target,
		"scan_type", req.Session.ScanType.Name(),
		"ports", len(req.Session.Ports),
	)

	m.wg.Add(1)
	go m.run(ctx, j)

	return j.snapshot()
}

func (m *Manager) run(ctx context.Context, j *job) {
	defer m.wg.Done()
	defer close(j.done)
	defer j.cancel()

	_, total := j.session.Progress()
	if err := j.reporter.ReportProgress("initializing", 0, total, "Starting port scan"); err != nil {
		m.logger.Warnw("Failed to report initial progress", "error", err)
	}

	// Periodic progress so callers stay updated during long scans.
	progressDone := make(chan struct{})
	tickerExited := make(chan struct{})
	go func() {
		defer close(tickerExited)
		ticker := time.NewTicker(m.progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				completed, total := j.session.Progress()
				msg := fmt.Sprintf("Scanned %d/%d ports", completed, total)
				_ = j.reporter.ReportProgress("port_scanning", completed, total, msg)
			case <-progressDone:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	outcome, err := m.runner.Run(ctx, j.session, nil)
	close(progressDone)
	// completion must be the last callback
	<-tickerExited

	j.mu.Lock()
	j.finishedAt = time.Now()
	if outcome != nil {
		j.results = outcome.Results
		j.reportPaths = outcome.ReportPaths
	}
	switch {
	case err == nil:
		j.status = StatusCompleted
	case scanerr.Is(err, scanerr.Cancelled):
		j.status = StatusCancelled
		j.errMsg = "Scan was cancelled"
	default:
		j.status = StatusFailed
		j.errMsg = err.Error()
	}
	status, errMsg := j.status, j.errMsg
	j.mu.Unlock()

	j.reporter.SetOpenPorts(len(j.results))
	if err := j.reporter.ReportComplete(string(status), errMsg); err != nil {
		m.logger.Errorw("Failed to report completion", "error", err)
	}

	m.logger.Infow("Background scan finished",
		"scan_id", j.session.ID.String(),
		"status", status,
		"open_ports", len(j.results),
	)
}

// Get returns the snapshot of the job with id.
func (m *Manager) Get(id uuid.UUID) (Snapshot, bool) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return j.snapshot(), true
}

// List returns all jobs, oldest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	out := make([]Snapshot, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.snapshot())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, k int) bool {
		return out[i].StartedAt.Before(out[k].StartedAt)
	})
	return out
}

// Cancel stops a running job. It does not wait for the job to wind down.
func (m *Manager) Cancel(id uuid.UUID) error {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}

	j.mu.RLock()
	running := j.status == StatusRunning
	j.mu.RUnlock()
	if !running {
		return ErrJobFinished
	}

	m.logger.Infow("Cancelling background scan", "scan_id", id.String())
	j.cancel()
	return nil
}

// Done returns a channel closed when the job with id has finished.
func (m *Manager) Done(id uuid.UUID) (<-chan struct{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	return j.done, true
}

// Shutdown cancels every running job and waits for them to finish or ctx
// to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stopJanitor) })

	m.mu.RLock()
	for _, j := range m.jobs {
		j.cancel()
	}
	m.mu.RUnlock()

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *job) snapshot() Snapshot {
	completed, total := j.session.Progress()

	j.mu.RLock()
	defer j.mu.RUnlock()

	s := Snapshot{
		ID:          j.session.ID.String(),
		Target:      j.session.Target,
		ScanType:    j.session.ScanType.Name(),
		Status:      j.status,
		Completed:   completed,
		Total:       total,
		Results:     j.results,
		ReportPaths: j.reportPaths,
		Error:       j.errMsg,
		StartedAt:   j.session.CreatedAt,
	}
	if !j.finishedAt.IsZero() {
		finished := j.finishedAt
		s.FinishedAt = &finished
	}
	return s
}
