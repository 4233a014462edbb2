// Package callback sends scan progress and completion callbacks over HTTP.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const collectorName = "portscan"

// Reporter sends progress and completion callbacks for one scan.
type Reporter struct {
	scanID      string
	progressURL string
	completeURL string
	apiKey      string
	logger      *zap.SugaredLogger
	client      *http.Client
	sequence    int64 // Monotonic counter for idempotency
	openPorts   int64
}

// Progress represents a progress update.
type Progress struct {
	ScanID    string `json:"scan_id"`
	Collector string `json:"collector"`
	Sequence  int    `json:"sequence"`
	Phase     string `json:"phase,omitempty"`
	Progress  int    `json:"progress"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	OpenPorts int    `json:"open_ports"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Completion represents a scan completion.
type Completion struct {
	ScanID       string `json:"scan_id"`
	Collector    string `json:"collector"`
	Status       string `json:"status"` // completed, failed, cancelled
	OpenPorts    int    `json:"open_ports"`
	ErrorMessage string `json:"error_message,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// NewReporter creates a new callback reporter. Empty URLs disable the
// corresponding callback.
func NewReporter(scanID, progressURL, completeURL, apiKey string, logger *zap.SugaredLogger) *Reporter {
	return &Reporter{
		scanID:      scanID,
		progressURL: progressURL,
		completeURL: completeURL,
		apiKey:      apiKey,
		logger:      logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ReportProgress sends a progress update. The percentage is capped at 99;
// 100 is reserved for completion.
func (r *Reporter) ReportProgress(phase string, completed, total int, message string) error {
	if r.progressURL == "" {
		return nil
	}

	seq := atomic.AddInt64(&r.sequence, 1)
	percent := 0
	if total > 0 {
		percent = completed * 100 / total
	}
	if percent > 99 {
		percent = 99
	}

	payload := Progress{
		ScanID:    r.scanID,
		Collector: collectorName,
		Sequence:  int(seq),
		Phase:     phase,
		Progress:  percent,
		Completed: completed,
		Total:     total,
		OpenPorts: int(atomic.LoadInt64(&r.openPorts)),
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return r.sendCallback(r.progressURL, payload)
}

// ReportComplete sends a completion callback.
func (r *Reporter) ReportComplete(status string, errorMsg string) error {
	if r.completeURL == "" {
		return nil
	}

	payload := Completion{
		ScanID:       r.scanID,
		Collector:    collectorName,
		Status:       status,
		OpenPorts:    int(atomic.LoadInt64(&r.openPorts)),
		ErrorMessage: errorMsg,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}

	return r.sendCallback(r.completeURL, payload)
}

// SetOpenPorts records the number of open ports found so far.
func (r *Reporter) SetOpenPorts(n int) {
	atomic.StoreInt64(&r.openPorts, int64(n))
}

func (r *Reporter) sendCallback(url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-Internal-API-Key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warnw("Callback failed", "url", url, "error", err)
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		r.logger.Warnw("Callback returned error", "url", url, "status", resp.StatusCode)
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}

	r.logger.Debugw("Callback sent", "url", url, "status", resp.StatusCode)
	return nil
}
