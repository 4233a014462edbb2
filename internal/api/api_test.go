package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JadenB9/mode/internal/config"
	"github.com/JadenB9/mode/internal/metrics"
	"github.com/JadenB9/mode/internal/scanner"
	"github.com/JadenB9/mode/internal/session"
	"github.com/JadenB9/mode/internal/target"
)

func newTestServer(t *testing.T, dial scanner.DialFunc) (*Server, *session.Manager) {
	t.Helper()
	logger := zap.NewNop().Sugar()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	resolver, err := target.NewResolver(config.ResolverConfig{}, m, logger)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	engine := scanner.New(config.ScannerConfig{Timeout: 200, Concurrency: 8}, m, logger, scanner.WithDialer(dial))
	runner := session.NewRunner(resolver, engine, nil, nil, m, logger)
	jobs := session.NewManager(runner, time.Hour, logger)
	return New(runner, jobs, reg, logger), jobs
}

// openOn returns a dialer that only accepts the given ports.
func openOn(ports ...int) scanner.DialFunc {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		_, p, _ := net.SplitHostPort(address)
		for _, port := range ports {
			if p == strconv.Itoa(port) {
				client, server := net.Pipe()
				_ = server.Close()
				return client, nil
			}
		}
		return nil, errors.New("connection refused")
	}
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthAndReady(t *testing.T) {
	s, _ := newTestServer(t, openOn())
	for _, path := range []string{"/health", "/ready"} {
		if w := do(t, s, http.MethodGet, path, nil); w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, w.Code)
		}
	}
}

func TestStartScanValidation(t *testing.T) {
	s, _ := newTestServer(t, openOn())

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing target", map[string]any{}},
		{"invalid target", map[string]any{"target": "-bad.com"}},
		{"bad range", map[string]any{"target": "10.0.0.1", "scan_type": "custom", "port_range": "100-50"}},
		{"empty range", map[string]any{"target": "10.0.0.1", "scan_type": "custom"}},
		{"unknown type", map[string]any{"target": "10.0.0.1", "scan_type": "stealth"}},
		{"bad callback", map[string]any{"target": "10.0.0.1", "progress_url": "not a url"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/v1/scans", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestStartScanLifecycle(t *testing.T) {
	s, jobs := newTestServer(t, openOn(22, 443))

	w := do(t, s, http.MethodPost, "/api/v1/scans", map[string]any{
		"target":            "127.0.0.1",
		"scan_type":         "custom",
		"port_range":        "20-25,443",
		"service_detection": true,
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var started StartScanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if started.Status != "running" || started.Total != 7 {
		t.Fatalf("unexpected start response %+v", started)
	}

	id := uuid.MustParse(started.ScanID)
	done, _ := jobs.Done(id)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not finish")
	}

	w = do(t, s, http.MethodGet, "/api/v1/scans/"+started.ScanID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var snap session.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Status != session.StatusCompleted || len(snap.Results) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Results[0].Port != 22 || snap.Results[0].Service != "SSH" || snap.Results[1].Port != 443 {
		t.Fatalf("unexpected results %+v", snap.Results)
	}
	if !strings.Contains(w.Body.String(), `"state":"open"`) {
		t.Fatalf("state should serialize as a label: %s", w.Body.String())
	}

	w = do(t, s, http.MethodPost, "/api/v1/scans/"+started.ScanID+"/cancel", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("cancel after completion: expected 409, got %d", w.Code)
	}

	w = do(t, s, http.MethodGet, "/api/v1/scans", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), started.ScanID) {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
}

func TestScanLookupErrors(t *testing.T) {
	s, _ := newTestServer(t, openOn())

	if w := do(t, s, http.MethodGet, "/api/v1/scans/not-a-uuid", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	missing := uuid.New().String()
	if w := do(t, s, http.MethodGet, "/api/v1/scans/"+missing, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/api/v1/scans/"+missing+"/cancel", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestScanTarget(t *testing.T) {
	s, _ := newTestServer(t, openOn(80, 3306))

	w := do(t, s, http.MethodPost, "/api/v1/scan/target", map[string]any{
		"target":            "127.0.0.1",
		"service_detection": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ScanTargetResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || resp.IP != "127.0.0.1" || resp.Results[1].Service != "MySQL" {
		t.Fatalf("unexpected response %+v", resp)
	}

	if w := do(t, s, http.MethodPost, "/api/v1/scan/target", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, openOn(80))

	do(t, s, http.MethodPost, "/api/v1/scan/target", map[string]any{"target": "127.0.0.1"})

	w := do(t, s, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{"portscan_probes_total", "portscan_scans_total", "portscan_open_ports_total"} {
		if !strings.Contains(body, name) {
			t.Fatalf("metrics output missing %s", name)
		}
	}
}
