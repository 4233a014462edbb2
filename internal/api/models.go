package api

import "github.com/JadenB9/mode/internal/scanner"

// StartScanRequest is the body of POST /api/v1/scans.
type StartScanRequest struct {
	Target           string `json:"target" binding:"required"`
	ScanType         string `json:"scan_type"` // quick (default), standard, full, custom
	PortRange        string `json:"port_range"`
	ServiceDetection bool   `json:"service_detection"`
	SaveToFile       bool   `json:"save_to_file"`
	ProgressURL      string `json:"progress_url" binding:"omitempty,url"`
	CompleteURL      string `json:"complete_url" binding:"omitempty,url"`
}

// StartScanResponse is returned when a scan is accepted.
type StartScanResponse struct {
	ScanID string `json:"scan_id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// ScanTargetRequest is the body of POST /api/v1/scan/target.
type ScanTargetRequest struct {
	Target           string `json:"target" binding:"required"`
	ServiceDetection bool   `json:"service_detection"`
}

// ScanTargetResponse is the result of a synchronous quick scan.
type ScanTargetResponse struct {
	Target  string             `json:"target"`
	IP      string             `json:"ip"`
	Results []scanner.PortInfo `json:"results"`
	Count   int                `json:"count"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
