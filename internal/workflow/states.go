// Package workflow is the interactive scan wizard as a pure state machine:
// select scan type, enter target, [enter custom range], configure options,
// confirm, scan, view results. It performs no I/O; the caller runs the scan
// and reports progress and completion back.
package workflow

import (
	"github.com/JadenB9/mode/internal/ports"
	"github.com/JadenB9/mode/internal/scanerr"
	"github.com/JadenB9/mode/internal/scanner"
	"github.com/JadenB9/mode/internal/session"
)

// State is one step of the wizard. Each implementation carries only the
// fields relevant to its step.
type State interface {
	isState()
}

// SelectingScanType is the initial step.
type SelectingScanType struct {
	Selected int
}

// EnteringTarget collects the target IP or hostname.
type EnteringTarget struct {
	ScanType ports.ScanType
	Input    string
}

// EnteringPortRange collects a custom range expression. Only reached for
// ports.CustomRange.
type EnteringPortRange struct {
	Target string
	Input  string
}

// SelectingOptions toggles the scan options.
type SelectingOptions struct {
	ScanType    ports.ScanType
	Target      string
	Selected    int
	Options     scanner.Options
	CustomPorts []uint16
}

// Confirming shows the parameters before the scan starts.
type Confirming struct {
	ScanType    ports.ScanType
	Target      string
	Options     scanner.Options
	CustomPorts []uint16
}

// Scanning is an in-flight scan.
type Scanning struct {
	ScanType    ports.ScanType
	Target      string
	Options     scanner.Options
	CustomPorts []uint16
	Session     *session.Session
	Completed   int
	Total       int
}

// ViewingResults lists the open ports of a finished scan.
type ViewingResults struct {
	Target    string
	OpenPorts []scanner.PortInfo
	Scroll    int
	SavedTo   []string
}

// Success is a terminal state with a message.
type Success struct {
	Message string
}

// Error is a terminal state. Results holds the in-memory results when the
// scan itself succeeded but saving them failed.
type Error struct {
	Message string
	Kind    scanerr.Kind
	Results []scanner.PortInfo
}

func (SelectingScanType) isState() {}
func (EnteringTarget) isState()    {}
func (EnteringPortRange) isState() {}
func (SelectingOptions) isState()  {}
func (Confirming) isState()        {}
func (Scanning) isState()          {}
func (ViewingResults) isState()    {}
func (Success) isState()           {}
func (Error) isState()             {}

// ScanOption is a toggle on the options step.
type ScanOption int

const (
	ServiceDetection ScanOption = iota
	SaveToFile
)

// AllScanOptions returns the options in display order.
func AllScanOptions() []ScanOption {
	return []ScanOption{ServiceDetection, SaveToFile}
}

// Name returns the display name.
func (o ScanOption) Name() string {
	switch o {
	case ServiceDetection:
		return "Service Detection"
	case SaveToFile:
		return "Save Results to File"
	default:
		return "Unknown"
	}
}

// Description returns the option line including its [ON]/[OFF] status.
func (o ScanOption) Description(enabled bool) string {
	status := "OFF"
	if enabled {
		status = "ON"
	}
	switch o {
	case ServiceDetection:
		return "[" + status + "] Attempt to identify services running on open ports"
	case SaveToFile:
		return "[" + status + "] Save scan results to a file"
	default:
		return "[" + status + "]"
	}
}

// Enabled reports whether o is set in opts.
func (o ScanOption) Enabled(opts scanner.Options) bool {
	switch o {
	case ServiceDetection:
		return opts.ServiceDetection
	case SaveToFile:
		return opts.SaveToFile
	default:
		return false
	}
}

func (o ScanOption) toggle(opts scanner.Options) scanner.Options {
	switch o {
	case ServiceDetection:
		opts.ServiceDetection = !opts.ServiceDetection
	case SaveToFile:
		opts.SaveToFile = !opts.SaveToFile
	}
	return opts
}
