// Package scanerr defines the error taxonomy shared by the scanner packages.
package scanerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for programmatic handling.
type Kind int

const (
	// Unknown is used when the error doesn't fit any other category
	Unknown Kind = iota
	// InvalidTarget is a target string that is neither an IP literal nor a valid hostname
	InvalidTarget
	// InvalidPortRange is a malformed or empty port range expression
	InvalidPortRange
	// ResolutionFailed is a hostname lookup that errored or returned no addresses
	ResolutionFailed
	// ScanIOFailure is a scan-wide I/O fault unrelated to a single port
	ScanIOFailure
	// ReportWriteError is a failure to persist results after a successful scan
	ReportWriteError
	// Cancelled is a scan abandoned by the operator
	Cancelled
)

var kindNames = map[Kind]string{
	Unknown:          "unknown",
	InvalidTarget:    "invalid_target",
	InvalidPortRange: "invalid_port_range",
	ResolutionFailed: "resolution_failed",
	ScanIOFailure:    "scan_io_failure",
	ReportWriteError: "report_write_error",
	Cancelled:        "cancelled",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unknown]
}

// Error is a scanner error carrying its kind and the operation that failed.
type Error struct {
	// Kind for programmatic handling
	Kind Kind
	// Operation that was being performed
	Op string
	// Human-readable message
	Message string
	// Underlying error, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new scanner error.
func New(kind Kind, op, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
