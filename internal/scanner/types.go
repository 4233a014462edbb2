package scanner

import (
	"fmt"

	"github.com/JadenB9/mode/internal/services"
)

// PortState is the reachability of a probed port.
type PortState int

const (
	Open PortState = iota
	Closed
	Filtered
)

// String returns the lowercase state label used in reports.
func (s PortState) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Filtered:
		return "filtered"
	default:
		return "unknown"
	}
}

// MarshalText renders the state as its label in JSON payloads.
func (s PortState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state label.
func (s *PortState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "open":
		*s = Open
	case "closed":
		*s = Closed
	case "filtered":
		*s = Filtered
	default:
		return fmt.Errorf("unknown port state %q", text)
	}
	return nil
}

// PortInfo describes one port retained by the engine. Only Open ports are
// ever produced; closed and filtered ports are dropped.
type PortInfo struct {
	Port uint16 `json:"port"`
	// Service is empty when detection was off or the port is not in the catalog.
	Service string    `json:"service,omitempty"`
	State   PortState `json:"state"`
}

// ServiceName returns the service or "unknown".
func (p PortInfo) ServiceName() string {
	if p.Service == "" {
		return services.Unknown
	}
	return p.Service
}

// Options are the operator toggles for a scan. They are frozen once
// scanning begins.
type Options struct {
	ServiceDetection bool `json:"service_detection"`
	SaveToFile       bool `json:"save_to_file"`
}
