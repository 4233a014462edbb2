// Package ports resolves scan types and custom range expressions into port sets.
package ports

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/JadenB9/mode/internal/scanerr"
)

// MaxPort is the highest valid TCP port.
const MaxPort = 65535

// ScanType selects which ports a scan probes.
type ScanType int

const (
	// QuickScan probes a short list of common ports
	QuickScan ScanType = iota
	// StandardScan probes the top 100 most common ports
	StandardScan
	// FullScan probes every port from 1 to 65535
	FullScan
	// CustomRange probes a caller-supplied range expression
	CustomRange
)

var quickPorts = []uint16{
	21, 22, 23, 25, 53, 80, 110, 143, 443, 3306, 3389, 5432, 8080, 8443,
}

var standardPorts = []uint16{
	21, 22, 23, 25, 53, 80, 110, 111, 135, 139, 143, 443, 445, 993, 995, 1723,
	3306, 3389, 5900, 8080, 8443, 20, 69, 123, 137, 138, 161, 162, 389, 636,
	989, 990, 1025, 1026, 1027, 1433, 1434, 1521, 2049, 2082, 2083, 2086, 2087,
	2095, 2096, 3128, 5432, 5800, 5901, 6000, 6001, 8000, 8008, 8009, 8081,
	8082, 8083, 8084, 8085, 8086, 8087, 8088, 8089, 8090, 8180, 8181, 8888,
	9090, 9091, 9100, 9999, 10000, 32768, 32769, 32770, 32771, 32772, 32773,
	32774, 32775, 32776, 32777, 49152, 49153, 49154, 49155, 49156, 49157, 50000,
	50001, 50002, 50003,
}

// AllScanTypes returns the scan types in menu order.
func AllScanTypes() []ScanType {
	return []ScanType{QuickScan, StandardScan, FullScan, CustomRange}
}

// Name returns the display name.
func (t ScanType) Name() string {
	switch t {
	case QuickScan:
		return "Quick Scan"
	case StandardScan:
		return "Standard Scan"
	case FullScan:
		return "Full Scan"
	case CustomRange:
		return "Custom Range"
	default:
		return "Unknown"
	}
}

// Description returns a one-line summary for menus.
func (t ScanType) Description() string {
	switch t {
	case QuickScan:
		return "Scan common ports (21, 22, 23, 25, 53, 80, 110, 143, 443, 3306, 3389, 5432, 8080, 8443)"
	case StandardScan:
		return "Scan top 100 most common ports"
	case FullScan:
		return "Scan all 65535 ports (may take several minutes)"
	case CustomRange:
		return "Scan a custom port range (e.g., 1-1000)"
	default:
		return ""
	}
}

// Ports returns the preset port list in its defined order. CustomRange has
// no preset and returns nil. The returned slice is a fresh copy.
func (t ScanType) Ports() []uint16 {
	switch t {
	case QuickScan:
		return append([]uint16(nil), quickPorts...)
	case StandardScan:
		return append([]uint16(nil), standardPorts...)
	case FullScan:
		out := make([]uint16, 0, MaxPort)
		for p := 1; p <= MaxPort; p++ {
			out = append(out, uint16(p))
		}
		return out
	default:
		return nil
	}
}

// ParseScanType maps an API name ("quick", "standard", "full", "custom") to a ScanType.
func ParseScanType(name string) (ScanType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "quick", "":
		return QuickScan, nil
	case "standard":
		return StandardScan, nil
	case "full":
		return FullScan, nil
	case "custom":
		return CustomRange, nil
	default:
		return 0, fmt.Errorf("unknown scan type %q", name)
	}
}

// Resolve returns the sorted, de-duplicated port set for a scan. expr is
// only consulted for CustomRange.
func Resolve(t ScanType, expr string) ([]uint16, error) {
	if t == CustomRange {
		return ParseRange(expr)
	}
	return normalize(t.Ports()), nil
}

// ParseRange parses an expression such as "80,443,8000-9000" into a sorted,
// de-duplicated port list.
func ParseRange(expr string) ([]uint16, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, invalid("No valid ports specified")
	}

	seen := make(map[uint16]struct{})

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)

		if strings.Contains(part, "-") {
			bounds := strings.Split(part, "-")
			if len(bounds) != 2 {
				return nil, invalid(fmt.Sprintf("Invalid port range format: '%s'", part))
			}
			start, err := parsePort(bounds[0])
			if err != nil {
				return nil, err
			}
			end, err := parsePort(bounds[1])
			if err != nil {
				return nil, err
			}
			if start > end {
				return nil, invalid("Start port must be less than or equal to end port")
			}
			if start == 0 {
				return nil, invalid("Port numbers must be between 1 and 65535")
			}
			for p := int(start); p <= int(end); p++ {
				seen[uint16(p)] = struct{}{}
			}
			continue
		}

		port, err := parsePort(part)
		if err != nil {
			return nil, err
		}
		if port == 0 {
			return nil, invalid("Port numbers must be between 1 and 65535")
		}
		seen[port] = struct{}{}
	}

	out := make([]uint16, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

func parsePort(token string) (uint16, error) {
	token = strings.TrimSpace(token)
	v, err := strconv.ParseUint(token, 10, 16)
	if err != nil {
		return 0, scanerr.New(scanerr.InvalidPortRange, "parse",
			fmt.Sprintf("Invalid port number: '%s'", token), nil)
	}
	return uint16(v), nil
}

func normalize(in []uint16) []uint16 {
	slices.Sort(in)
	return slices.Compact(in)
}

func invalid(msg string) error {
	return scanerr.New(scanerr.InvalidPortRange, "parse", msg, nil)
}
