// Package report formats scan results for display and persists them to files.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JadenB9/mode/internal/config"
	"github.com/JadenB9/mode/internal/scanerr"
	"github.com/JadenB9/mode/internal/scanner"
)

const (
	fileStampLayout   = "20060102_150405"
	headerStampLayout = "2006-01-02 15:04:05"
	maxNameAttempts   = 100
)

// Row is one display line for an open port.
type Row struct {
	Port    string
	State   string
	Service string
}

// Rows converts results into display rows, preserving order.
func Rows(results []scanner.PortInfo) []Row {
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, Row{
			Port:    strconv.Itoa(int(r.Port)),
			State:   r.State.String(),
			Service: r.ServiceName(),
		})
	}
	return rows
}

// FormatTable renders results as the fixed-width PORT/STATE/SERVICE table.
func FormatTable(results []scanner.PortInfo) string {
	var b strings.Builder
	writeTable(&b, results)
	return b.String()
}

func writeTable(w io.Writer, results []scanner.PortInfo) {
	fmt.Fprintln(w, "PORT     STATE    SERVICE")
	fmt.Fprintln(w, "----     -----    -------")
	for _, r := range results {
		fmt.Fprintf(w, "%-8d %-8s %s\n", r.Port, r.State.String(), r.ServiceName())
	}
}

// FileName returns the report base name for target at t, without extension.
func FileName(target string, t time.Time) string {
	return fmt.Sprintf("scan_%s_%s", sanitize(target), t.Format(fileStampLayout))
}

func sanitize(target string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, target)
}

// Writer persists results in the configured formats.
type Writer struct {
	dir     string
	formats []string
	now     func() time.Time
	logger  *zap.SugaredLogger
}

// NewWriter creates a Writer for cfg.
func NewWriter(cfg config.ReportConfig, logger *zap.SugaredLogger) *Writer {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	formats := cfg.Formats
	if len(formats) == 0 {
		formats = []string{"txt"}
	}
	return &Writer{
		dir:     dir,
		formats: formats,
		now:     time.Now,
		logger:  logger,
	}
}

// Save writes the text report and any additional configured formats. The
// text report path is always first in the returned slice.
func (w *Writer) Save(target string, results []scanner.PortInfo) ([]string, error) {
	scanTime := w.now()

	path, err := w.WriteText(target, results, scanTime)
	if err != nil {
		return nil, err
	}
	paths := []string{path}

	for _, format := range w.formats {
		switch strings.ToLower(format) {
		case "txt", "text":
		case "pdf":
			pdfPath := strings.TrimSuffix(path, ".txt") + ".pdf"
			if err := WritePDF(pdfPath, target, results, scanTime); err != nil {
				return paths, err
			}
			paths = append(paths, pdfPath)
		default:
			w.logger.Warnw("Unknown report format ignored", "format", format)
		}
	}

	w.logger.Infow("Scan results saved", "target", target, "files", paths)
	return paths, nil
}

// WriteText creates a new text report for target. Existing files are never
// overwritten; a numeric suffix is added when the timestamped name is taken.
func (w *Writer) WriteText(target string, results []scanner.PortInfo, scanTime time.Time) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", writeErr("failed to create report directory", err)
	}

	f, path, err := createUnique(w.dir, FileName(target, scanTime), ".txt")
	if err != nil {
		return "", writeErr("failed to create report file", err)
	}

	bw := bufio.NewWriter(f)
	writeText(bw, target, results, scanTime)

	if err := bw.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", writeErr("failed to write report file", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", writeErr("failed to close report file", err)
	}

	return path, nil
}

func writeText(w io.Writer, target string, results []scanner.PortInfo, scanTime time.Time) {
	fmt.Fprintln(w, "Port Scan Results")
	fmt.Fprintln(w, "==================")
	fmt.Fprintf(w, "Target: %s\n", target)
	fmt.Fprintf(w, "Scan Time: %s\n", scanTime.Format(headerStampLayout))
	fmt.Fprintf(w, "Open Ports: %d\n\n", len(results))

	if len(results) == 0 {
		fmt.Fprintln(w, "No open ports found.")
		return
	}
	writeTable(w, results)
}

func createUnique(dir, base, ext string) (*os.File, string, error) {
	for i := 1; i <= maxNameAttempts; i++ {
		name := base + ext
		if i > 1 {
			name = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("no free file name for %s%s", base, ext)
}

func writeErr(msg string, err error) error {
	return scanerr.New(scanerr.ReportWriteError, "report", msg, err)
}
