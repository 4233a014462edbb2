package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/JadenB9/mode/internal/scanner"
)

// WritePDF writes a PDF copy of the report to path.
func WritePDF(path, target string, results []scanner.PortInfo, scanTime time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Port Scan Results", true)
	pdf.SetSubject(target, true)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.Cell(0, 10, fmt.Sprintf("Page %d / {nb}", pdf.PageNo()))
	})
	pdf.AliasNbPages("{nb}")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 15)
	pdf.Cell(0, 10, "Port Scan Results")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 8, fmt.Sprintf("Target: %s", target))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Scan Time: %s", scanTime.Format(headerStampLayout)))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Open Ports: %d", len(results)))
	pdf.Ln(12)

	if len(results) == 0 {
		pdf.Cell(0, 8, "No open ports found.")
	} else {
		widths := []float64{30, 30, 80}
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(240, 240, 240)
		for i, h := range []string{"PORT", "STATE", "SERVICE"} {
			pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 10)
		for _, r := range results {
			pdf.CellFormat(widths[0], 6, strconv.Itoa(int(r.Port)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(widths[1], 6, r.State.String(), "1", 0, "L", false, 0, "")
			pdf.CellFormat(widths[2], 6, r.ServiceName(), "1", 0, "L", false, 0, "")
			pdf.Ln(-1)
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return writeErr("failed to write PDF report", err)
	}
	return nil
}
