package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/umputun/attendo/app/attendance"
)

// page layout in mm, A4 portrait
const (
	pdfMarginX    = 20.0
	pdfTitleY     = 20.0
	pdfLineStep   = 10.0
	pdfBlockGap   = 10.0
	pdfPageBottom = 280.0
	pdfFontSize   = 12.0
)

// pdfDate is stamped as creation date to keep output identical for the same list
var pdfDate = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// WritePDF renders the summary as a paginated A4 document
func WritePDF(w io.Writer, sum attendance.Summary) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(pdfDate)
	pdf.SetModificationDate(pdfDate)
	pdf.SetTitle("Attendance Data", true)
	pdf.SetFont("Helvetica", "", pdfFontSize)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("") // cp1252 for core fonts

	pdf.AddPage()
	y := pdfTitleY
	for i, b := range blocks(sum) {
		if i > 0 && y+float64(len(b)-1)*pdfLineStep > pdfPageBottom {
			// keep subject block on one page
			pdf.AddPage()
			y = pdfTitleY
		}
		for _, line := range b {
			pdf.Text(pdfMarginX, y, tr(line))
			y += pdfLineStep
		}
		if i > 0 {
			y += pdfBlockGap
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf export: %w", err)
	}
	return nil
}
