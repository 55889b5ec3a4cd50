package reports

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin     = 10.0
	pdfLineHeight = 7.0
)

// WritePDF renders the report as a landscape A4 table with the summary below it.
func WritePDF(w io.Writer, r Report) error {
	if err := r.validate(); err != nil {
		return err
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(r.Title), "", 1, "L", false, 0, "")
	if !r.GeneratedAt.IsZero() {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 6, "Generated "+r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pageWidth, _ := pdf.GetPageSize()
	colWidth := (pageWidth - 2*pdfMargin) / float64(len(r.Columns))

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 236, 245)
		for _, column := range r.Columns {
			pdf.CellFormat(colWidth, pdfLineHeight, tr(column), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	for _, row := range r.Rows {
		if pdf.GetY()+pdfLineHeight > pageHeight-pdfMargin {
			pdf.AddPage()
			header()
		}
		for _, cell := range row {
			pdf.CellFormat(colWidth, pdfLineHeight, tr(truncate(cell, colWidth)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(r.Summary) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
		for _, item := range r.Summary {
			pdf.SetFont("Helvetica", "B", 9)
			pdf.CellFormat(60, 6, tr(item.Label), "", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 9)
			pdf.CellFormat(0, 6, tr(item.Value), "", 1, "L", false, 0, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("reports: write pdf: %w", err)
	}
	return nil
}

// truncate keeps a cell inside its column at the body font size.
func truncate(text string, width float64) string {
	limit := int(width / 1.6)
	runes := []rune(text)
	if limit < 4 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
