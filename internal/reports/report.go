// Package reports renders tabular portal reports as CSV or PDF files.
package reports

import (
	"fmt"
	"strings"
	"time"
)

// Format is an export file type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat resolves a format name case-insensitively. Empty means CSV.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("reports: unsupported format %q", value)
	}
}

// ContentType is the MIME type served with the file.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// SummaryItem is one labelled figure printed under the table.
type SummaryItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Report is a titled table with summary statistics.
type Report struct {
	Title       string
	GeneratedAt time.Time
	Columns     []string
	Rows        [][]string
	Summary     []SummaryItem
}

// FileName builds the download name, e.g. claims_report_20240102_150405.csv.
func (r Report) FileName(kind string, format Format) string {
	stamp := r.GeneratedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	return fmt.Sprintf("%s_report_%s.%s", kind, stamp.UTC().Format("20060102_150405"), format)
}

func (r Report) validate() error {
	if len(r.Columns) == 0 {
		return fmt.Errorf("reports: %q has no columns", r.Title)
	}
	for i, row := range r.Rows {
		if len(row) != len(r.Columns) {
			return fmt.Errorf("reports: row %d has %d cells, want %d", i, len(row), len(r.Columns))
		}
	}
	return nil
}
