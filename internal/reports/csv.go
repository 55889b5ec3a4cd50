package reports

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the header row followed by every data row.
func WriteCSV(w io.Writer, r Report) error {
	if err := r.validate(); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(r.Columns); err != nil {
		return fmt.Errorf("reports: write csv header: %w", err)
	}
	if err := cw.WriteAll(r.Rows); err != nil {
		return fmt.Errorf("reports: write csv rows: %w", err)
	}
	return nil
}
