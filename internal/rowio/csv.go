// Package rowio reads and writes harvested rows as CSV. The crawl command
// can dump rows to a file and the ingest command replays such a file into
// the store, which keeps the harvest and persistence stages separable.
package rowio

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/1009rishit/Case-data/internal/court"
)

var header = []string{"court", "bench", "case_no", "date", "party", "pdf_link"}

// Writer streams rows to CSV with a fixed header.
type Writer struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewWriter wraps w in a CSV row writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(w)}
}

// Write appends one row, emitting the header first if needed.
func (w *Writer) Write(row court.Row) error {
	if !w.wroteHeader {
		if err := w.w.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		w.wroteHeader = true
	}
	rec := []string{row.Court, row.Bench, row.CaseNo, row.Date, row.Party, row.PDFLink}
	if err := w.w.Write(rec); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	return nil
}

// Flush writes buffered rows through and reports any write error.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// Read parses rows from CSV. A header line is detected and skipped, rows
// failing the completeness check are dropped, and the dropped count is
// returned alongside the surviving rows.
func Read(r io.Reader) ([]court.Row, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	cr.TrimLeadingSpace = true

	var (
		rows    []court.Row
		dropped int
		first   = true
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, dropped, fmt.Errorf("read csv: %w", err)
		}
		if first {
			first = false
			if rec[0] == header[0] && rec[2] == header[2] {
				continue
			}
		}
		row := court.Row{
			Court:   rec[0],
			Bench:   rec[1],
			CaseNo:  rec[2],
			Date:    rec[3],
			Party:   rec[4],
			PDFLink: rec[5],
		}
		row = row.Normalize()
		if !row.Complete() {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, dropped, nil
}
