package core

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Sheet1"

// Dataset is the output of Generate: a header row plus generated rows.
type Dataset struct {
	ID      uuid.UUID
	Seed    int64
	Headers []string
	Columns []ColumnSpec
	Rows    []Row
}

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Record renders row i as strings in header order.
func (d *Dataset) Record(i int) []string {
	row := d.Rows[i]
	rec := make([]string, 0, len(d.Headers))
	rec = append(rec, row.Subject, row.Category, row.Test)
	for _, v := range row.Values {
		rec = append(rec, FormatValue(v))
	}
	return rec
}

// Records returns the first n data rows as strings, without the header. A
// negative n, or one past the end, returns every row.
func (d *Dataset) Records(n int) [][]string {
	if n < 0 || n > len(d.Rows) {
		n = len(d.Rows)
	}
	out := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, d.Record(i))
	}
	return out
}

// WriteCSV writes the dataset as CSV with a header row.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range d.Rows {
		if err := cw.Write(d.Record(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the dataset as a single-sheet workbook. Ints and floats
// are stored as numbers; dates as YYYY-MM-DD text so they match the CSV.
func (d *Dataset) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open sheet: %w", err)
	}

	header := make([]interface{}, len(d.Headers))
	for i, h := range d.Headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	cells := make([]interface{}, len(d.Headers))
	for i, row := range d.Rows {
		cells = cells[:0]
		cells = append(cells, row.Subject, row.Category, row.Test)
		for _, v := range row.Values {
			if t, ok := v.(time.Time); ok {
				v = t.Format(DateLayout)
			}
			cells = append(cells, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(w)
}

// datasetJSON is the API response shape.
type datasetJSON struct {
	ID      string     `json:"id"`
	Seed    int64      `json:"seed"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// MarshalJSON encodes the dataset as {id, seed, headers, rows}, with every
// cell rendered as in the CSV export.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	rows := make([][]string, len(d.Rows))
	for i := range d.Rows {
		rows[i] = d.Record(i)
	}
	return json.Marshal(datasetJSON{
		ID:      d.ID.String(),
		Seed:    d.Seed,
		Headers: d.Headers,
		Rows:    rows,
	})
}

// Filename returns the download name for format, e.g.
// synthetic_lab_data_1a2b3c4d.csv.
func (d *Dataset) Filename(format string) string {
	return "synthetic_lab_data_" + shortID(d.ID) + "." + format
}

// FormatValue renders a generated value the way the CSV export does.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(DateLayout)
	default:
		return fmt.Sprint(x)
	}
}

// ValidFormat reports whether format names a dataset export.
func ValidFormat(format string) bool {
	switch format {
	case FormatCSV, FormatXLSX, FormatJSON:
		return true
	}
	return false
}

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	switch format {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/csv; charset=utf-8"
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
