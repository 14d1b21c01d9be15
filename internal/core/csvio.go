package core

// csvio.go reads and writes the two-column Category,Test configuration CSV.
//
// Uploaded files come from spreadsheets, so the reader tolerates the usual
// artifacts: a UTF-8 BOM from Windows programs, invalid UTF-8 bytes,
// header case and padding, extra columns and ragged rows.

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Config CSV column headers.
const (
	HeaderCategory = "Category"
	HeaderTest     = "Test"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after a leading UTF-8 BOM, if any.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == string(utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// newCSVReader wraps r with BOM skipping and lenient field counts.
func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return cr
}

// ReadMapping parses a Category,Test CSV into a Mapping.
//
// Headers match case-insensitively and may appear in any position; other
// columns are ignored. Duplicate pairs collapse. A blank cell in either
// column is an error, as is a file without data rows.
func ReadMapping(r io.Reader) (*Mapping, error) {
	cr := newCSVReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalidCSV, err)
	}

	catIdx, testIdx := -1, -1
	for i, h := range header {
		switch normalizeHeader(strings.ToValidUTF8(h, "?")) {
		case strings.ToLower(HeaderCategory):
			if catIdx < 0 {
				catIdx = i
			}
		case strings.ToLower(HeaderTest):
			if testIdx < 0 {
				testIdx = i
			}
		}
	}
	if catIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, HeaderCategory)
	}
	if testIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, HeaderTest)
	}

	m := NewMapping()
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		line, _ := cr.FieldPos(0)

		if isBlankRecord(record) {
			continue
		}
		if catIdx >= len(record) || testIdx >= len(record) {
			return nil, fmt.Errorf("line %d: %w", line, ErrEmptyCell)
		}

		category := strings.ToValidUTF8(record[catIdx], "?")
		test := strings.ToValidUTF8(record[testIdx], "?")
		if err := m.Add(category, test); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}

	if m.Len() == 0 {
		return nil, ErrEmptyFile
	}
	return m, nil
}

// isBlankRecord reports whether every field is whitespace. encoding/csv
// already skips empty lines; this catches rows like ",".
func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// WriteMapping writes m as a Category,Test CSV in mapping order.
func WriteMapping(w io.Writer, m *Mapping) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{HeaderCategory, HeaderTest}); err != nil {
		return err
	}
	for _, p := range m.Pairs() {
		if err := cw.Write([]string{p.Category, p.Test}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
