package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// table is a parsed CSV file addressed by header name.
type table struct {
	columns map[string]int
	rows    []row
}

// row is one data record with its 1-based source line.
type row struct {
	line    int
	fields  []string
	columns map[string]int
}

// raw returns the untouched cell for a column, or "" when the column is
// missing from the header or the row is short.
func (r row) raw(column string) string {
	i, ok := r.columns[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// get returns the trimmed cell for a column. Whitespace-only cells are empty.
func (r row) get(column string) string {
	return strings.TrimSpace(r.raw(column))
}

// readTable parses a whole CSV document. The first record is the header.
// A document with no records yields an empty table, not an error.
func readTable(r io.Reader) (*table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectDelimiter(data)
	cr.FieldsPerRecord = -1
	// Free-text cells such as special_event may carry unescaped quotes.
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &table{columns: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := columns[name]; !dup && name != "" {
			columns[name] = i
		}
	}

	t := &table{columns: columns}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		t.rows = append(t.rows, row{line: line, fields: rec, columns: columns})
	}
	return t, nil
}

// detectDelimiter picks ';' when the header line uses it more than ','.
// Spreadsheet exports with a German locale write semicolon-separated files.
func detectDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	if bytes.Count(first, []byte{';'}) > bytes.Count(first, []byte{','}) {
		return ';'
	}
	return ','
}
