package csv

import (
	"fmt"
	"io"
	"strings"
)

// Table is a header-driven delimited text. Every row has exactly as many
// cells as the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTableOptions controls ReadTable.
type ReadTableOptions struct {
	// SkipRows drops this many records before the header.
	SkipRows int
	// MaxColumns rejects wider tables when positive.
	MaxColumns int
	// KeepBlankRows keeps records whose cells are all blank.
	KeepBlankRows bool
}

// ReadTable parses content into a Table. Short rows are padded with empty
// cells; cells beyond the header are an error.
func ReadTable(content []byte, opts ReadTableOptions) (*Table, error) {
	reader := newReader(content)

	var header []string
	rows := make([][]string, 0)
	skipped := 0
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if skipped < opts.SkipRows {
			skipped++
			continue
		}
		if header == nil {
			if isBlank(record) {
				continue
			}
			if opts.MaxColumns > 0 && len(record) > opts.MaxColumns {
				return nil, fmt.Errorf("header has %d columns, at most %d are allowed", len(record), opts.MaxColumns)
			}
			header = make([]string, len(record))
			for i, h := range record {
				header[i] = strings.TrimSpace(h)
			}
			continue
		}
		if !opts.KeepBlankRows && isBlank(record) {
			continue
		}
		if len(record) > len(header) {
			extra := record[len(header):]
			if !isBlank(extra) {
				return nil, fmt.Errorf("record %d has %d cells, header has %d", line, len(record), len(header))
			}
			record = record[:len(header)]
		}
		row := make([]string, len(header))
		copy(row, record)
		rows = append(rows, row)
	}

	if header == nil {
		return nil, fmt.Errorf("table has no header")
	}
	return &Table{Header: header, Rows: rows}, nil
}

// Column returns the index of the first header cell equal to name under
// fold, or -1.
func (t *Table) Column(name string, fold func(string) string) int {
	if fold == nil {
		fold = func(s string) string { return s }
	}
	want := fold(name)
	for i, h := range t.Header {
		if fold(h) == want {
			return i
		}
	}
	return -1
}
