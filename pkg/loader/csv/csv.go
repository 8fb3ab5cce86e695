package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/OFFIS-RIT/bibliograph/pkg/loader"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrEmpty is returned for content without a single non-blank record.
var ErrEmpty = errors.New("CSV file is empty or contains no valid data")

// CSVGraphLoader wraps another loader and normalizes tabular content: the
// byte order mark is stripped, blank records are dropped and quoting is
// rewritten consistently. Normalized files are cached.
type CSVGraphLoader struct {
	base  loader.GraphFileLoader
	cache loader.Cache
}

func NewCSVGraphLoader(base loader.GraphFileLoader) *CSVGraphLoader {
	return &CSVGraphLoader{base: base}
}

func (l *CSVGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return l.cache.Load(file, func() ([]byte, error) {
		raw, err := l.base.GetFileText(ctx, file)
		if err != nil {
			return nil, err
		}
		normalized, err := ParseCSV(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.FilePath, err)
		}
		return normalized, nil
	})
}

// ParseCSV rewrites content as plain comma separated text with one record
// per line and a trailing newline. Malformed records are an error.
func ParseCSV(content []byte) ([]byte, error) {
	r := newReader(content)

	var out bytes.Buffer
	w := csv.NewWriter(&out)
	records := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isBlank(record) {
			continue
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
		records++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	if records == 0 {
		return nil, ErrEmpty
	}
	return out.Bytes(), nil
}

func newReader(content []byte) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
