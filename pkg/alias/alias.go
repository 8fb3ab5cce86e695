// Package alias reads alias tables and generates automatic aliases for
// strings whose spelling varies, such as personal names and DOIs.
package alias

import (
	"fmt"
	"strings"

	csvtable "github.com/OFFIS-RIT/bibliograph/pkg/loader/csv"
)

// Generator maps a string to a canonical alias. It reports false when the
// string has no alias.
type Generator func(text string) (string, bool)

// DefaultGenerators returns the generators applied per node type when none
// are configured.
func DefaultGenerators() map[string]Generator {
	return map[string]Generator{
		"actor":      WesternSurname,
		"identifier": DOI,
	}
}

// Pair declares Value to be another spelling of Key.
type Pair struct {
	Key   string
	Value string
}

// ParseTable reads a two column alias table. The first row is a header. An
// empty key repeats the key above it; rows whose value is empty or equal to
// the key are dropped, as are repeated pairs.
func ParseTable(text string) ([]Pair, error) {
	table, err := csvtable.ReadTable([]byte(text), csvtable.ReadTableOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read alias table: %w", err)
	}
	if len(table.Header) < 2 {
		return nil, fmt.Errorf("alias table needs a key and a value column, has %d columns", len(table.Header))
	}

	out := make([]Pair, 0, len(table.Rows))
	seen := make(map[Pair]struct{}, len(table.Rows))
	key := ""
	for _, row := range table.Rows {
		if k := strings.TrimSpace(row[0]); k != "" {
			key = k
		}
		p := Pair{Key: key, Value: strings.TrimSpace(row[1])}
		if p.Key == "" || p.Value == "" || p.Key == p.Value {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}
