package shorthand

import (
	"strings"
	"unicode"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	csvtable "github.com/OFFIS-RIT/bibliograph/pkg/loader/csv"
)

// Shorthand table columns.
const (
	ColLeftEntry          = "left_entry"
	ColRightEntry         = "right_entry"
	ColLinkTagsOrOverride = "link_tags_or_override"
	ColReference          = "reference"
)

var shorthandColumns = []string{ColLeftEntry, ColRightEntry, ColLinkTagsOrOverride, ColReference}

// MaxColumns bounds the width of any shorthand table.
const MaxColumns = 256

// Row is one normalized shorthand row.
type Row struct {
	// Line is the 1-based data row the values came from.
	Line      int
	Left      string
	Right     string
	LinkTags  string
	Reference string
}

// Normalize reads a shorthand table and returns its rows with comments
// stripped, left entries filled forward and empty rows removed.
func Normalize(text string, opts Options) ([]Row, error) {
	opts = opts.withDefaults()
	table, err := csvtable.ReadTable([]byte(text), csvtable.ReadTableOptions{
		SkipRows:      opts.SkipRows,
		MaxColumns:    MaxColumns,
		KeepBlankRows: true,
	})
	if err != nil {
		return nil, &common.ParseError{Msg: err.Error()}
	}

	cols := make([]int, len(shorthandColumns))
	for i, name := range shorthandColumns {
		cols[i] = table.Column(name, common.Casefold)
		if cols[i] < 0 {
			return nil, &common.ParseError{Msg: "required column " + name + " is missing"}
		}
	}

	type rawRow struct {
		Row
		inherited bool
	}
	rows := make([]rawRow, 0, len(table.Rows))
	for i, cells := range table.Rows {
		clean := stripComments(cells, opts.CommentChar)
		r := rawRow{Row: Row{
			Line:      i + 1,
			Left:      clean[cols[0]],
			Right:     clean[cols[1]],
			LinkTags:  clean[cols[2]],
			Reference: clean[cols[3]],
		}}
		if r.Left == "" && r.Right == "" && r.LinkTags == "" && r.Reference == "" {
			continue
		}
		rows = append(rows, r)
	}

	prev := ""
	for i := range rows {
		if rows[i].Left != "" {
			prev = rows[i].Left
			continue
		}
		if prev == "" {
			return nil, &common.ParseError{Row: rows[i].Line, Msg: "row has no left entry and none to inherit"}
		}
		rows[i].Left = prev
		rows[i].inherited = true
	}

	// A row without a right entry only survives when it stands alone: rows
	// inheriting its left entry already carry that entry.
	out := make([]Row, 0, len(rows))
	for i, r := range rows {
		if r.Right == "" {
			if r.inherited {
				continue
			}
			if i+1 < len(rows) && rows[i+1].inherited {
				continue
			}
		}
		out = append(out, r.Row)
	}
	return out, nil
}

// stripComments trims leading blanks from every cell and cuts the row at the
// first unescaped comment character. Escaped comment characters are
// restored.
func stripComments(cells []string, commentChar string) []string {
	out := make([]string, len(cells))
	commented := false
	for i, c := range cells {
		if commented {
			continue
		}
		c = strings.TrimLeftFunc(c, unicode.IsSpace)
		if idx := IndexUnescaped(c, commentChar); idx >= 0 {
			c = c[:idx]
			commented = true
		}
		c = strings.ReplaceAll(c, `\`+commentChar, commentChar)
		out[i] = strings.TrimRightFunc(c, unicode.IsSpace)
	}
	return out
}
