package shorthand

import (
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	csvtable "github.com/OFFIS-RIT/bibliograph/pkg/loader/csv"
	"github.com/OFFIS-RIT/bibliograph/pkg/textnet"
)

// ParseItemsInto reads an items table into store. The header names item
// labels of one entry prefix (positions or prefixed alternatives) and every
// row describes one entry. An empty prefix selects the default prefix.
func (p *Parser) ParseItemsInto(store *textnet.RawStore, text, prefix string) error {
	rows, err := p.itemRows(text, prefix)
	if err != nil {
		return err
	}
	return p.build(store, text, rows)
}

// ParseItems reads an items table into a new store.
func (p *Parser) ParseItems(text, prefix string) (*textnet.RawStore, error) {
	store := textnet.NewRawStore()
	if err := p.ParseItemsInto(store, text, prefix); err != nil {
		return nil, err
	}
	return store, nil
}

// itemRows converts an items table into shorthand rows holding one entry
// each.
func (p *Parser) itemRows(text, prefix string) ([]Row, error) {
	if prefix == "" {
		prefix = p.defaultPrefix
	}
	group, ok := p.entry.Group(prefix)
	if !ok {
		return nil, &common.ParseError{Msg: "entry prefix " + strconv.Quote(prefix) + " is not declared"}
	}

	table, err := csvtable.ReadTable([]byte(text), csvtable.ReadTableOptions{
		SkipRows:   p.opts.SkipRows,
		MaxColumns: MaxColumns,
	})
	if err != nil {
		return nil, &common.ParseError{Msg: err.Error()}
	}

	type column struct {
		label     string
		position  int
		separator string
	}
	positions := group.Positions()
	index := make(map[string]int, len(positions))
	for i, pos := range positions {
		index[pos] = i
	}
	cols := make([]column, len(table.Header))
	for i, h := range table.Header {
		label := p.entry.Fold(h)
		pos, ok := group.PositionOf(label)
		if !ok {
			return nil, &common.ParseError{Msg: "column " + strconv.Quote(h) + " is not an item label of entry prefix " + strconv.Quote(group.Prefix)}
		}
		c := column{label: label, position: index[pos]}
		if pos != label {
			row, _ := group.Row(pos)
			c.separator = row.ItemPrefixSeparator
		}
		cols[i] = c
	}

	sep := p.opts.ItemSeparator
	out := make([]Row, 0, len(table.Rows))
	for line, cells := range table.Rows {
		cells = stripComments(cells, p.opts.CommentChar)
		segs := make([]string, len(positions))
		last := -1
		for i, c := range cols {
			v := strings.TrimSpace(cells[i])
			if v == "" {
				continue
			}
			if segs[c.position] != "" {
				return nil, &common.ParseError{Row: line + 1, Msg: "more than one value for position " + positions[c.position]}
			}
			v = Escape(v, sep)
			if c.separator != "" && !p.isMissing(v) {
				v = c.label + c.separator + v
			}
			segs[c.position] = v
			last = max(last, c.position)
		}
		if last < 0 {
			continue
		}
		segs = segs[:last+1]
		for i := range segs {
			if segs[i] == "" {
				segs[i] = p.opts.MissingTokens[0]
			}
		}
		entry := strings.Join(segs, sep)
		if group.Prefix != "" {
			entry = group.Prefix + sep + entry
		}
		out = append(out, Row{Line: line + 1, Left: entry})
	}
	return out, nil
}
