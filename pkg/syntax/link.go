package syntax

import (
	"slices"
	"strings"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	csvtable "github.com/OFFIS-RIT/bibliograph/pkg/loader/csv"
)

// Link syntax columns.
const (
	ColLeftEntryPrefix  = "left_entry_prefix"
	ColRightEntryPrefix = "right_entry_prefix"
	ColSourcePosition   = "source_position"
	ColTargetPosition   = "target_position"
	ColDfltRefPosition  = "dflt_ref_position"
	ColLinkType         = "link_type"
	ColListMode         = "list_mode"
)

var linkColumns = []string{
	ColLeftEntryPrefix,
	ColRightEntryPrefix,
	ColSourcePosition,
	ColTargetPosition,
	ColDfltRefPosition,
	ColLinkType,
	ColListMode,
}

// ListMode controls how the sources and targets of a link rule are paired.
type ListMode string

const (
	OneToOne   ListMode = "1:1"
	ManyToOne  ListMode = "m:1"
	OneToMany  ListMode = "1:m"
	ManyToMany ListMode = "m:m"
)

// Positional reports whether sources and targets are paired by index.
func (m ListMode) Positional() bool {
	return m == OneToOne || m == ""
}

// Side selects the left or right entry of a shorthand row.
type Side byte

const (
	Left  Side = 'l'
	Right Side = 'r'
)

// Position addresses a part of a shorthand row: the left or right entry
// itself (empty ItemLabel) or one of its items.
type Position struct {
	Side      Side
	ItemLabel string
}

func (p Position) IsZero() bool { return p.Side == 0 }

func (p Position) String() string {
	if p.IsZero() {
		return ""
	}
	return string(p.Side) + p.ItemLabel
}

// ParsePositionCode parses codes such as "l", "r0" or "la".
func ParsePositionCode(code string) (Position, error) {
	if code == "" {
		return Position{}, nil
	}
	switch Side(code[0]) {
	case Left, Right:
		return Position{Side: Side(code[0]), ItemLabel: code[1:]}, nil
	}
	return Position{}, &common.GrammarError{Grammar: "link", Msg: "position code " + code + " must start with l or r"}
}

// LinkRow is one validated row of a link syntax.
type LinkRow struct {
	LeftEntryPrefix  string
	RightEntryPrefix string
	Source           Position
	Target           Position
	Reference        Position
	LinkType         string
	ListMode         ListMode
}

// LinkSyntax is a validated link grammar.
type LinkSyntax struct {
	Rows []LinkRow
}

// Rules returns the rows applying to a left/right prefix combination, in
// grammar order.
func (s *LinkSyntax) Rules(left, right string) []LinkRow {
	out := make([]LinkRow, 0)
	for _, r := range s.Rows {
		if r.LeftEntryPrefix == left && r.RightEntryPrefix == right {
			out = append(out, r)
		}
	}
	return out
}

// LinkTypes returns the distinct link types of the grammar in order.
func (s *LinkSyntax) LinkTypes() []string {
	out := make([]string, 0)
	for _, r := range s.Rows {
		if !slices.Contains(out, r.LinkType) {
			out = append(out, r.LinkType)
		}
	}
	return out
}

// ValidateLinkSyntax parses and validates a link grammar against the entry
// grammar it refers to.
func ValidateLinkSyntax(text string, entry *EntrySyntax, caseSensitive bool) (*LinkSyntax, error) {
	if entry == nil {
		return nil, &common.GrammarError{Grammar: "link", Msg: "an entry syntax is required"}
	}
	table, err := csvtable.ReadTable([]byte(text), csvtable.ReadTableOptions{})
	if err != nil {
		return nil, &common.GrammarError{Grammar: "link", Msg: err.Error()}
	}

	fold := func(v string) string {
		if caseSensitive {
			return v
		}
		return common.Casefold(v)
	}

	cols := make(map[string]int, len(linkColumns))
	for i, h := range table.Header {
		name := common.Casefold(h)
		if !slices.Contains(linkColumns, name) {
			return nil, &common.GrammarError{Grammar: "link", Column: h, Msg: "unknown column"}
		}
		cols[name] = i
	}
	for _, name := range linkColumns {
		if _, ok := cols[name]; !ok {
			return nil, &common.GrammarError{Grammar: "link", Column: name, Msg: "required column is missing"}
		}
	}

	s := &LinkSyntax{}
	for _, raw := range table.Rows {
		cell := func(name string) string {
			return fold(strings.TrimSpace(raw[cols[name]]))
		}
		left := cell(ColLeftEntryPrefix)
		right := cell(ColRightEntryPrefix)
		group := left + "|" + right
		fail := func(column, msg string) error {
			return &common.GrammarError{Grammar: "link", Group: group, Column: column, Msg: msg}
		}

		row := LinkRow{
			LeftEntryPrefix:  left,
			RightEntryPrefix: right,
			LinkType:         cell(ColLinkType),
			ListMode:         ListMode(common.Casefold(strings.TrimSpace(raw[cols[ColListMode]]))),
		}
		if row.LinkType == "" {
			return nil, fail(ColLinkType, "link type is empty")
		}
		switch row.ListMode {
		case "", OneToOne, ManyToOne, OneToMany, ManyToMany:
		default:
			return nil, fail(ColListMode, "list mode "+string(row.ListMode)+" is not one of 1:1, m:1, 1:m, m:m")
		}

		leftGroup, ok := entry.Group(left)
		if !ok {
			return nil, fail(ColLeftEntryPrefix, "entry prefix "+left+" is not declared in the entry syntax")
		}
		rightGroup, ok := entry.Group(right)
		if !ok {
			return nil, fail(ColRightEntryPrefix, "entry prefix "+right+" is not declared in the entry syntax")
		}

		positions := []struct {
			column   string
			dst      *Position
			required bool
		}{
			{ColSourcePosition, &row.Source, true},
			{ColTargetPosition, &row.Target, true},
			{ColDfltRefPosition, &row.Reference, false},
		}
		for _, p := range positions {
			code := common.Casefold(strings.TrimSpace(raw[cols[p.column]]))
			if code == "" {
				if p.required {
					return nil, fail(p.column, "position code is empty")
				}
				continue
			}
			pos, err := ParsePositionCode(code)
			if err != nil {
				return nil, fail(p.column, err.(*common.GrammarError).Msg)
			}
			if !caseSensitive {
				pos.ItemLabel = common.Casefold(pos.ItemLabel)
			}
			g := leftGroup
			if pos.Side == Right {
				g = rightGroup
			}
			if pos.ItemLabel != "" {
				if _, ok := g.Row(pos.ItemLabel); !ok {
					return nil, fail(p.column, "item label "+pos.ItemLabel+" is not declared for entry prefix "+g.Prefix)
				}
			}
			*p.dst = pos
		}

		s.Rows = append(s.Rows, row)
	}
	return s, nil
}
