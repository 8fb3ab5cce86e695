package syntax

import (
	"slices"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	csvtable "github.com/OFFIS-RIT/bibliograph/pkg/loader/csv"
)

// Entry syntax columns.
const (
	ColEntryPrefix         = "entry_prefix"
	ColEntryNodeType       = "entry_node_type"
	ColItemLabel           = "item_label"
	ColItemNodeType        = "item_node_type"
	ColItemLinkType        = "item_link_type"
	ColListDelimiter       = "list_delimiter"
	ColItemPrefixes        = "item_prefixes"
	ColItemPrefixSeparator = "item_prefix_separator"
)

var entryColumns = []string{
	ColEntryPrefix,
	ColEntryNodeType,
	ColItemLabel,
	ColItemNodeType,
	ColItemLinkType,
	ColListDelimiter,
	ColItemPrefixes,
	ColItemPrefixSeparator,
}

// EntryOptions controls entry syntax validation.
type EntryOptions struct {
	CaseSensitive       bool
	AllowRedundantItems bool
}

// EntryRow is one validated row of an entry syntax.
//
// A row either describes a numbered position (label "0", "1", ...) or a
// prefixed alternative of a position. A position with alternatives carries
// ItemPrefixes and ItemPrefixSeparator and no types; each alternative is a
// row labelled with its prefix.
type EntryRow struct {
	EntryPrefix         string
	EntryNodeType       string
	ItemLabel           string
	ItemNodeType        string
	ItemLinkType        string
	ListDelimiter       string
	ItemPrefixes        []string
	ItemPrefixSeparator string
}

// IsPrefixed reports whether the row is a position resolved through
// prefixed alternatives.
func (r EntryRow) IsPrefixed() bool { return r.ItemPrefixSeparator != "" }

// Group is the set of rows sharing one entry prefix.
type Group struct {
	Prefix        string
	EntryNodeType string
	Rows          []EntryRow

	labels    map[string]int
	positions []string
	altOf     map[string]string
}

// Row returns the row labelled label.
func (g *Group) Row(label string) (EntryRow, bool) {
	i, ok := g.labels[label]
	if !ok {
		return EntryRow{}, false
	}
	return g.Rows[i], true
}

// Positions returns the numbered position labels in order.
func (g *Group) Positions() []string {
	return append([]string(nil), g.positions...)
}

// PositionOf returns the position label an item label belongs to: the label
// itself for a position, the owning position for a prefixed alternative.
func (g *Group) PositionOf(label string) (string, bool) {
	if pos, ok := g.altOf[label]; ok {
		return pos, true
	}
	if _, ok := g.labels[label]; ok {
		return label, true
	}
	return "", false
}

// Alternatives returns the rows usable at position in precedence order. For
// an unprefixed position that is the position row itself.
func (g *Group) Alternatives(position string) []EntryRow {
	row, ok := g.Row(position)
	if !ok {
		return nil
	}
	if !row.IsPrefixed() {
		return []EntryRow{row}
	}
	out := make([]EntryRow, 0, len(row.ItemPrefixes))
	for _, p := range row.ItemPrefixes {
		if alt, ok := g.Row(p); ok {
			out = append(out, alt)
		}
	}
	return out
}

// HasLinkTypes reports whether items of this group link to their entry.
func (g *Group) HasLinkTypes() bool {
	for _, r := range g.Rows {
		if r.ItemLinkType != "" {
			return true
		}
	}
	return false
}

// EntrySyntax is a validated entry grammar, grouped by entry prefix.
type EntrySyntax struct {
	Rows          []EntryRow
	CaseSensitive bool
	Redundant     bool

	groups map[string]*Group
	order  []string
}

// Prefixes returns the entry prefixes in order of first appearance.
func (s *EntrySyntax) Prefixes() []string {
	return append([]string(nil), s.order...)
}

// Group returns the group for prefix.
func (s *EntrySyntax) Group(prefix string) (*Group, bool) {
	g, ok := s.groups[s.Fold(prefix)]
	return g, ok
}

// Fold normalizes a grammar value according to the case sensitivity of the
// syntax.
func (s *EntrySyntax) Fold(v string) string {
	if s.CaseSensitive {
		return v
	}
	return common.Casefold(v)
}

// DuplicatedPairs returns the link types that occur with the same node type
// at more than one position of a group.
func (s *EntrySyntax) DuplicatedPairs() map[string]struct{} {
	out := make(map[string]struct{})
	for _, prefix := range s.order {
		seen := make(map[[2]string]int)
		for _, r := range s.groups[prefix].Rows {
			if r.ItemLinkType == "" {
				continue
			}
			seen[[2]string{r.ItemNodeType, r.ItemLinkType}]++
		}
		for pair, n := range seen {
			if n > 1 {
				out[pair[1]] = struct{}{}
			}
		}
	}
	return out
}

// ValidateEntrySyntax parses and validates an entry grammar. It returns a
// *common.GrammarError naming the offending group and column on failure.
func ValidateEntrySyntax(text string, opts EntryOptions) (*EntrySyntax, error) {
	table, err := csvtable.ReadTable([]byte(text), csvtable.ReadTableOptions{})
	if err != nil {
		return nil, &common.GrammarError{Grammar: "entry", Msg: err.Error()}
	}

	fold := func(v string) string {
		if opts.CaseSensitive {
			return v
		}
		return common.Casefold(v)
	}

	cols := make(map[string]int, len(entryColumns))
	for i, h := range table.Header {
		name := common.Casefold(h)
		if !slices.Contains(entryColumns, name) {
			return nil, &common.GrammarError{Grammar: "entry", Column: h, Msg: "unknown column"}
		}
		if _, dup := cols[name]; dup {
			return nil, &common.GrammarError{Grammar: "entry", Column: name, Msg: "duplicate column"}
		}
		cols[name] = i
	}
	if _, ok := cols[ColItemLabel]; !ok {
		return nil, &common.GrammarError{Grammar: "entry", Column: ColItemLabel, Msg: "required column is missing"}
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok {
			return ""
		}
		return fold(strings.TrimSpace(row[i]))
	}

	s := &EntrySyntax{
		CaseSensitive: opts.CaseSensitive,
		Redundant:     opts.AllowRedundantItems,
		groups:        make(map[string]*Group),
	}
	for _, raw := range table.Rows {
		row := EntryRow{
			EntryPrefix:         cell(raw, ColEntryPrefix),
			EntryNodeType:       cell(raw, ColEntryNodeType),
			ItemLabel:           cell(raw, ColItemLabel),
			ItemNodeType:        cell(raw, ColItemNodeType),
			ItemLinkType:        cell(raw, ColItemLinkType),
			ListDelimiter:       cell(raw, ColListDelimiter),
			ItemPrefixes:        strings.Fields(cell(raw, ColItemPrefixes)),
			ItemPrefixSeparator: cell(raw, ColItemPrefixSeparator),
		}
		s.Rows = append(s.Rows, row)
		g, ok := s.groups[row.EntryPrefix]
		if !ok {
			g = &Group{Prefix: row.EntryPrefix}
			s.groups[row.EntryPrefix] = g
			s.order = append(s.order, row.EntryPrefix)
		}
		g.Rows = append(g.Rows, row)
	}
	if len(s.Rows) == 0 {
		return nil, &common.GrammarError{Grammar: "entry", Msg: "syntax has no rows"}
	}

	for _, prefix := range s.order {
		if err := validateGroup(s.groups[prefix], opts); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func validateGroup(g *Group, opts EntryOptions) error {
	fail := func(column, msg string) error {
		return &common.GrammarError{Grammar: "entry", Group: g.Prefix, Column: column, Msg: msg}
	}

	for _, r := range g.Rows {
		if r.EntryNodeType == "" {
			continue
		}
		if g.EntryNodeType != "" && g.EntryNodeType != r.EntryNodeType {
			return fail(ColEntryNodeType, "group declares more than one entry node type")
		}
		g.EntryNodeType = r.EntryNodeType
	}

	hasLink := g.HasLinkTypes()
	if hasLink && g.EntryNodeType == "" {
		return fail(ColEntryNodeType, "items declare link types but the entry has no node type")
	}
	if !hasLink && g.EntryNodeType != "" {
		return fail(ColItemLinkType, "entry node type declared but no item declares a link type")
	}

	g.labels = make(map[string]int, len(g.Rows))
	g.altOf = make(map[string]string)
	for i, r := range g.Rows {
		if r.ItemLabel == "" {
			return fail(ColItemLabel, "item label is empty")
		}
		if _, dup := g.labels[r.ItemLabel]; dup {
			return fail(ColItemLabel, "item label "+strconv.Quote(r.ItemLabel)+" is not unique")
		}
		g.labels[r.ItemLabel] = i

		if r.ItemLinkType != "" && r.ItemNodeType == "" {
			return fail(ColItemNodeType, "item "+strconv.Quote(r.ItemLabel)+" has a link type but no node type")
		}
		if r.ListDelimiter != "" && r.ItemNodeType == "" {
			return fail(ColListDelimiter, "item "+strconv.Quote(r.ItemLabel)+" has a list delimiter but no node type")
		}
		if r.ItemPrefixSeparator != "" {
			if len(r.ItemPrefixes) == 0 {
				return fail(ColItemPrefixes, "item "+strconv.Quote(r.ItemLabel)+" has a prefix separator but no prefixes")
			}
			if r.ItemNodeType != "" || r.ItemLinkType != "" {
				return fail(ColItemPrefixSeparator, "prefixed item "+strconv.Quote(r.ItemLabel)+" must not declare a node or link type")
			}
		} else if len(r.ItemPrefixes) > 0 {
			return fail(ColItemPrefixSeparator, "item "+strconv.Quote(r.ItemLabel)+" lists prefixes but no prefix separator")
		}
	}

	for _, r := range g.Rows {
		if !r.IsPrefixed() {
			continue
		}
		for _, p := range r.ItemPrefixes {
			i, ok := g.labels[p]
			if !ok {
				return fail(ColItemPrefixes, "prefix "+strconv.Quote(p)+" has no item row")
			}
			if g.Rows[i].IsPrefixed() {
				return fail(ColItemPrefixes, "prefix "+strconv.Quote(p)+" refers to another prefixed item")
			}
			if owner, dup := g.altOf[p]; dup {
				return fail(ColItemPrefixes, "prefix "+strconv.Quote(p)+" is used by positions "+owner+" and "+r.ItemLabel)
			}
			g.altOf[p] = r.ItemLabel
		}
	}

	for _, r := range g.Rows {
		if _, err := strconv.Atoi(r.ItemLabel); err == nil {
			g.positions = append(g.positions, r.ItemLabel)
		}
	}
	slices.SortFunc(g.positions, func(a, b string) int {
		x, _ := strconv.Atoi(a)
		y, _ := strconv.Atoi(b)
		return x - y
	})
	for i, p := range g.positions {
		if p != strconv.Itoa(i) {
			return fail(ColItemLabel, "numbered items must be 0, 1, 2, ... without gaps")
		}
		if _, isAlt := g.altOf[p]; isAlt {
			return fail(ColItemPrefixes, "numbered item "+p+" cannot be a prefix")
		}
	}

	if hasLink {
		for _, r := range g.Rows {
			if r.IsPrefixed() || r.ItemLinkType != "" {
				continue
			}
			return fail(ColItemLinkType, "item "+strconv.Quote(r.ItemLabel)+" has no link type")
		}
	}

	if !opts.AllowRedundantItems {
		seen := make(map[[2]string]string)
		for _, r := range g.Rows {
			if r.ItemNodeType == "" && r.ItemLinkType == "" {
				continue
			}
			pair := [2]string{r.ItemNodeType, r.ItemLinkType}
			if other, dup := seen[pair]; dup {
				return fail(ColItemLinkType, "items "+strconv.Quote(other)+" and "+strconv.Quote(r.ItemLabel)+
					" share node type "+strconv.Quote(r.ItemNodeType)+" and link type "+strconv.Quote(r.ItemLinkType))
			}
			seen[pair] = r.ItemLabel
		}
	}

	return nil
}
