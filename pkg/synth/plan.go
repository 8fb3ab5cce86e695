package synth

import (
	"slices"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/shorthand"
	"github.com/OFFIS-RIT/bibliograph/pkg/syntax"
	"github.com/OFFIS-RIT/bibliograph/pkg/textnet"
)

// plan is an entry syntax group with its names resolved against a store.
type plan struct {
	group     *syntax.Group
	nodeType  common.TypeID
	positions []positionPlan
}

type positionPlan struct {
	label string
	// alts holds the typed alternatives in precedence order. It is empty
	// for positions whose text never enters the network.
	alts      []altPlan
	prefixed  bool
	prefixSep string
}

type altPlan struct {
	row      syntax.EntryRow
	linkType common.TypeID
	// nodeType is NoType when no string of the type exists; only null
	// targets can match then.
	nodeType common.TypeID
}

// size is the number of typed positions, used to prefer the most specific
// group.
func (p *plan) size() int {
	n := 0
	for _, pos := range p.positions {
		if len(pos.alts) > 0 {
			n++
		}
	}
	return n
}

func (p *plan) index(position string) int {
	for i, pos := range p.positions {
		if pos.label == position {
			return i
		}
	}
	return -1
}

func newPlans(store *textnet.ResolvedStore, req Request) ([]*plan, error) {
	var prefixes []string
	if !req.EntryPrefix.IsZero() {
		for _, v := range req.EntryPrefix.Values() {
			prefixes = append(prefixes, req.Syntax.Fold(v))
		}
	}

	plans := make([]*plan, 0)
	for _, prefix := range req.Syntax.Prefixes() {
		if prefixes != nil && !slices.Contains(prefixes, prefix) {
			continue
		}
		g, _ := req.Syntax.Group(prefix)
		p, ok := newPlan(store, g)
		if ok {
			plans = append(plans, p)
		}
	}

	for _, label := range req.SortBy {
		found := false
		for _, p := range plans {
			if p.index(label) >= 0 {
				found = true
				break
			}
		}
		if !found {
			return nil, &common.LookupError{Kind: "item position", Key: label, Msg: "not declared by any selected entry prefix"}
		}
	}
	return plans, nil
}

// newPlan reports false for groups no node of the store can match.
func newPlan(store *textnet.ResolvedStore, g *syntax.Group) (*plan, bool) {
	entryType := g.EntryNodeType
	if entryType == "" {
		entryType = shorthand.DefaultEntryNodeType
	}
	nt, err := store.NodeTypes.Lookup(entryType)
	if err != nil {
		return nil, false
	}

	p := &plan{group: g, nodeType: nt}
	for _, label := range g.Positions() {
		row, _ := g.Row(label)
		pos := positionPlan{
			label:     label,
			prefixed:  row.IsPrefixed(),
			prefixSep: row.ItemPrefixSeparator,
		}
		typed := false
		for _, alt := range g.Alternatives(label) {
			if alt.ItemNodeType == "" || alt.ItemLinkType == "" {
				continue
			}
			typed = true
			lt, err := store.LinkTypes.Lookup(alt.ItemLinkType)
			if err != nil {
				continue
			}
			ant, err := store.NodeTypes.Lookup(alt.ItemNodeType)
			if err != nil {
				ant = common.NoType
			}
			pos.alts = append(pos.alts, altPlan{row: alt, linkType: lt, nodeType: ant})
		}
		if typed && len(pos.alts) == 0 {
			return nil, false
		}
		p.positions = append(p.positions, pos)
	}
	return p, p.size() > 0
}
