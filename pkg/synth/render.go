package synth

import (
	"slices"
	"strings"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/shorthand"
	"github.com/OFFIS-RIT/bibliograph/pkg/textnet"
)

type writer struct {
	store         *textnet.ResolvedStore
	req           Request
	listPos       map[common.EdgeID]int
	taggedLT      common.TypeID
	defaultPrefix string
}

func newWriter(store *textnet.ResolvedStore, req Request) *writer {
	w := &writer{
		store:    store,
		req:      req,
		listPos:  listPositions(store),
		taggedLT: common.NoType,
	}
	if id, err := store.LinkTypes.Lookup(textnet.LinkTagged); err == nil {
		w.taggedLT = id
	}
	w.defaultPrefix = req.Syntax.Fold(req.Format.DefaultEntryPrefix)
	if w.defaultPrefix == "" {
		w.defaultPrefix = req.Syntax.Prefixes()[0]
	}
	return w
}

// item is one written position. key is the unescaped value used for sorting.
type item struct {
	text string
	key  string
}

func (w *writer) name(id common.NodeID) string {
	return w.store.NodeName(id, w.req.NameType == NameAbbr)
}

func (w *writer) escape(s string, extra ...string) string {
	return shorthand.Escape(s, append([]string{w.req.Format.ItemSeparator, w.req.Format.CommentChar}, extra...)...)
}

// render writes node nid with plan p. It reports false when some typed
// position has no matching edge.
func (w *writer) render(p *plan, nid common.NodeID) (*Entry, bool) {
	edges := w.store.EdgesFrom(nid)
	used := make(map[common.EdgeID]struct{})
	items := make([]*item, len(p.positions))
	for i, pos := range p.positions {
		if len(pos.alts) == 0 {
			continue
		}
		it, ok := w.item(pos, edges, used)
		if !ok {
			return nil, false
		}
		items[i] = it
	}

	for len(items) > 0 && items[len(items)-1] == nil {
		items = items[:len(items)-1]
	}
	parts := make([]string, len(items))
	for i, it := range items {
		if it != nil {
			parts[i] = it.text
		}
	}

	sep := w.req.Format.ItemSeparator
	if p.group.Prefix != "" && !w.hidePrefix(p, parts) {
		parts = append([]string{w.escape(p.group.Prefix)}, parts...)
	}
	if w.req.FillSpaces && w.req.Format.SpaceChar != "" {
		for i := range parts {
			parts[i] = strings.ReplaceAll(parts[i], " ", w.req.Format.SpaceChar)
		}
	}
	text := strings.Join(parts, sep)

	if w.req.IncludeTags && w.taggedLT != common.NoType {
		tags := make([]string, 0)
		for _, e := range edges {
			if e.LinkTypeID == w.taggedLT {
				tags = append(tags, w.escape(w.name(e.TgtNodeID)))
			}
		}
		if len(tags) > 0 {
			text += sep + " " + strings.Join(tags, " ")
		}
	}

	e := &Entry{NodeID: nid, Prefix: p.group.Prefix, Text: text}
	for _, label := range w.req.SortBy {
		key := ""
		if i := p.index(label); i >= 0 && i < len(items) && items[i] != nil {
			key = items[i].key
		}
		if !w.req.SortCaseSensitive {
			key = common.Casefold(key)
		}
		e.keys = append(e.keys, key)
	}
	return e, true
}

// hidePrefix reports whether the entry prefix can be left out without the
// entry reading differently.
func (w *writer) hidePrefix(p *plan, parts []string) bool {
	if !w.req.HideDefaultEntryPrefix || p.group.Prefix != w.defaultPrefix {
		return false
	}
	if len(parts) < 2 {
		return true
	}
	if parts[0] == "" {
		return false
	}
	_, clash := w.req.Syntax.Group(shorthand.Unescape(parts[0]))
	return !clash
}

// item picks the targets written at pos. The first alternative with a
// non-null target wins; null targets are written only when no alternative
// has another target.
func (w *writer) item(pos positionPlan, edges []common.Edge, used map[common.EdgeID]struct{}) (*item, bool) {
	var fallback *common.Edge
	for _, alt := range pos.alts {
		var found []common.Edge
		for _, e := range edges {
			if e.LinkTypeID != alt.linkType {
				continue
			}
			tt := w.store.NodeTypeOfNode(e.TgtNodeID)
			switch {
			case w.store.NodeTypes.IsNull(tt):
				if fallback == nil {
					fallback = &e
				}
			case tt == alt.nodeType:
				found = append(found, e)
			}
		}
		if len(found) > 0 {
			return w.write(pos, alt, found, used), true
		}
	}
	if fallback == nil {
		return nil, false
	}
	used[fallback.ID] = struct{}{}
	name := w.name(fallback.TgtNodeID)
	return &item{text: w.escape(name), key: name}, true
}

func (w *writer) write(pos positionPlan, alt altPlan, found []common.Edge, used map[common.EdgeID]struct{}) *item {
	delim := alt.row.ListDelimiter
	if delim == "" {
		// Positions sharing a link type take distinct edges when there
		// are enough of them.
		pick := found[0]
		for _, e := range found {
			if _, ok := used[e.ID]; !ok {
				pick = e
				break
			}
		}
		found = []common.Edge{pick}
	} else {
		slices.SortStableFunc(found, func(a, b common.Edge) int {
			return comparePositions(w.listPos[a.ID], w.listPos[b.ID])
		})
	}

	values := make([]string, len(found))
	escaped := make([]string, len(found))
	for i, e := range found {
		used[e.ID] = struct{}{}
		values[i] = w.name(e.TgtNodeID)
		escaped[i] = w.escape(values[i], delim)
	}
	it := &item{
		text: strings.Join(escaped, delim),
		key:  strings.Join(values, delim),
	}
	if pos.prefixed {
		label := alt.row.ItemLabel + pos.prefixSep
		it.text = label + it.text
		if w.req.SortPrefixes {
			it.key = label + it.key
		}
	}
	return it
}

// comparePositions orders tagged list positions first, untagged ones (zero)
// after them in encounter order.
func comparePositions(a, b int) int {
	switch {
	case a == b:
		return 0
	case a == 0:
		return 1
	case b == 0:
		return -1
	case a < b:
		return -1
	default:
		return 1
	}
}
