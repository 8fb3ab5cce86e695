// Package synth writes resolved nodes back out as shorthand entries.
package synth

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/shorthand"
	"github.com/OFFIS-RIT/bibliograph/pkg/syntax"
	"github.com/OFFIS-RIT/bibliograph/pkg/textnet"
)

// NameType selects which member string represents a node.
type NameType string

const (
	NameFull NameType = "full"
	NameAbbr NameType = "abbr"
)

// Request describes which nodes to write and how.
type Request struct {
	// NodeIDs limits the candidates. Nil means every node.
	NodeIDs []common.NodeID
	// NodeType limits the candidates to nodes of the selected types.
	NodeType common.Selector
	// EntryPrefix limits the entry syntax groups used.
	EntryPrefix common.Selector
	Syntax      *syntax.EntrySyntax
	Format      shorthand.Format

	// SortBy lists item positions to order the output by. Without it
	// entries come out in node id order.
	SortBy []string
	// SortPrefixes compares prefixed items including their prefix.
	SortPrefixes      bool
	SortCaseSensitive bool

	// FillSpaces writes spaces in item values as Format.SpaceChar.
	FillSpaces bool
	// NameType defaults to NameAbbr.
	NameType               NameType
	HideDefaultEntryPrefix bool
	// IncludeTags appends the node's tags as a trailing tag segment.
	IncludeTags bool
}

// Entry is one synthesized shorthand entry.
type Entry struct {
	NodeID common.NodeID
	Prefix string
	Text   string

	keys []string
}

// Synthesize writes an entry for every candidate node that fits one of the
// selected entry syntax groups. A node fitting several groups is written with
// the group declaring the most typed positions; ties go to the group declared
// first.
func Synthesize(store *textnet.ResolvedStore, req Request) ([]Entry, error) {
	entries, err := synthesize(store, req)
	if err != nil {
		return nil, err
	}
	order(entries)
	return entries, nil
}

func synthesize(store *textnet.ResolvedStore, req Request) ([]Entry, error) {
	if req.Syntax == nil {
		return nil, fmt.Errorf("an entry syntax is required")
	}
	if req.NameType == "" {
		req.NameType = NameAbbr
	}
	if req.NameType != NameFull && req.NameType != NameAbbr {
		return nil, fmt.Errorf("name type must be %q or %q, got %q", NameFull, NameAbbr, req.NameType)
	}
	if req.Format.ItemSeparator == "" {
		req.Format = shorthand.DefaultOptions().Format()
	}
	if len(req.Syntax.Prefixes()) == 0 {
		return nil, fmt.Errorf("entry syntax declares no entry prefix")
	}

	nodes, err := candidates(store, req)
	if err != nil {
		return nil, err
	}
	plans, err := newPlans(store, req)
	if err != nil {
		return nil, err
	}

	w := newWriter(store, req)
	out := make([]Entry, 0)
	for _, nid := range nodes {
		nt := store.NodeTypeOfNode(nid)
		var best *Entry
		bestSize := -1
		for _, p := range plans {
			if p.nodeType != nt || p.size() <= bestSize {
				continue
			}
			if e, ok := w.render(p, nid); ok {
				best, bestSize = e, p.size()
			}
		}
		if best != nil {
			out = append(out, *best)
		}
	}
	logger.Debug("[Synth] Synthesized entries", "candidates", len(nodes), "entries", len(out))
	return out, nil
}

func candidates(store *textnet.ResolvedStore, req Request) ([]common.NodeID, error) {
	var ids []common.NodeID
	if req.NodeIDs == nil {
		for _, n := range store.Nodes() {
			ids = append(ids, n.ID)
		}
	} else {
		for _, id := range req.NodeIDs {
			if _, err := store.Node(id); err != nil {
				return nil, err
			}
		}
		ids = slices.Clone(req.NodeIDs)
		slices.Sort(ids)
		ids = slices.Compact(ids)
	}
	if req.NodeType.IsZero() {
		return ids, nil
	}

	types, err := store.NodeTypes.IDs(req.NodeType)
	if err != nil {
		return nil, err
	}
	out := make([]common.NodeID, 0, len(ids))
	for _, id := range ids {
		if slices.Contains(types, store.NodeTypeOfNode(id)) {
			out = append(out, id)
		}
	}
	return out, nil
}

// order sorts entries by their sort keys, then by node id.
func order(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := slices.Compare(a.keys, b.keys); c != 0 {
			return c
		}
		if a.NodeID < b.NodeID {
			return -1
		}
		if a.NodeID > b.NodeID {
			return 1
		}
		return 0
	})
}

// listPositions maps edges to the lowest numeric tag they carry.
func listPositions(store *textnet.ResolvedStore) map[common.EdgeID]int {
	out := make(map[common.EdgeID]int)
	for _, et := range store.EdgeTags() {
		text := store.Text(et.TagStringID)
		if !isDigits(text) {
			continue
		}
		n, err := strconv.Atoi(text)
		if err != nil || n <= 0 {
			continue
		}
		if cur, ok := out[et.EdgeID]; !ok || n < cur {
			out[et.EdgeID] = n
		}
	}
	return out
}

func isDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}
