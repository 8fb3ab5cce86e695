package resolve

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	csvtable "github.com/OFFIS-RIT/bibliograph/pkg/loader/csv"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
)

// Constraint merges nodes of NodeType that link to the same target nodes
// under every one of LinkTypes.
type Constraint struct {
	NodeType  string
	LinkTypes []string
}

// ParseConstraints reads a node_type,link_types table. Link types are
// separated by white space.
func ParseConstraints(text string) ([]Constraint, error) {
	table, err := csvtable.ReadTable([]byte(text), csvtable.ReadTableOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read link constraints: %w", err)
	}
	ntCol := table.Column("node_type", common.Casefold)
	ltCol := table.Column("link_types", common.Casefold)
	if ntCol < 0 || ltCol < 0 {
		return nil, fmt.Errorf("link constraints need node_type and link_types columns")
	}
	out := make([]Constraint, 0, len(table.Rows))
	for _, row := range table.Rows {
		c := Constraint{
			NodeType:  strings.TrimSpace(row[ntCol]),
			LinkTypes: strings.Fields(row[ltCol]),
		}
		if c.NodeType == "" || len(c.LinkTypes) == 0 {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// applyLinkConstraints merges same-signature nodes until a pass merges
// nothing. Every merge is recorded as an alias assertion attested by the
// constraints text.
func (r *resolver) applyLinkConstraints() error {
	if strings.TrimSpace(r.params.LinkConstraints) == "" {
		return nil
	}
	constraints, err := ParseConstraints(r.params.LinkConstraints)
	if err != nil {
		return err
	}

	s := r.s
	textID := s.InternString(r.params.LinkConstraints, r.csvType)
	lt := s.LinkTypes.Insert(LinkLinkConstraints, "", false)
	if _, err := s.AddAssertion(r.inp, r.inp, textID, r.inp, lt); err != nil {
		return err
	}
	r.uf.grow(len(s.Strings()))

	for pass := 1; ; pass++ {
		merged := 0
		for _, c := range constraints {
			n, err := r.mergeBySignature(c, textID)
			if err != nil {
				return err
			}
			merged += n
		}
		logger.Debug("[Resolve][Constraints] Pass finished", "pass", pass, "merged", merged)
		if merged == 0 {
			return nil
		}
	}
}

func (r *resolver) mergeBySignature(c Constraint, ref common.StringID) (int, error) {
	s := r.s
	nt, err := s.NodeTypes.Lookup(c.NodeType)
	if err != nil || s.NodeTypes.IsNull(nt) {
		return 0, nil
	}
	lts := make([]common.TypeID, 0, len(c.LinkTypes))
	for _, name := range c.LinkTypes {
		id, err := s.LinkTypes.Lookup(name)
		if err != nil {
			return 0, &common.LookupError{
				Kind: "link type",
				Key:  name,
				Msg:  "named by link constraint for " + strconv.Quote(c.NodeType) + " but unknown to the store",
			}
		}
		lts = append(lts, id)
	}

	// targets[root][i] collects target roots under lts[i].
	targets := make(map[int][]map[int]struct{})
	for _, a := range s.Assertions() {
		i := slices.Index(lts, a.LinkTypeID)
		if i < 0 || s.NodeTypeOf(a.SrcStringID) != nt || s.NodeTypes.IsNull(s.NodeTypeOf(a.TgtStringID)) {
			continue
		}
		src := r.uf.find(int(a.SrcStringID))
		sets, ok := targets[src]
		if !ok {
			sets = make([]map[int]struct{}, len(lts))
			targets[src] = sets
		}
		if sets[i] == nil {
			sets[i] = make(map[int]struct{})
		}
		sets[i][r.uf.find(int(a.TgtStringID))] = struct{}{}
	}

	groups := make(map[string][]int)
	order := make([]string, 0)
	for root, sets := range targets {
		sig, ok := signature(sets)
		if !ok {
			continue
		}
		if _, seen := groups[sig]; !seen {
			order = append(order, sig)
		}
		groups[sig] = append(groups[sig], root)
	}
	slices.Sort(order)

	merged := 0
	for _, sig := range order {
		roots := groups[sig]
		if len(roots) < 2 {
			continue
		}
		slices.Sort(roots)
		for _, other := range roots[1:] {
			if err := r.addAlias(common.StringID(roots[0]), common.StringID(other), ref); err != nil {
				return merged, err
			}
			if r.uf.union(roots[0], other) {
				merged++
			}
		}
	}
	return merged, nil
}

// signature encodes the sorted target roots per link type. Sources missing
// any link type have no signature.
func signature(sets []map[int]struct{}) (string, bool) {
	var b strings.Builder
	for i, set := range sets {
		if len(set) == 0 {
			return "", false
		}
		ids := make([]int, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		if i > 0 {
			b.WriteByte('|')
		}
		for j, id := range ids {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(id))
		}
	}
	return b.String(), true
}
