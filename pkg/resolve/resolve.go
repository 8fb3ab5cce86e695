// Package resolve partitions the strings of a raw store into nodes through
// alias assertions and projects assertions onto edges between those nodes.
package resolve

import (
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/OFFIS-RIT/bibliograph/internal/util"
	"github.com/OFFIS-RIT/bibliograph/pkg/alias"
	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/shorthand"
	"github.com/OFFIS-RIT/bibliograph/pkg/textnet"
)

// Link types written by Resolve.
const (
	LinkAliasTable      = "alias_table"
	LinkLinkConstraints = "link_constraints"
	LinkResolveParams   = "resolve_parameters"

	operationName = "resolve"
)

// Params configures Resolve.
type Params struct {
	// Aliases maps a node type to the text of its alias table.
	Aliases map[string]string
	// CaseSensitive disables the case folded aliases added for every node
	// type that has an alias table or a generator.
	CaseSensitive bool
	// Generators maps a node type to its automatic alias generator.
	Generators map[string]alias.Generator
	// LinkConstraints is a node_type,link_types table. Nodes of the type
	// that link to the same targets under every listed link type are
	// merged.
	LinkConstraints   string
	ExcludedLinkTypes []string
	// OperationID names the operation in the provenance record. A random id
	// is generated when empty.
	OperationID string
}

type paramsRecord struct {
	Aliases           map[string]string `json:"aliases,omitempty"`
	CaseSensitive     bool              `json:"case_sensitive"`
	Generators        []string          `json:"generators,omitempty"`
	LinkConstraints   string            `json:"link_constraints,omitempty"`
	ExcludedLinkTypes []string          `json:"excluded_link_types,omitempty"`
}

type operationRecord struct {
	Operation string `json:"operation"`
	ID        string `json:"id"`
}

// Resolve builds nodes and edges for raw. The input store is not modified:
// alias and provenance assertions are added to a copy, which the returned
// store wraps. On error nothing of the batch is kept.
func Resolve(raw *textnet.RawStore, params Params) (*textnet.ResolvedStore, error) {
	s := raw.Clone()
	r := &resolver{s: s, params: params}

	if err := r.provenance(); err != nil {
		return nil, err
	}
	if err := r.aliasTables(); err != nil {
		return nil, err
	}
	if err := r.generatedAliases(); err != nil {
		return nil, err
	}

	r.uf = newUnionFind(len(s.Strings()))
	for _, a := range r.aliasAssertions() {
		r.uf.union(int(a.SrcStringID), int(a.TgtStringID))
	}
	if err := r.checkClasses(); err != nil {
		return nil, err
	}
	if err := r.applyLinkConstraints(); err != nil {
		return nil, err
	}

	nodeOf, nodes := r.nodes()
	edges, edgeTags := r.edges(nodeOf)

	logger.Info("[Resolve] Built nodes and edges",
		"strings", len(s.Strings()),
		"nodes", len(nodes),
		"edges", len(edges),
	)
	return textnet.NewResolvedStore(s, nodeOf, nodes, edges, edgeTags)
}

type resolver struct {
	s      *textnet.RawStore
	params Params
	uf     *unionFind

	inp      common.StringID
	paramsID common.StringID
	aliasLT  common.TypeID
	tagType  common.TypeID
	csvType  common.TypeID

	aliasSeen map[[2]common.StringID]struct{}
}

func (r *resolver) provenance() error {
	opID := r.params.OperationID
	if opID == "" {
		id, err := util.NewID()
		if err != nil {
			return fmt.Errorf("failed to generate operation id: %w", err)
		}
		opID = id
	}
	op, err := json.Marshal(operationRecord{Operation: operationName, ID: opID})
	if err != nil {
		return fmt.Errorf("failed to encode operation: %w", err)
	}

	rec := paramsRecord{
		Aliases:           r.params.Aliases,
		CaseSensitive:     r.params.CaseSensitive,
		LinkConstraints:   r.params.LinkConstraints,
		ExcludedLinkTypes: r.params.ExcludedLinkTypes,
	}
	for nt := range r.params.Generators {
		rec.Generators = append(rec.Generators, nt)
	}
	slices.Sort(rec.Generators)
	paramsJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	s := r.s
	opType := s.NodeTypes.Insert(shorthand.NodeTypeOperation, "record of an operation on the store", false)
	jsonType := s.NodeTypes.Insert(shorthand.NodeTypeLiteralJSON, "verbatim JSON document", false)
	r.csvType = s.NodeTypes.Insert(shorthand.NodeTypeLiteralCSV, "verbatim delimited text", false)
	r.tagType = s.NodeTypes.Insert(textnet.NodeTypeTag, "free-form tag", false)
	r.aliasLT = s.LinkTypes.Insert(textnet.LinkAlias, "two strings name the same node", false)

	r.inp = s.InternString(string(op), opType)
	r.paramsID = s.InternString(string(paramsJSON), jsonType)
	lt := s.LinkTypes.Insert(LinkResolveParams, "", false)
	if _, err := s.AddAssertion(r.inp, r.inp, r.paramsID, r.inp, lt); err != nil {
		return err
	}

	r.aliasSeen = make(map[[2]common.StringID]struct{})
	for _, a := range s.Assertions() {
		if a.LinkTypeID == r.aliasLT {
			r.aliasSeen[[2]common.StringID{a.SrcStringID, a.TgtStringID}] = struct{}{}
		}
	}
	return nil
}

// addAlias records that src and tgt name the same node unless an identical
// alias already exists.
func (r *resolver) addAlias(src, tgt, ref common.StringID) error {
	if src == tgt {
		return nil
	}
	key := [2]common.StringID{src, tgt}
	if _, ok := r.aliasSeen[key]; ok {
		return nil
	}
	r.aliasSeen[key] = struct{}{}
	_, err := r.s.AddAssertion(r.inp, src, tgt, ref, r.aliasLT)
	return err
}

func (r *resolver) aliasAssertions() []common.Assertion {
	out := make([]common.Assertion, 0)
	for _, a := range r.s.Assertions() {
		if a.LinkTypeID == r.aliasLT {
			out = append(out, a)
		}
	}
	return out
}

// checkClasses rejects classes whose members carry different node types.
func (r *resolver) checkClasses() error {
	strs := r.s.Strings()
	first := make(map[int]common.StringID)
	for _, str := range strs {
		root := r.uf.find(int(str.ID))
		f, ok := first[root]
		if !ok {
			first[root] = str.ID
			continue
		}
		if strs[f].NodeTypeID == str.NodeTypeID {
			continue
		}
		e := &common.ResolutionError{}
		types := make(map[string]struct{})
		for _, m := range strs {
			if r.uf.find(int(m.ID)) != root {
				continue
			}
			e.Texts = append(e.Texts, m.Text)
			name := r.s.NodeTypes.Name(m.NodeTypeID)
			if _, seen := types[name]; !seen {
				types[name] = struct{}{}
				e.NodeTypes = append(e.NodeTypes, name)
			}
		}
		return e
	}
	return nil
}

// nodes turns the union-find classes into nodes ordered by their lowest
// member. The name is the longest member, the abbreviation the shortest;
// ties go to the lower string id.
func (r *resolver) nodes() ([]common.NodeID, []common.Node) {
	strs := r.s.Strings()
	nodeOf := make([]common.NodeID, len(strs))
	byRoot := make(map[int]common.NodeID)
	nodes := make([]common.Node, 0)

	for _, str := range strs {
		root := r.uf.find(int(str.ID))
		nid, ok := byRoot[root]
		if !ok {
			nid = common.NodeID(len(nodes))
			byRoot[root] = nid
			nodes = append(nodes, common.Node{
				ID:           nid,
				NodeTypeID:   str.NodeTypeID,
				NameStringID: str.ID,
				AbbrStringID: str.ID,
			})
		}
		nodeOf[str.ID] = nid

		n := &nodes[nid]
		l := utf8.RuneCountInString(str.Text)
		if l > utf8.RuneCountInString(strs[n.NameStringID].Text) {
			n.NameStringID = str.ID
		}
		if l < utf8.RuneCountInString(strs[n.AbbrStringID].Text) {
			n.AbbrStringID = str.ID
		}
	}
	return nodeOf, nodes
}

type edgeKey struct {
	src, tgt, ref common.NodeID
	lt            common.TypeID
}

// edges projects every assertion onto its nodes. Self edges and excluded
// link types are dropped; duplicates keep the first occurrence and collect
// the tags of all.
func (r *resolver) edges(nodeOf []common.NodeID) ([]common.Edge, []common.EdgeTag) {
	excluded := make(map[common.TypeID]struct{})
	for _, name := range r.params.ExcludedLinkTypes {
		id, err := r.s.LinkTypes.Lookup(name)
		if err != nil {
			continue
		}
		excluded[id] = struct{}{}
	}

	tagsOf := make(map[common.AssertionID][]common.StringID)
	for _, lt := range r.s.LinkTags() {
		tagsOf[lt.AssertionID] = append(tagsOf[lt.AssertionID], lt.TagStringID)
	}

	edges := make([]common.Edge, 0)
	edgeTags := make([]common.EdgeTag, 0)
	index := make(map[edgeKey]common.EdgeID)
	tagSeen := make(map[common.EdgeTag]struct{})

	for _, a := range r.s.Assertions() {
		if _, skip := excluded[a.LinkTypeID]; skip {
			continue
		}
		src, tgt := nodeOf[a.SrcStringID], nodeOf[a.TgtStringID]
		if src == tgt {
			continue
		}
		ref := common.NoNode
		if a.RefStringID != common.NoString {
			ref = nodeOf[a.RefStringID]
		}
		key := edgeKey{src, tgt, ref, a.LinkTypeID}
		id, ok := index[key]
		if !ok {
			id = common.EdgeID(len(edges))
			index[key] = id
			edges = append(edges, common.Edge{
				ID:         id,
				SrcNodeID:  src,
				TgtNodeID:  tgt,
				RefNodeID:  ref,
				LinkTypeID: a.LinkTypeID,
			})
		}
		for _, tag := range tagsOf[a.ID] {
			et := common.EdgeTag{EdgeID: id, TagStringID: tag}
			if _, dup := tagSeen[et]; dup {
				continue
			}
			tagSeen[et] = struct{}{}
			edgeTags = append(edgeTags, et)
		}
	}
	return edges, edgeTags
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
