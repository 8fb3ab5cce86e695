package textnet

import (
	"fmt"
	"strconv"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
)

// ResolvedStore is a RawStore whose strings have been partitioned into nodes
// and whose assertions have been projected to edges. Node and edge queries
// exist only on this type.
type ResolvedStore struct {
	*RawStore

	nodeOf   []common.NodeID
	nodes    []common.Node
	edges    []common.Edge
	edgeTags []common.EdgeTag

	members  map[common.NodeID][]common.StringID
	outgoing map[common.NodeID][]int
}

// NewResolvedStore wraps raw with the given resolution tables. nodeOf maps
// every string id of raw to its node.
func NewResolvedStore(
	raw *RawStore,
	nodeOf []common.NodeID,
	nodes []common.Node,
	edges []common.Edge,
	edgeTags []common.EdgeTag,
) (*ResolvedStore, error) {
	if len(nodeOf) != len(raw.strings) {
		return nil, fmt.Errorf("node assignment covers %d of %d strings", len(nodeOf), len(raw.strings))
	}
	for i, n := range nodes {
		if int(n.ID) != i {
			return nil, fmt.Errorf("node ids are not contiguous at %d", i)
		}
	}
	for sid, nid := range nodeOf {
		if nid < 0 || int(nid) >= len(nodes) {
			return nil, fmt.Errorf("string %d assigned to unknown node %d", sid, nid)
		}
	}

	r := &ResolvedStore{
		RawStore: raw,
		nodeOf:   nodeOf,
		nodes:    nodes,
		edges:    edges,
		edgeTags: edgeTags,
		members:  make(map[common.NodeID][]common.StringID, len(nodes)),
		outgoing: make(map[common.NodeID][]int),
	}
	for sid, nid := range nodeOf {
		r.members[nid] = append(r.members[nid], common.StringID(sid))
	}
	for i, e := range edges {
		r.outgoing[e.SrcNodeID] = append(r.outgoing[e.SrcNodeID], i)
	}
	return r, nil
}

// Strings returns the strings table with node assignments filled in.
func (r *ResolvedStore) Strings() []common.String {
	out := make([]common.String, len(r.strings))
	for i, s := range r.strings {
		s.NodeID = r.nodeOf[i]
		out[i] = s
	}
	return out
}

// String returns the row for id with its node assignment.
func (r *ResolvedStore) String(id common.StringID) (common.String, error) {
	s, err := r.RawStore.String(id)
	if err != nil {
		return s, err
	}
	s.NodeID = r.nodeOf[id]
	return s, nil
}

func (r *ResolvedStore) Nodes() []common.Node { return r.nodes }

func (r *ResolvedStore) Edges() []common.Edge { return r.edges }

func (r *ResolvedStore) EdgeTags() []common.EdgeTag { return r.edgeTags }

// NodeOf returns the node owning string id.
func (r *ResolvedStore) NodeOf(id common.StringID) (common.NodeID, error) {
	if id < 0 || int(id) >= len(r.nodeOf) {
		return common.NoNode, &common.LookupError{Kind: "string", Key: strconv.FormatInt(int64(id), 10), Msg: "unknown id"}
	}
	return r.nodeOf[id], nil
}

// NodeOfText returns the node owning the string text.
func (r *ResolvedStore) NodeOfText(text string) (common.NodeID, error) {
	id, ok := r.StringID(text)
	if !ok {
		return common.NoNode, &common.LookupError{Kind: "string", Key: text}
	}
	return r.nodeOf[id], nil
}

func (r *ResolvedStore) Node(id common.NodeID) (common.Node, error) {
	if id < 0 || int(id) >= len(r.nodes) {
		return common.Node{}, &common.LookupError{Kind: "node", Key: strconv.FormatInt(int64(id), 10), Msg: "unknown id"}
	}
	return r.nodes[id], nil
}

// NodeName returns the name literal of a node, or its abbreviation if abbr.
func (r *ResolvedStore) NodeName(id common.NodeID, abbr bool) string {
	if id < 0 || int(id) >= len(r.nodes) {
		return ""
	}
	if abbr {
		return r.Text(r.nodes[id].AbbrStringID)
	}
	return r.Text(r.nodes[id].NameStringID)
}

// NodeTypeOfNode returns the node type of a node.
func (r *ResolvedStore) NodeTypeOfNode(id common.NodeID) common.TypeID {
	if id < 0 || int(id) >= len(r.nodes) {
		return common.NoType
	}
	return r.nodes[id].NodeTypeID
}

// NodesByType returns the ids of all nodes whose type is selected.
func (r *ResolvedStore) NodesByType(sel common.Selector) ([]common.NodeID, error) {
	ids, err := r.NodeTypes.IDs(sel)
	if err != nil {
		return nil, err
	}
	want := make(map[common.TypeID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]common.NodeID, 0)
	for _, n := range r.nodes {
		if _, ok := want[n.NodeTypeID]; ok {
			out = append(out, n.ID)
		}
	}
	return out, nil
}

// StringsOfNode returns the member string ids of a node in id order.
func (r *ResolvedStore) StringsOfNode(id common.NodeID) []common.StringID {
	return append([]common.StringID(nil), r.members[id]...)
}

// EdgesFrom returns the outgoing edges of a node in edge id order.
func (r *ResolvedStore) EdgesFrom(id common.NodeID) []common.Edge {
	idx := r.outgoing[id]
	out := make([]common.Edge, len(idx))
	for i, e := range idx {
		out[i] = r.edges[e]
	}
	return out
}

// EdgeTagsOf returns the tag string ids of an edge.
func (r *ResolvedStore) EdgeTagsOf(id common.EdgeID) []common.StringID {
	out := make([]common.StringID, 0)
	for _, et := range r.edgeTags {
		if et.EdgeID == id {
			out = append(out, et.TagStringID)
		}
	}
	return out
}

// Snapshot returns every table in serializable form.
func (r *ResolvedStore) Snapshot() common.Snapshot {
	snap := r.RawStore.Snapshot()
	snap.Strings = r.Strings()
	snap.Nodes = append([]common.Node(nil), r.nodes...)
	snap.Edges = append([]common.Edge(nil), r.edges...)
	snap.EdgeTags = append([]common.EdgeTag(nil), r.edgeTags...)
	return snap
}
