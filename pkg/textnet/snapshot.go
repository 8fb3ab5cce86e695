package textnet

import (
	"fmt"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
)

// FromSnapshot rebuilds a RawStore from the raw tables of snap. Node
// assignments in snap are ignored.
func FromSnapshot(snap common.Snapshot) (*RawStore, error) {
	nodeTypes, err := registryFromTypes("node type", snap.NodeTypes)
	if err != nil {
		return nil, err
	}
	linkTypes, err := registryFromTypes("link type", snap.LinkTypes)
	if err != nil {
		return nil, err
	}

	s := NewRawStore()
	s.NodeTypes = nodeTypes
	s.LinkTypes = linkTypes

	for i, str := range snap.Strings {
		if int(str.ID) != i {
			return nil, fmt.Errorf("string ids are not contiguous at %d", i)
		}
		if _, dup := s.index[str.Text]; dup {
			return nil, fmt.Errorf("string %q appears more than once", str.Text)
		}
		str.NodeID = common.NoNode
		s.strings = append(s.strings, str)
		s.index[str.Text] = str.ID
	}
	for i, a := range snap.Assertions {
		if int(a.ID) != i {
			return nil, fmt.Errorf("assertion ids are not contiguous at %d", i)
		}
		s.assertions = append(s.assertions, a)
	}
	s.linkTags = append(s.linkTags, snap.LinkTags...)
	return s, nil
}

// ResolvedFromSnapshot rebuilds a ResolvedStore. It fails with a
// NotInitializedError if snap carries no nodes.
func ResolvedFromSnapshot(snap common.Snapshot) (*ResolvedStore, error) {
	if len(snap.Nodes) == 0 {
		return nil, &common.NotInitializedError{Table: "nodes"}
	}
	raw, err := FromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	nodeOf := make([]common.NodeID, len(snap.Strings))
	for i, str := range snap.Strings {
		nodeOf[i] = str.NodeID
	}
	return NewResolvedStore(raw, nodeOf, snap.Nodes, snap.Edges, snap.EdgeTags)
}
