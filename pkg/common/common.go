package common

import (
	"time"

	"golang.org/x/text/cases"
)

// StringID identifies a row of the strings table. Ids are positional: the
// n-th interned string has id n.
type StringID int64

// AssertionID identifies a row of the assertions table.
type AssertionID int64

// NodeID identifies a resolved node.
type NodeID int64

// EdgeID identifies a row of the edges table.
type EdgeID int64

// TypeID identifies an entry of a node-type or link-type registry.
type TypeID int32

const (
	// NoString marks an unset string reference of an assertion.
	NoString StringID = -1
	// NoNode marks a string that has not been assigned to a node yet, or an
	// unset node reference of an edge.
	NoNode NodeID = -1
	// NoType marks an unset type reference.
	NoType TypeID = -1
)

// Type is an entry of a node-type or link-type registry. Null types stand in
// for explicitly missing values.
type Type struct {
	ID          TypeID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Null        bool   `json:"null"`
}

// String is an interned text value. Within one store every text appears once.
//
// NodeID is NoNode until the store has been resolved.
type String struct {
	ID           StringID  `json:"id"`
	Text         string    `json:"text"`
	NodeTypeID   TypeID    `json:"node_type_id"`
	NodeID       NodeID    `json:"node_id"`
	DateInserted time.Time `json:"date_inserted"`
}

// Assertion records that the input InpStringID asserts a relation of type
// LinkTypeID from SrcStringID to TgtStringID, attested by RefStringID.
type Assertion struct {
	ID           AssertionID `json:"id"`
	InpStringID  StringID    `json:"inp_string_id"`
	SrcStringID  StringID    `json:"src_string_id"`
	TgtStringID  StringID    `json:"tgt_string_id"`
	RefStringID  StringID    `json:"ref_string_id"`
	LinkTypeID   TypeID      `json:"link_type_id"`
	DateInserted time.Time   `json:"date_inserted"`
}

// LinkTag attaches a free-form tag string to an assertion.
type LinkTag struct {
	AssertionID AssertionID `json:"assertion_id"`
	TagStringID StringID    `json:"tag_string_id"`
}

// Node is an equivalence class of strings denoting one entity. The name
// string is the longest member, the abbr string the shortest.
type Node struct {
	ID           NodeID   `json:"id"`
	NodeTypeID   TypeID   `json:"node_type_id"`
	NameStringID StringID `json:"name_string_id"`
	AbbrStringID StringID `json:"abbr_string_id"`
}

// Edge is the node-level projection of one or more assertions.
type Edge struct {
	ID         EdgeID `json:"id"`
	SrcNodeID  NodeID `json:"src_node_id"`
	TgtNodeID  NodeID `json:"tgt_node_id"`
	RefNodeID  NodeID `json:"ref_node_id"`
	LinkTypeID TypeID `json:"link_type_id"`
}

// EdgeTag carries the link tags of the assertions behind an edge.
type EdgeTag struct {
	EdgeID      EdgeID   `json:"edge_id"`
	TagStringID StringID `json:"tag_string_id"`
}

// Snapshot is the serializable form of a compiled store. Nodes, Edges and
// EdgeTags are empty for a store that has not been resolved.
type Snapshot struct {
	NodeTypes  []Type      `json:"node_types"`
	LinkTypes  []Type      `json:"link_types"`
	Strings    []String    `json:"strings"`
	Assertions []Assertion `json:"assertions"`
	LinkTags   []LinkTag   `json:"link_tags"`
	Nodes      []Node      `json:"nodes"`
	Edges      []Edge      `json:"edges"`
	EdgeTags   []EdgeTag   `json:"edge_tags"`
}

// Casefold returns the Unicode case folding of s.
func Casefold(s string) string {
	return cases.Fold().String(s)
}
