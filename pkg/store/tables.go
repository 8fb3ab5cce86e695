package store

import (
	"time"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
)

// Table maps one snapshot table to its database columns. Rows yields plain
// Go values so that every driver can encode them; Scan appends one row read
// through scan to the snapshot.
type Table struct {
	Name    string
	Columns []string
	OrderBy string
	Rows    func(snap *common.Snapshot) [][]any
	Scan    func(snap *common.Snapshot, scan func(dest ...any) error) error
}

// SnapshotTables lists the snapshot tables in dependency order.
func SnapshotTables() []Table {
	return []Table{
		typeTable("node_types", func(s *common.Snapshot) *[]common.Type { return &s.NodeTypes }),
		typeTable("link_types", func(s *common.Snapshot) *[]common.Type { return &s.LinkTypes }),
		{
			Name:    "strings",
			Columns: []string{"id", "text", "node_type_id", "node_id", "date_inserted"},
			OrderBy: "id",
			Rows: func(s *common.Snapshot) [][]any {
				out := make([][]any, len(s.Strings))
				for i, v := range s.Strings {
					out[i] = []any{int64(v.ID), v.Text, int32(v.NodeTypeID), int64(v.NodeID), v.DateInserted.UTC()}
				}
				return out
			},
			Scan: func(s *common.Snapshot, scan func(...any) error) error {
				var id, node int64
				var nt int32
				var text string
				var date time.Time
				if err := scan(&id, &text, &nt, &node, &date); err != nil {
					return err
				}
				s.Strings = append(s.Strings, common.String{
					ID:           common.StringID(id),
					Text:         text,
					NodeTypeID:   common.TypeID(nt),
					NodeID:       common.NodeID(node),
					DateInserted: date.UTC(),
				})
				return nil
			},
		},
		{
			Name:    "assertions",
			Columns: []string{"id", "inp_string_id", "src_string_id", "tgt_string_id", "ref_string_id", "link_type_id", "date_inserted"},
			OrderBy: "id",
			Rows: func(s *common.Snapshot) [][]any {
				out := make([][]any, len(s.Assertions))
				for i, a := range s.Assertions {
					out[i] = []any{
						int64(a.ID), int64(a.InpStringID), int64(a.SrcStringID), int64(a.TgtStringID),
						int64(a.RefStringID), int32(a.LinkTypeID), a.DateInserted.UTC(),
					}
				}
				return out
			},
			Scan: func(s *common.Snapshot, scan func(...any) error) error {
				var id, inp, src, tgt, ref int64
				var lt int32
				var date time.Time
				if err := scan(&id, &inp, &src, &tgt, &ref, &lt, &date); err != nil {
					return err
				}
				s.Assertions = append(s.Assertions, common.Assertion{
					ID:           common.AssertionID(id),
					InpStringID:  common.StringID(inp),
					SrcStringID:  common.StringID(src),
					TgtStringID:  common.StringID(tgt),
					RefStringID:  common.StringID(ref),
					LinkTypeID:   common.TypeID(lt),
					DateInserted: date.UTC(),
				})
				return nil
			},
		},
		{
			Name:    "link_tags",
			Columns: []string{"assertion_id", "tag_string_id"},
			OrderBy: "assertion_id, tag_string_id",
			Rows: func(s *common.Snapshot) [][]any {
				out := make([][]any, len(s.LinkTags))
				for i, t := range s.LinkTags {
					out[i] = []any{int64(t.AssertionID), int64(t.TagStringID)}
				}
				return out
			},
			Scan: func(s *common.Snapshot, scan func(...any) error) error {
				var aid, tag int64
				if err := scan(&aid, &tag); err != nil {
					return err
				}
				s.LinkTags = append(s.LinkTags, common.LinkTag{AssertionID: common.AssertionID(aid), TagStringID: common.StringID(tag)})
				return nil
			},
		},
		{
			Name:    "nodes",
			Columns: []string{"id", "node_type_id", "name_string_id", "abbr_string_id"},
			OrderBy: "id",
			Rows: func(s *common.Snapshot) [][]any {
				out := make([][]any, len(s.Nodes))
				for i, n := range s.Nodes {
					out[i] = []any{int64(n.ID), int32(n.NodeTypeID), int64(n.NameStringID), int64(n.AbbrStringID)}
				}
				return out
			},
			Scan: func(s *common.Snapshot, scan func(...any) error) error {
				var id, name, abbr int64
				var nt int32
				if err := scan(&id, &nt, &name, &abbr); err != nil {
					return err
				}
				s.Nodes = append(s.Nodes, common.Node{
					ID:           common.NodeID(id),
					NodeTypeID:   common.TypeID(nt),
					NameStringID: common.StringID(name),
					AbbrStringID: common.StringID(abbr),
				})
				return nil
			},
		},
		{
			Name:    "edges",
			Columns: []string{"id", "src_node_id", "tgt_node_id", "ref_node_id", "link_type_id"},
			OrderBy: "id",
			Rows: func(s *common.Snapshot) [][]any {
				out := make([][]any, len(s.Edges))
				for i, e := range s.Edges {
					out[i] = []any{int64(e.ID), int64(e.SrcNodeID), int64(e.TgtNodeID), int64(e.RefNodeID), int32(e.LinkTypeID)}
				}
				return out
			},
			Scan: func(s *common.Snapshot, scan func(...any) error) error {
				var id, src, tgt, ref int64
				var lt int32
				if err := scan(&id, &src, &tgt, &ref, &lt); err != nil {
					return err
				}
				s.Edges = append(s.Edges, common.Edge{
					ID:         common.EdgeID(id),
					SrcNodeID:  common.NodeID(src),
					TgtNodeID:  common.NodeID(tgt),
					RefNodeID:  common.NodeID(ref),
					LinkTypeID: common.TypeID(lt),
				})
				return nil
			},
		},
		{
			Name:    "edge_tags",
			Columns: []string{"edge_id", "tag_string_id"},
			OrderBy: "edge_id, tag_string_id",
			Rows: func(s *common.Snapshot) [][]any {
				out := make([][]any, len(s.EdgeTags))
				for i, t := range s.EdgeTags {
					out[i] = []any{int64(t.EdgeID), int64(t.TagStringID)}
				}
				return out
			},
			Scan: func(s *common.Snapshot, scan func(...any) error) error {
				var eid, tag int64
				if err := scan(&eid, &tag); err != nil {
					return err
				}
				s.EdgeTags = append(s.EdgeTags, common.EdgeTag{EdgeID: common.EdgeID(eid), TagStringID: common.StringID(tag)})
				return nil
			},
		},
	}
}

func typeTable(name string, field func(*common.Snapshot) *[]common.Type) Table {
	return Table{
		Name:    name,
		Columns: []string{"id", "name", "description", "null_type"},
		OrderBy: "id",
		Rows: func(s *common.Snapshot) [][]any {
			types := *field(s)
			out := make([][]any, len(types))
			for i, t := range types {
				out[i] = []any{int32(t.ID), t.Name, t.Description, t.Null}
			}
			return out
		},
		Scan: func(s *common.Snapshot, scan func(...any) error) error {
			var id int32
			var t common.Type
			if err := scan(&id, &t.Name, &t.Description, &t.Null); err != nil {
				return err
			}
			t.ID = common.TypeID(id)
			p := field(s)
			*p = append(*p, t)
			return nil
		},
	}
}
