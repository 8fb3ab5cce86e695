package textnet

import (
	"errors"
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
)

func TestTypeRegistry_InsertIsStable(t *testing.T) {
	r := NewTypeRegistry("node type")
	work := r.Insert("work", "", false)
	actor := r.Insert("actor", "a person", false)
	again := r.Insert("work", "bibliographic work", false)

	if work != 0 || actor != 1 || again != work {
		t.Fatalf("unexpected ids: work=%d actor=%d again=%d", work, actor, again)
	}
	typ, err := r.Get(work)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if typ.Description != "bibliographic work" {
		t.Fatalf("expected empty description to be filled, got %q", typ.Description)
	}

	missing := r.Insert("missing", "", true)
	if !r.IsNull(missing) {
		t.Fatal("expected missing to be a null type")
	}

	if _, err := r.Lookup("journal"); !errors.Is(err, common.ErrLookup) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestRawStore_InternFirstOccurrenceWins(t *testing.T) {
	s := NewRawStore()
	work := s.NodeTypes.Insert("work", "", false)
	actor := s.NodeTypes.Insert("actor", "", false)

	a := s.InternString("Auth1", actor)
	b := s.InternString("2000", work)
	c := s.InternString("Auth1", work)

	if a != 0 || b != 1 || c != a {
		t.Fatalf("unexpected ids: %d %d %d", a, b, c)
	}
	if got := s.NodeTypeOf(a); got != actor {
		t.Fatalf("expected first node type to win, got %d", got)
	}
	if len(s.Strings()) != 2 {
		t.Fatalf("expected 2 strings, got %d", len(s.Strings()))
	}
}

func TestRawStore_AddAssertionChecksReferences(t *testing.T) {
	s := NewRawStore()
	typ := s.NodeTypes.Insert("work", "", false)
	entry, _ := s.LinkTypes.Lookup(LinkEntry)
	src := s.InternString("text", typ)
	tgt := s.InternString("Auth1__2000", typ)

	id, err := s.AddAssertion(src, src, tgt, common.NoString, entry)
	if err != nil {
		t.Fatalf("AddAssertion: %v", err)
	}
	if id != 0 {
		t.Fatalf("expected id 0, got %d", id)
	}

	if _, err := s.AddAssertion(src, src, 42, common.NoString, entry); !errors.Is(err, common.ErrLookup) {
		t.Fatalf("expected lookup error for unknown string, got %v", err)
	}
	if len(s.Assertions()) != 1 {
		t.Fatalf("failed assertion must not be stored, have %d", len(s.Assertions()))
	}
}

func TestRawStore_CloneIsIndependent(t *testing.T) {
	s := NewRawStore()
	typ := s.NodeTypes.Insert("work", "", false)
	s.InternString("a", typ)

	c := s.Clone()
	c.InternString("b", typ)
	c.NodeTypes.Insert("actor", "", false)

	if len(s.Strings()) != 1 {
		t.Fatalf("clone mutated original strings: %d", len(s.Strings()))
	}
	if s.NodeTypes.Has("actor") {
		t.Fatal("clone mutated original registry")
	}
}

func TestResolvedFromSnapshot_RequiresNodes(t *testing.T) {
	s := NewRawStore()
	s.InternString("a", s.NodeTypes.Insert("work", "", false))

	_, err := ResolvedFromSnapshot(s.Snapshot())
	var nie *common.NotInitializedError
	if !errors.As(err, &nie) {
		t.Fatalf("expected NotInitializedError, got %v", err)
	}
}

func TestResolvedStore_SnapshotRoundTrip(t *testing.T) {
	s := NewRawStore()
	work := s.NodeTypes.Insert("work", "", false)
	actor := s.NodeTypes.Insert("actor", "", false)
	entry, _ := s.LinkTypes.Lookup(LinkEntry)
	author := s.LinkTypes.Insert("author", "", false)

	text := s.InternString("text", work)
	e := s.InternString("Auth1__2000", work)
	a := s.InternString("Auth1", actor)
	if _, err := s.AddAssertion(text, text, e, text, entry); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddAssertion(text, e, a, text, author); err != nil {
		t.Fatal(err)
	}

	nodes := []common.Node{
		{ID: 0, NodeTypeID: work, NameStringID: text, AbbrStringID: text},
		{ID: 1, NodeTypeID: work, NameStringID: e, AbbrStringID: e},
		{ID: 2, NodeTypeID: actor, NameStringID: a, AbbrStringID: a},
	}
	edges := []common.Edge{
		{ID: 0, SrcNodeID: 0, TgtNodeID: 1, RefNodeID: 0, LinkTypeID: entry},
		{ID: 1, SrcNodeID: 1, TgtNodeID: 2, RefNodeID: 0, LinkTypeID: author},
	}
	r, err := NewResolvedStore(s, []common.NodeID{0, 1, 2}, nodes, edges, nil)
	if err != nil {
		t.Fatalf("NewResolvedStore: %v", err)
	}

	back, err := ResolvedFromSnapshot(r.Snapshot())
	if err != nil {
		t.Fatalf("ResolvedFromSnapshot: %v", err)
	}
	if !reflect.DeepEqual(back.Nodes(), r.Nodes()) || !reflect.DeepEqual(back.Edges(), r.Edges()) {
		t.Fatal("snapshot round trip changed nodes or edges")
	}
	if got := back.EdgesFrom(1); len(got) != 1 || got[0].TgtNodeID != 2 {
		t.Fatalf("unexpected outgoing edges: %+v", got)
	}
	if nid, err := back.NodeOfText("Auth1"); err != nil || nid != 2 {
		t.Fatalf("NodeOfText = %d, %v", nid, err)
	}
	ids, err := back.NodesByType(common.Scalar("work"))
	if err != nil || !reflect.DeepEqual(ids, []common.NodeID{0, 1}) {
		t.Fatalf("NodesByType = %v, %v", ids, err)
	}
}
