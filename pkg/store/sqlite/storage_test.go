package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/store"
)

func openTemp(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "bib.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorage_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	info, err := s.CreateStore(ctx, "refs")
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	if info.Status != store.StatusPending || info.Resolved {
		t.Fatalf("unexpected new store %+v", info)
	}

	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	snap := common.Snapshot{
		NodeTypes: []common.Type{{ID: 0, Name: "work"}, {ID: 1, Name: "_null", Null: true}},
		LinkTypes: []common.Type{{ID: 0, Name: "author", Description: "written by"}},
		Strings: []common.String{
			{ID: 0, Text: "Smith__2000", NodeTypeID: 0, NodeID: 0, DateInserted: at},
			{ID: 1, Text: "Smith", NodeTypeID: 0, NodeID: 1, DateInserted: at},
		},
		Assertions: []common.Assertion{
			{ID: 0, InpStringID: 0, SrcStringID: 0, TgtStringID: 1, RefStringID: 0, LinkTypeID: 0, DateInserted: at},
		},
		LinkTags: []common.LinkTag{{AssertionID: 0, TagStringID: 1}},
		Nodes: []common.Node{
			{ID: 0, NodeTypeID: 0, NameStringID: 0, AbbrStringID: 0},
			{ID: 1, NodeTypeID: 0, NameStringID: 1, AbbrStringID: 1},
		},
		Edges:    []common.Edge{{ID: 0, SrcNodeID: 0, TgtNodeID: 1, RefNodeID: 0, LinkTypeID: 0}},
		EdgeTags: []common.EdgeTag{{EdgeID: 0, TagStringID: 1}},
	}

	if err := s.SaveSnapshot(ctx, info.ID, snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	// Saving twice replaces rather than appends.
	if err := s.SaveSnapshot(ctx, info.ID, snap); err != nil {
		t.Fatalf("SaveSnapshot again: %v", err)
	}

	got, err := s.LoadSnapshot(ctx, info.ID)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if !reflect.DeepEqual(got, snap) {
		t.Fatalf("LoadSnapshot = %+v, want %+v", got, snap)
	}

	info, err = s.GetStore(ctx, info.ID)
	if err != nil {
		t.Fatalf("GetStore: %v", err)
	}
	if !info.Resolved {
		t.Fatal("store with nodes should be marked resolved")
	}
}

func TestStorage_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	a, err := s.CreateStore(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateStore(ctx, "b"); err != nil {
		t.Fatal(err)
	}

	if err := s.SetStatus(ctx, a.ID, store.StatusReady); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, err := s.GetStore(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.StatusReady {
		t.Fatalf("status = %q", got.Status)
	}

	list, err := s.ListStores(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("ListStores returned %d stores", len(list))
	}

	if err := s.DeleteStore(ctx, a.ID); err != nil {
		t.Fatalf("DeleteStore: %v", err)
	}

	tests := []struct {
		name string
		call func() error
	}{
		{"Get", func() error { _, err := s.GetStore(ctx, a.ID); return err }},
		{"Load", func() error { _, err := s.LoadSnapshot(ctx, a.ID); return err }},
		{"Save", func() error { return s.SaveSnapshot(ctx, a.ID, common.Snapshot{}) }},
		{"SetStatus", func() error { return s.SetStatus(ctx, a.ID, store.StatusFailed) }},
		{"Delete", func() error { return s.DeleteStore(ctx, a.ID) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}
