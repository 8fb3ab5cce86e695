package graph

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/loader"
	"github.com/OFFIS-RIT/bibliograph/pkg/shorthand"
	"github.com/OFFIS-RIT/bibliograph/pkg/store"
	"github.com/OFFIS-RIT/bibliograph/pkg/textnet"
)

const testEntrySyntax = `entry_prefix,entry_node_type,item_label,item_node_type,item_link_type,list_delimiter,item_prefixes,item_prefix_separator
wrk,work,0,actor,author,_,,
wrk,work,1,date,published,,,
wrk,work,2,work,supertitle,,,
ref,work,0,,,,a d,:
ref,work,a,actor,author,,,
ref,work,d,identifier,doi,,,
ref,work,1,date,published,,,
`

const testLinkSyntax = `left_entry_prefix,right_entry_prefix,source_position,target_position,dflt_ref_position,link_type,list_mode
wrk,wrk,l,r,,cites,1:1
wrk,ref,l,r,,cites,1:1
`

const header = "left_entry,right_entry,link_tags_or_override,reference\n"

type memLoader map[string]string

func (m memLoader) GetFileText(_ context.Context, file loader.GraphFile) ([]byte, error) {
	text, ok := m[file.FilePath]
	if !ok {
		return nil, fmt.Errorf("no such file %s", file.FilePath)
	}
	return []byte(text), nil
}

func files(l memLoader, extra ...loader.GraphFile) []loader.GraphFile {
	p := func(path string) loader.NewGraphFileParams {
		return loader.NewGraphFileParams{ID: path, FilePath: path, Loader: l}
	}
	out := []loader.GraphFile{
		loader.NewEntrySyntaxFile(p("entry.csv")),
		loader.NewLinkSyntaxFile(p("link.csv")),
		loader.NewShorthandFile(p("data.csv")),
	}
	return append(out, extra...)
}

func newClient(t *testing.T) *GraphClient {
	t.Helper()
	g, err := NewGraphClient(NewGraphClientParams{ParallelFiles: 2})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func hasEdge(r *textnet.ResolvedStore, src, tgt, linkType string) bool {
	sid, err := r.NodeOfText(src)
	if err != nil {
		return false
	}
	tid, err := r.NodeOfText(tgt)
	if err != nil {
		return false
	}
	for _, e := range r.EdgesFrom(sid) {
		if e.TgtNodeID == tid && r.LinkTypes.Name(e.LinkTypeID) == linkType {
			return true
		}
	}
	return false
}

func TestCompile(t *testing.T) {
	l := memLoader{
		"entry.csv": testEntrySyntax,
		"link.csv":  testLinkSyntax,
		"data.csv":  header + "Smith__2000__J,Kay__1990__J,,\n",
		"items.csv": "1,a\n1999,Lee\n",
		"actor.csv": "key,alias\nKay,A. Kay\n",
	}
	input := CompileInput{
		Files: files(l,
			loader.NewItemsFile(loader.NewGraphFileParams{ID: "4", FilePath: "items.csv", Loader: l}, "ref"),
			loader.NewAliasFile(loader.NewGraphFileParams{ID: "5", FilePath: "actor.csv", Loader: l}, "actor"),
		),
	}

	r, err := newClient(t).Compile(context.Background(), input)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !hasEdge(r, "Smith__2000__J", "Kay__1990__J", "cites") {
		t.Fatal("missing cites edge")
	}
	if !hasEdge(r, "Kay__1990__J", "A. Kay", "author") {
		t.Fatal("alias table did not merge Kay with A. Kay")
	}
	if _, err := r.NodeOfText("ref__a:Lee__1999"); err != nil {
		t.Fatalf("item table entry missing: %v", err)
	}
}

func TestCompile_Generators(t *testing.T) {
	l := memLoader{
		"entry.csv": testEntrySyntax,
		"link.csv":  testLinkSyntax,
		"data.csv":  header + "\"Smith, Alice__2000__J\",,,\n\"SMITH, A.__2001__J\",,,\n",
	}

	tests := []struct {
		name       string
		generators map[string]string
		merged     bool
	}{
		{"Default", nil, true},
		{"None", map[string]string{}, false},
		{"Named", map[string]string{"actor": "western_surname"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := newClient(t).Compile(context.Background(), CompileInput{Files: files(l), Generators: tt.generators})
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			a, err := r.NodeOfText("Smith, Alice")
			if err != nil {
				t.Fatal(err)
			}
			b, err := r.NodeOfText("SMITH, A.")
			if err != nil {
				t.Fatal(err)
			}
			if (a == b) != tt.merged {
				t.Fatalf("merged = %v, want %v", a == b, tt.merged)
			}
		})
	}
}

func TestCompile_InputErrors(t *testing.T) {
	l := memLoader{
		"entry.csv": testEntrySyntax,
		"link.csv":  testLinkSyntax,
		"data.csv":  header + "Smith__2000__J,,,\n",
		"alias.csv": "key,alias\n",
	}
	p := func(path string) loader.NewGraphFileParams {
		return loader.NewGraphFileParams{ID: path, FilePath: path, Loader: l}
	}

	tests := []struct {
		name    string
		input   CompileInput
		invalid bool
	}{
		{"NoEntrySyntax", CompileInput{Files: []loader.GraphFile{loader.NewShorthandFile(p("data.csv"))}}, true},
		{"NoData", CompileInput{Files: []loader.GraphFile{loader.NewEntrySyntaxFile(p("entry.csv"))}}, true},
		{"TwoEntrySyntaxes", CompileInput{Files: files(l, loader.NewEntrySyntaxFile(p("entry.csv")))}, true},
		{"MissingFile", CompileInput{Files: files(l, loader.NewShorthandFile(p("nope.csv")))}, false},
		{"AliasWithoutType", CompileInput{Files: files(l, loader.NewAliasFile(p("alias.csv"), ""))}, true},
		{"UnknownGenerator", CompileInput{Files: files(l), Generators: map[string]string{"actor": "soundex"}}, true},
		{"BadOptions", CompileInput{Files: files(l), Options: shorthand.Options{DefaultEntryPrefix: "jrn"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newClient(t).Compile(context.Background(), tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrInvalidInput); got != tt.invalid {
				t.Fatalf("errors.Is(ErrInvalidInput) = %v for %v", got, err)
			}
		})
	}
}

type memStorage struct {
	mu       sync.Mutex
	statuses []store.Status
	snaps    map[string]common.Snapshot
	saveErrs []error
}

func newMemStorage() *memStorage {
	return &memStorage{snaps: make(map[string]common.Snapshot)}
}

func (m *memStorage) CreateStore(context.Context, string) (store.Info, error) {
	return store.Info{}, errors.New("not supported")
}

func (m *memStorage) GetStore(context.Context, string) (store.Info, error) {
	return store.Info{}, errors.New("not supported")
}

func (m *memStorage) ListStores(context.Context) ([]store.Info, error) { return nil, nil }

func (m *memStorage) DeleteStore(context.Context, string) error { return nil }

func (m *memStorage) SetStatus(_ context.Context, _ string, status store.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *memStorage) SaveSnapshot(_ context.Context, id string, snap common.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saveErrs) > 0 {
		err := m.saveErrs[0]
		m.saveErrs = m.saveErrs[1:]
		return err
	}
	m.snaps[id] = snap
	return nil
}

func (m *memStorage) LoadSnapshot(_ context.Context, id string) (common.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[id]
	if !ok {
		return common.Snapshot{}, store.ErrNotFound
	}
	return snap, nil
}

func TestCompileToStore(t *testing.T) {
	l := memLoader{
		"entry.csv": testEntrySyntax,
		"link.csv":  testLinkSyntax,
		"data.csv":  header + "Smith__2000__J,Kay__1990__J,,\n",
	}
	ctx := context.Background()
	s := newMemStorage()
	s.saveErrs = []error{errors.New("connection reset")}

	if err := newClient(t).CompileToStore(ctx, CompileInput{Files: files(l)}, s, "abc"); err != nil {
		t.Fatalf("CompileToStore: %v", err)
	}
	if want := []store.Status{store.StatusCompiling, store.StatusReady}; !reflect.DeepEqual(s.statuses, want) {
		t.Fatalf("statuses = %v, want %v", s.statuses, want)
	}

	r, err := LoadResolved(ctx, s, "abc")
	if err != nil {
		t.Fatalf("LoadResolved: %v", err)
	}
	if !hasEdge(r, "Smith__2000__J", "Kay__1990__J", "cites") {
		t.Fatal("reloaded store lost the cites edge")
	}
}

func TestCompileToStore_MarksFailed(t *testing.T) {
	l := memLoader{"entry.csv": "not,a,grammar\n", "link.csv": testLinkSyntax, "data.csv": header}
	s := newMemStorage()

	err := newClient(t).CompileToStore(context.Background(), CompileInput{Files: files(l)}, s, "abc")
	if err == nil {
		t.Fatal("expected error")
	}
	if want := []store.Status{store.StatusCompiling, store.StatusFailed}; !reflect.DeepEqual(s.statuses, want) {
		t.Fatalf("statuses = %v, want %v", s.statuses, want)
	}
	if _, err := LoadResolved(context.Background(), s, "abc"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGeneratorNames(t *testing.T) {
	if got := GeneratorNames(); !reflect.DeepEqual(got, []string{"doi", "western_surname"}) {
		t.Fatalf("GeneratorNames = %q", got)
	}
}
