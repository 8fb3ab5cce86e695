package synth

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/resolve"
	"github.com/OFFIS-RIT/bibliograph/pkg/shorthand"
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

const header = "left_entry,right_entry,link_tags_or_override,reference\n"

func newParser(t *testing.T, opts shorthand.Options) *shorthand.Parser {
	t.Helper()
	opts.OperationID = "op-test"
	p, err := shorthand.NewParser(shorthand.NewParserParams{EntrySyntax: testEntrySyntax, Options: opts})
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	return p
}

// compile parses one entry per line and resolves the result.
func compile(t *testing.T, p *shorthand.Parser, params resolve.Params, entries ...string) *textnet.ResolvedStore {
	t.Helper()
	var b strings.Builder
	b.WriteString(header)
	for _, e := range entries {
		b.WriteString(e + ",,,\n")
	}
	raw, err := p.Parse(b.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	params.OperationID = "resolve-test"
	r, err := resolve.Resolve(raw, params)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return r
}

func request(p *shorthand.Parser) Request {
	return Request{
		NodeType:               common.Scalar("work"),
		Syntax:                 p.EntrySyntax(),
		Format:                 p.Options().Format(),
		NameType:               NameFull,
		HideDefaultEntryPrefix: true,
	}
}

func texts(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

// contentStrings returns the texts of every string that is not provenance
// bookkeeping.
func contentStrings(s *textnet.ResolvedStore) []string {
	out := make([]string, 0)
	for _, str := range s.Strings() {
		if strings.HasPrefix(s.NodeTypes.Name(str.NodeTypeID), "_") {
			continue
		}
		out = append(out, str.Text)
	}
	sort.Strings(out)
	return out
}

func TestSynthesize_RoundTrip(t *testing.T) {
	p := newParser(t, shorthand.Options{})
	in := []string{"Smith_Wu__2000__Annals", "Kay__1990__Annals", "Lee__!__Annals"}
	r := compile(t, p, resolve.Params{}, in...)

	entries, err := Synthesize(r, request(p))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := texts(entries); !reflect.DeepEqual(got, in) {
		t.Fatalf("Synthesize = %q, want %q", got, in)
	}

	again := compile(t, p, resolve.Params{}, texts(entries)...)
	if got, want := contentStrings(again), contentStrings(r); !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip strings = %q, want %q", got, want)
	}
}

func TestSynthesize_PrefixPrecedence(t *testing.T) {
	p := newParser(t, shorthand.Options{CaseSensitive: true})
	r := compile(t, p, resolve.Params{
		Aliases:       map[string]string{"work": "key,alias\nref__d:10.1/x__1990,ref__a:Kay__1990\n"},
		CaseSensitive: true,
	}, "ref__d:10.1/x__1990", "ref__a:Kay__1990")

	entries, err := Synthesize(r, request(p))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := texts(entries); !reflect.DeepEqual(got, []string{"ref__a:Kay__1990"}) {
		t.Fatalf("Synthesize = %q", got)
	}
	if entries[0].Prefix != "ref" {
		t.Fatalf("entry prefix %q", entries[0].Prefix)
	}
}

func TestSynthesize_Sorting(t *testing.T) {
	p := newParser(t, shorthand.Options{})
	r := compile(t, p, resolve.Params{}, "Baker__2000__J", "adams__1990__J", "Cole__1995__J")

	tests := []struct {
		name          string
		sortBy        []string
		caseSensitive bool
		want          []string
	}{
		{"NodeOrder", nil, false, []string{"Baker__2000__J", "adams__1990__J", "Cole__1995__J"}},
		{"AuthorCaseSensitive", []string{"0"}, true, []string{"Baker__2000__J", "Cole__1995__J", "adams__1990__J"}},
		{"AuthorFolded", []string{"0"}, false, []string{"adams__1990__J", "Baker__2000__J", "Cole__1995__J"}},
		{"Year", []string{"1"}, false, []string{"adams__1990__J", "Cole__1995__J", "Baker__2000__J"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(p)
			req.SortBy = tt.sortBy
			req.SortCaseSensitive = tt.caseSensitive
			entries, err := Synthesize(r, req)
			if err != nil {
				t.Fatalf("Synthesize: %v", err)
			}
			if got := texts(entries); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Synthesize = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSynthesize_SortPrefixes(t *testing.T) {
	p := newParser(t, shorthand.Options{})
	r := compile(t, p, resolve.Params{}, "ref__a:Kay__1991", "ref__d:10.2/z__1990")

	// The zero request sorts prefixed items by their value alone.
	req := request(p)
	req.SortBy = []string{"0"}
	entries, err := Synthesize(r, req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got, want := texts(entries), []string{"ref__d:10.2/z__1990", "ref__a:Kay__1991"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Synthesize = %q, want %q", got, want)
	}

	req.SortPrefixes = true
	entries, err = Synthesize(r, req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got, want := texts(entries), []string{"ref__a:Kay__1991", "ref__d:10.2/z__1990"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Synthesize with prefixes = %q, want %q", got, want)
	}
}

func TestSynthesize_Escaping(t *testing.T) {
	p := newParser(t, shorthand.Options{SpaceChar: "+"})
	r := compile(t, p, resolve.Params{}, `Smith__2000__Big\__Journal`, "Kay__1990__Issue \\#5", "Lee__1991__New+Series")

	req := request(p)
	entries, err := Synthesize(r, req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	want := []string{`Smith__2000__Big\__Journal`, `Kay__1990__Issue \#5`, "Lee__1991__New Series"}
	if got := texts(entries); !reflect.DeepEqual(got, want) {
		t.Fatalf("Synthesize = %q, want %q", got, want)
	}

	req.FillSpaces = true
	entries, err = Synthesize(r, req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := entries[2].Text; got != "Lee__1991__New+Series" {
		t.Fatalf("filled entry = %q", got)
	}
}

func TestSynthesize_EntryPrefix(t *testing.T) {
	p := newParser(t, shorthand.Options{})
	r := compile(t, p, resolve.Params{}, "Smith__2000__J", "wrk__ref__2001__J")

	req := request(p)
	req.HideDefaultEntryPrefix = false
	entries, err := Synthesize(r, req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := texts(entries); !reflect.DeepEqual(got, []string{"wrk__Smith__2000__J", "wrk__ref__2001__J"}) {
		t.Fatalf("explicit prefixes = %q", got)
	}

	// An author named like an entry prefix keeps the prefix when hidden.
	req.HideDefaultEntryPrefix = true
	entries, err = Synthesize(r, req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := texts(entries); !reflect.DeepEqual(got, []string{"Smith__2000__J", "wrk__ref__2001__J"}) {
		t.Fatalf("hidden prefixes = %q", got)
	}

	req.EntryPrefix = common.Scalar("ref")
	entries, err = Synthesize(r, req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := texts(entries); !reflect.DeepEqual(got, []string{"ref__a:Smith__2000", "ref__a:ref__2001"}) {
		t.Fatalf("ref entries = %q", got)
	}
}

func TestSynthesize_NamesAndTags(t *testing.T) {
	p := newParser(t, shorthand.Options{CaseSensitive: true})
	r := compile(t, p, resolve.Params{
		Aliases:       map[string]string{"actor": "key,alias\nSmith,Smithson\n"},
		CaseSensitive: true,
	}, "Smith__2000__J__ seminal open")

	req := request(p)
	req.NameType = ""
	entries, err := Synthesize(r, req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := texts(entries); !reflect.DeepEqual(got, []string{"Smith__2000__J"}) {
		t.Fatalf("abbreviated = %q", got)
	}

	req.NameType = NameFull
	req.IncludeTags = true
	entries, err = Synthesize(r, req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := texts(entries); !reflect.DeepEqual(got, []string{"Smithson__2000__J__ seminal open"}) {
		t.Fatalf("full with tags = %q", got)
	}
}

func TestSynthesize_NodeSubset(t *testing.T) {
	p := newParser(t, shorthand.Options{})
	r := compile(t, p, resolve.Params{}, "Smith__2000__J", "Kay__1990__J")

	nid, err := r.NodeOfText("Kay__1990__J")
	if err != nil {
		t.Fatal(err)
	}
	author, err := r.NodeOfText("Kay")
	if err != nil {
		t.Fatal(err)
	}
	req := request(p)
	req.NodeType = common.Selector{}
	req.NodeIDs = []common.NodeID{author, nid, nid}
	entries, err := Synthesize(r, req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := texts(entries); !reflect.DeepEqual(got, []string{"Kay__1990__J"}) {
		t.Fatalf("Synthesize = %q", got)
	}
}

func TestSynthesize_Errors(t *testing.T) {
	p := newParser(t, shorthand.Options{})
	r := compile(t, p, resolve.Params{}, "Smith__2000__J")

	tests := []struct {
		name   string
		modify func(*Request)
		lookup bool
	}{
		{"NoSyntax", func(r *Request) { r.Syntax = nil }, false},
		{"BadNameType", func(r *Request) { r.NameType = "short" }, false},
		{"UnknownNode", func(r *Request) { r.NodeIDs = []common.NodeID{9999} }, true},
		{"UnknownSortPosition", func(r *Request) { r.SortBy = []string{"7"} }, true},
		{"UnknownNodeType", func(r *Request) { r.NodeType = common.Scalar("journal") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(p)
			tt.modify(&req)
			_, err := Synthesize(r, req)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.lookup && !errors.Is(err, common.ErrLookup) {
				t.Fatalf("expected lookup error, got %v", err)
			}
		})
	}
}

func TestFormatFromStore(t *testing.T) {
	p := newParser(t, shorthand.Options{ItemSeparator: "//"})
	r := compile(t, p, resolve.Params{}, "Smith//2000//J")

	formats, err := FormatFromStore(r.RawStore)
	if err != nil {
		t.Fatalf("FormatFromStore: %v", err)
	}
	if len(formats) != 1 {
		t.Fatalf("expected one format, got %d", len(formats))
	}
	if formats[0].EntrySyntax != testEntrySyntax || formats[0].Options.ItemSeparator != "//" {
		t.Fatalf("unexpected format %+v", formats[0])
	}

	entries, err := SynthesizeFromStore(r, Request{
		NodeType:               common.Scalar("work"),
		NameType:               NameFull,
		HideDefaultEntryPrefix: true,
	})
	if err != nil {
		t.Fatalf("SynthesizeFromStore: %v", err)
	}
	if got := texts(entries); !reflect.DeepEqual(got, []string{"Smith//2000//J"}) {
		t.Fatalf("SynthesizeFromStore = %q", got)
	}

	if _, err := FormatFromStore(textnet.NewRawStore()); err == nil {
		t.Fatal("expected error for a store without parses")
	}
}
