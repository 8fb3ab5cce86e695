package shorthand

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
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

func newTestParser(t *testing.T, opts Options) *Parser {
	t.Helper()
	opts.OperationID = "op-test"
	p, err := NewParser(NewParserParams{
		EntrySyntax: testEntrySyntax,
		LinkSyntax:  testLinkSyntax,
		Options:     opts,
	})
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	return p
}

// links renders the assertions of one link type as "src -> tgt".
func links(t *testing.T, s *textnet.RawStore, linkType string) []string {
	t.Helper()
	as, err := s.AssertionsByLinkType(common.Scalar(linkType))
	if err != nil {
		t.Fatalf("AssertionsByLinkType(%s): %v", linkType, err)
	}
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, s.Text(a.SrcStringID)+" -> "+s.Text(a.TgtStringID))
	}
	return out
}

func tagTexts(s *textnet.RawStore, id common.AssertionID) []string {
	out := make([]string, 0)
	for _, tag := range s.TagsOf(id) {
		out = append(out, s.Text(tag))
	}
	return out
}

func TestSplitUnescaped(t *testing.T) {
	tests := []struct {
		name string
		in   string
		sep  string
		want []string
	}{
		{"Plain", "a__b__c", "__", []string{"a", "b", "c"}},
		{"Escaped", `a\__b__c`, "__", []string{`a\__b`, "c"}},
		{"EscapedBackslash", `a\\__b`, "__", []string{`a\\`, "b"}},
		{"Empty", "", "__", []string{""}},
		{"TrailingEmpty", "a__", "__", []string{"a", ""}},
		{"NoSeparator", "a_b", "", []string{"a_b"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitUnescaped(tc.in, tc.sep)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("SplitUnescaped(%q, %q) = %q, want %q", tc.in, tc.sep, got, tc.want)
			}
		})
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	values := []string{"plain", "a__b", "a___b", `back\slash`, "c#sharp", "_edge_"}
	for _, v := range values {
		escaped := Escape(v, "__", "#")
		parts := SplitUnescaped(escaped, "__")
		if len(parts) != 1 {
			t.Fatalf("escaped %q still splits: %q", v, parts)
		}
		if IndexUnescaped(escaped, "#") >= 0 {
			t.Fatalf("escaped %q still has a comment char: %q", v, escaped)
		}
		if got := Unescape(escaped); got != v {
			t.Fatalf("Unescape(Escape(%q)) = %q", v, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	text := "note,,,\n" + // skipped
		header +
		"Smith__2000,Wu__2001,,\n" +
		",Lee__1999,,# inherits Smith__2000\n" +
		"Solo__1990,,,\n" +
		"# a comment row,,,\n" +
		"Kay__2005,,,\n" +
		",,,\n" +
		"Hash\\#Tag__2002,Cut__2003 # comment,dropped,dropped\n"

	rows, err := Normalize(text, Options{SkipRows: 1})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	got := make([]string, 0, len(rows))
	for _, r := range rows {
		got = append(got, r.Left+"|"+r.Right+"|"+r.LinkTags+"|"+r.Reference)
	}
	want := []string{
		"Smith__2000|Wu__2001||",
		"Smith__2000|Lee__1999||",
		"Solo__1990|||",
		"Kay__2005|||",
		"Hash#Tag__2002|Cut__2003||",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected rows\n got: %q\nwant: %q", got, want)
	}
}

func TestNormalize_DropsLeftOnlyRowFollowedByInheritors(t *testing.T) {
	rows, err := Normalize(header+"Smith__2000,,,\n,Wu__2001,,\n", Options{})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(rows) != 1 || rows[0].Right != "Wu__2001" || rows[0].Left != "Smith__2000" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"MissingColumn", "left_entry,right_entry\nA,B\n"},
		{"NothingToInherit", header + ",Wu__2001,,\n"},
		{"TooWide", strings.Repeat("c,", MaxColumns) + "c\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Normalize(tc.text, Options{}); !errors.Is(err, common.ErrParse) {
				t.Fatalf("expected parse error, got %v", err)
			}
		})
	}
}

func TestParseEntry_Positional(t *testing.T) {
	p := newTestParser(t, Options{})
	e, err := p.ParseEntry("Smith_Wu__2000__Annals__ seminal open")
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if e.Prefix != "wrk" || e.NodeType != "work" || e.SelfDescriptive {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Text != "Smith_Wu__2000__Annals" {
		t.Fatalf("unexpected entry text %q", e.Text)
	}
	if !reflect.DeepEqual(e.Tags, []string{"seminal", "open"}) {
		t.Fatalf("unexpected tags %q", e.Tags)
	}

	want := []Item{
		{Label: "0", Position: "0", Value: "Smith", NodeType: "actor", LinkType: "author", ListPosition: 1},
		{Label: "0", Position: "0", Value: "Wu", NodeType: "actor", LinkType: "author", ListPosition: 2},
		{Label: "1", Position: "1", Value: "2000", NodeType: "date", LinkType: "published"},
		{Label: "2", Position: "2", Value: "Annals", NodeType: "work", LinkType: "supertitle"},
	}
	if !reflect.DeepEqual(e.Items, want) {
		t.Fatalf("unexpected items\n got: %+v\nwant: %+v", e.Items, want)
	}
}

func TestParseEntry_MissingAndSpaces(t *testing.T) {
	p := newTestParser(t, Options{SpaceChar: "~"})
	e, err := p.ParseEntry("Van~Dyke__!")
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if e.Items[0].Value != "Van Dyke" {
		t.Fatalf("space char not replaced: %q", e.Items[0].Value)
	}
	missing := e.Items[1]
	if !missing.Missing || missing.NodeType != "missing" || missing.LinkType != "published" {
		t.Fatalf("unexpected missing item %+v", missing)
	}
}

func TestParseEntry_Prefixed(t *testing.T) {
	p := newTestParser(t, Options{})

	e, err := p.ParseEntry("ref__d:10.1000/x__1999")
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if e.Prefix != "ref" {
		t.Fatalf("unexpected prefix %q", e.Prefix)
	}
	doi := e.ItemsAt("0")
	if len(doi) != 1 || doi[0].Label != "d" || doi[0].Value != "10.1000/x" || doi[0].LinkType != "doi" {
		t.Fatalf("unexpected item %+v", doi)
	}

	e, err = p.ParseEntry("REF__!__1999")
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if it := e.ItemsAt("0"); len(it) != 1 || !it[0].Missing || it[0].LinkType != "author" {
		t.Fatalf("bare missing token must take the first alternative: %+v", it)
	}

	if _, err := p.ParseEntry("ref__x:Smith__1999"); !errors.Is(err, common.ErrParse) {
		t.Fatalf("expected parse error for unknown item prefix, got %v", err)
	}
}

func TestParseEntry_SelfDescriptive(t *testing.T) {
	p := newTestParser(t, Options{})
	e, err := p.ParseEntry("____Work__author_actor_Smith__published_date_2000__doi_identifier_10.1/a_b")
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if !e.SelfDescriptive || e.NodeType != "work" || e.Prefix != "" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if len(e.Items) != 3 {
		t.Fatalf("expected 3 items, got %+v", e.Items)
	}
	if last := e.Items[2]; last.Value != "10.1/a_b" || last.NodeType != "identifier" || last.LinkType != "doi" {
		t.Fatalf("value must keep the delimiter after the second split: %+v", last)
	}

	if _, err := p.ParseEntry("____work__author_Smith"); !errors.Is(err, common.ErrParse) {
		t.Fatalf("expected parse error for short item, got %v", err)
	}
}

func TestParseEntry_TooManyItems(t *testing.T) {
	p := newTestParser(t, Options{})
	_, err := p.ParseEntry("a__b__c__d")
	var pe *common.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParse_SingleEntry(t *testing.T) {
	p := newTestParser(t, Options{})
	s, err := p.Parse(header + "Auth1__2000,,,\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := links(t, s, "author"); !reflect.DeepEqual(got, []string{"Auth1__2000 -> Auth1"}) {
		t.Fatalf("unexpected author links %q", got)
	}
	if got := links(t, s, "published"); !reflect.DeepEqual(got, []string{"Auth1__2000 -> 2000"}) {
		t.Fatalf("unexpected published links %q", got)
	}
	if got := links(t, s, textnet.LinkEntry); len(got) != 1 || !strings.HasSuffix(got[0], "-> Auth1__2000") {
		t.Fatalf("unexpected entry links %q", got)
	}

	author, _ := s.AssertionsByLinkType(common.Scalar("author"))
	if tags := tagTexts(s, author[0].ID); !reflect.DeepEqual(tags, []string{"1"}) {
		t.Fatalf("expected list position tag, got %q", tags)
	}

	entry, err := s.LookupString("Auth1__2000")
	if err != nil {
		t.Fatal(err)
	}
	if s.NodeTypes.Name(entry.NodeTypeID) != "work" {
		t.Fatalf("entry typed %q", s.NodeTypes.Name(entry.NodeTypeID))
	}
}

func TestParse_Provenance(t *testing.T) {
	p := newTestParser(t, Options{})
	text := header + "Auth1__2000,,,\n"
	s, err := p.Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	op, err := s.LookupString(`{"operation":"parse_shorthand","id":"op-test"}`)
	if err != nil {
		t.Fatalf("operation string missing: %v", err)
	}
	for _, a := range s.Assertions() {
		if a.InpStringID != op.ID {
			t.Fatalf("assertion %d not attributed to the operation", a.ID)
		}
	}
	for _, lt := range []string{LinkShorthandData, LinkShorthandEntrySyn, LinkShorthandLinkSyn, LinkShorthandParameters} {
		if got := links(t, s, lt); len(got) != 1 {
			t.Fatalf("expected one %s assertion, got %q", lt, got)
		}
	}
	data, _ := s.LookupString(text)
	if s.NodeTypes.Name(data.NodeTypeID) != NodeTypeLiteralCSV {
		t.Fatalf("input text typed %q", s.NodeTypes.Name(data.NodeTypeID))
	}
}

func TestParse_Links(t *testing.T) {
	p := newTestParser(t, Options{})
	text := header +
		"Smith__2000,Wu__2001,influential,\n" +
		",ref__d:10.1/x,lt__reviews extra,Kay__1990\n"
	s, err := p.Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := links(t, s, "cites"); !reflect.DeepEqual(got, []string{"Smith__2000 -> Wu__2001"}) {
		t.Fatalf("unexpected cites links %q", got)
	}
	cites, _ := s.AssertionsByLinkType(common.Scalar("cites"))
	if tags := tagTexts(s, cites[0].ID); !reflect.DeepEqual(tags, []string{"influential"}) {
		t.Fatalf("unexpected link tags %q", tags)
	}
	if s.Text(cites[0].RefStringID) != text {
		t.Fatal("links without reference must point at the input text")
	}

	reviews, _ := s.AssertionsByLinkType(common.Scalar("reviews"))
	if len(reviews) != 1 {
		t.Fatalf("expected one overridden link, got %d", len(reviews))
	}
	if s.Text(reviews[0].TgtStringID) != "ref__d:10.1/x" || s.Text(reviews[0].RefStringID) != "Kay__1990" {
		t.Fatalf("unexpected override assertion %+v", reviews[0])
	}
	if tags := tagTexts(s, reviews[0].ID); !reflect.DeepEqual(tags, []string{"extra"}) {
		t.Fatalf("unexpected override tags %q", tags)
	}

	// The reference is parsed as an entry of its own.
	if got := links(t, s, "published"); !contains(got, "Kay__1990 -> 1990") {
		t.Fatalf("reference entry items missing: %q", got)
	}
}

func TestParse_ListModes(t *testing.T) {
	link := `left_entry_prefix,right_entry_prefix,source_position,target_position,dflt_ref_position,link_type,list_mode
wrk,wrk,l0,r0,l,coauthor_of,m:m
wrk,wrk,l0,r0,,paired_with,1:1
`
	p, err := NewParser(NewParserParams{EntrySyntax: testEntrySyntax, LinkSyntax: link, Options: Options{OperationID: "op"}})
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	s, err := p.Parse(header + "A_B__2000,C_D_E__2001,,\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := links(t, s, "coauthor_of")
	sort.Strings(got)
	want := []string{"A -> C", "A -> D", "A -> E", "B -> C", "B -> D", "B -> E"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("m:m links\n got: %q\nwant: %q", got, want)
	}
	as, _ := s.AssertionsByLinkType(common.Scalar("coauthor_of"))
	if s.Text(as[0].RefStringID) != "A_B__2000" {
		t.Fatalf("default reference position ignored: %q", s.Text(as[0].RefStringID))
	}

	if got := links(t, s, "paired_with"); !reflect.DeepEqual(got, []string{"A -> C", "B -> D"}) {
		t.Fatalf("1:1 links %q", got)
	}
	paired, _ := s.AssertionsByLinkType(common.Scalar("paired_with"))
	if tags := tagTexts(s, paired[1].ID); !reflect.DeepEqual(tags, []string{"2"}) {
		t.Fatalf("target list position must be tagged, got %q", tags)
	}
}

func TestParse_SelfDescriptiveLinksNeedOverride(t *testing.T) {
	p := newTestParser(t, Options{})
	s, err := p.Parse(header +
		"____work__author_actor_Smith,Wu__2001,,\n" +
		"____work__author_actor_Lee,Wu__2001,lt__cites,\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := links(t, s, "cites"); !reflect.DeepEqual(got, []string{"____work__author_actor_Lee -> Wu__2001"}) {
		t.Fatalf("unexpected cites links %q", got)
	}
}

func TestParse_ErrorLeavesStoreUnchanged(t *testing.T) {
	p := newTestParser(t, Options{})
	s, err := p.Parse(header + "Auth1__2000,,,\n")
	if err != nil {
		t.Fatal(err)
	}
	strs, asserts := len(s.Strings()), len(s.Assertions())

	err = p.ParseInto(s, header+"Good__2001,,,\nBad__1__2__3,,,\n")
	var pe *common.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Row != 2 {
		t.Fatalf("expected row 2, got %d", pe.Row)
	}
	if len(s.Strings()) != strs || len(s.Assertions()) != asserts {
		t.Fatal("failed parse modified the store")
	}
}

func TestParse_RepeatedEntryWrittenOnce(t *testing.T) {
	p := newTestParser(t, Options{})
	s, err := p.Parse(header + "Smith__2000,Wu__2001,,\nKay__2002,Wu__2001,,\n")
	if err != nil {
		t.Fatal(err)
	}
	if got := links(t, s, "published"); !reflect.DeepEqual(got, []string{"Smith__2000 -> 2000", "Wu__2001 -> 2001", "Kay__2002 -> 2002"}) {
		t.Fatalf("unexpected published links %q", got)
	}
}

func TestParse_AllowRedundantItems(t *testing.T) {
	entry := `entry_prefix,entry_node_type,item_label,item_node_type,item_link_type
wrk,work,0,actor,author
wrk,work,1,work,volume
wrk,work,2,work,volume
`
	p, err := NewParser(NewParserParams{EntrySyntax: entry, Options: Options{AllowRedundantItems: true, OperationID: "op"}})
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	s, err := p.Parse(header + "Smith__!__!,,,\nLee__V1__V2,,,\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := links(t, s, "volume")
	want := []string{"Smith__!__! -> !", "Lee__V1__V2 -> V1", "Lee__V1__V2 -> V2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("volume links\n got: %q\nwant: %q", got, want)
	}
}

func TestParseItems(t *testing.T) {
	p := newTestParser(t, Options{})
	table := "1,a,d\n" +
		"1999,Smith,\n" +
		"2001,,10.1/x\n" +
		",,\n"
	s, err := p.ParseItems(table, "ref")
	if err != nil {
		t.Fatalf("ParseItems: %v", err)
	}
	got := links(t, s, textnet.LinkEntry)
	if len(got) != 2 || !strings.HasSuffix(got[0], "-> ref__a:Smith__1999") || !strings.HasSuffix(got[1], "-> ref__d:10.1/x__2001") {
		t.Fatalf("unexpected entries %q", got)
	}

	if _, err := p.ParseItems("a,d\nSmith,10.1/x\n", "ref"); !errors.Is(err, common.ErrParse) {
		t.Fatalf("two alternatives for one position must fail, got %v", err)
	}
	if _, err := p.ParseItems("9\nx\n", "ref"); !errors.Is(err, common.ErrParse) {
		t.Fatalf("unknown label must fail, got %v", err)
	}
}

func TestNewParser_Errors(t *testing.T) {
	if _, err := NewParser(NewParserParams{EntrySyntax: "item_label\n"}); !errors.Is(err, common.ErrGrammar) {
		t.Fatalf("expected grammar error for empty syntax, got %v", err)
	}
	_, err := NewParser(NewParserParams{EntrySyntax: testEntrySyntax, Options: Options{DefaultEntryPrefix: "jrn"}})
	if !errors.Is(err, common.ErrGrammar) {
		t.Fatalf("expected grammar error for unknown default prefix, got %v", err)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
