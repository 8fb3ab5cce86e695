package shorthand

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/bibliograph/internal/util"
	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/syntax"
	"github.com/OFFIS-RIT/bibliograph/pkg/textnet"
)

// Provenance types written by every parse.
const (
	NodeTypeOperation   = "_operation"
	NodeTypeLiteralCSV  = "_literal_csv"
	NodeTypeLiteralJSON = "_literal_json"

	LinkShorthandData       = "shorthand_data"
	LinkShorthandEntrySyn   = "shorthand_entry_syntax"
	LinkShorthandLinkSyn    = "shorthand_link_syntax"
	LinkShorthandParameters = "shorthand_parameters"
)

// Parser turns shorthand text into assertions according to an entry syntax
// and an optional link syntax.
type Parser struct {
	opts          Options
	entry         *syntax.EntrySyntax
	link          *syntax.LinkSyntax
	entryText     string
	linkText      string
	defaultPrefix string
}

type NewParserParams struct {
	EntrySyntax string
	// LinkSyntax may be empty; rows then only link through overrides.
	LinkSyntax string
	Options    Options
}

// NewParser validates both grammars and returns a ready parser.
func NewParser(params NewParserParams) (*Parser, error) {
	opts := params.Options.withDefaults()

	entry, err := syntax.ValidateEntrySyntax(params.EntrySyntax, syntax.EntryOptions{
		CaseSensitive:       opts.CaseSensitive,
		AllowRedundantItems: opts.AllowRedundantItems,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid entry syntax: %w", err)
	}

	var link *syntax.LinkSyntax
	if strings.TrimSpace(params.LinkSyntax) != "" {
		link, err = syntax.ValidateLinkSyntax(params.LinkSyntax, entry, opts.CaseSensitive)
		if err != nil {
			return nil, fmt.Errorf("invalid link syntax: %w", err)
		}
	}

	prefix := entry.Fold(opts.DefaultEntryPrefix)
	if prefix == "" {
		prefix = entry.Prefixes()[0]
	} else if _, ok := entry.Group(prefix); !ok {
		return nil, &common.GrammarError{
			Grammar: "entry",
			Column:  syntax.ColEntryPrefix,
			Msg:     "default entry prefix " + prefix + " is not declared",
		}
	}

	return &Parser{
		opts:          opts,
		entry:         entry,
		link:          link,
		entryText:     params.EntrySyntax,
		linkText:      params.LinkSyntax,
		defaultPrefix: prefix,
	}, nil
}

func (p *Parser) Options() Options { return p.opts }

func (p *Parser) EntrySyntax() *syntax.EntrySyntax { return p.entry }

// LinkSyntax returns the link grammar or nil.
func (p *Parser) LinkSyntax() *syntax.LinkSyntax { return p.link }

// DefaultPrefix is the entry prefix applied to unprefixed entries.
func (p *Parser) DefaultPrefix() string { return p.defaultPrefix }

// Parse reads text into a new store.
func (p *Parser) Parse(text string) (*textnet.RawStore, error) {
	store := textnet.NewRawStore()
	if err := p.ParseInto(store, text); err != nil {
		return nil, err
	}
	return store, nil
}

// ParseInto appends the assertions read from text to store. Every row is
// parsed before the first write, so a *common.ParseError leaves the store
// untouched.
func (p *Parser) ParseInto(store *textnet.RawStore, text string) error {
	rows, err := Normalize(text, p.opts)
	if err != nil {
		return err
	}
	return p.build(store, text, rows)
}

type record struct {
	row      Row
	left     *Entry
	right    *Entry
	ref      *Entry
	override string
	tags     []string
}

func (p *Parser) build(store *textnet.RawStore, data string, rows []Row) error {
	cache := make(map[string]*Entry)
	parse := func(line int, text string) (*Entry, error) {
		if text == "" {
			return nil, nil
		}
		if e, ok := cache[text]; ok {
			return e, nil
		}
		e, err := p.ParseEntry(text)
		if err != nil {
			var pe *common.ParseError
			if errors.As(err, &pe) && pe.Row == 0 {
				pe.Row = line
			}
			return nil, err
		}
		cache[text] = e
		return e, nil
	}

	records := make([]record, 0, len(rows))
	for _, r := range rows {
		rec := record{row: r}
		var err error
		if rec.left, err = parse(r.Line, r.Left); err != nil {
			return err
		}
		if rec.right, err = parse(r.Line, r.Right); err != nil {
			return err
		}
		if rec.ref, err = parse(r.Line, r.Reference); err != nil {
			return err
		}
		rec.override, rec.tags = p.linkTags(r.LinkTags)
		records = append(records, rec)
	}

	w, err := p.newWriter(store, data)
	if err != nil {
		return err
	}
	for i := range records {
		if err := w.record(&records[i]); err != nil {
			return fmt.Errorf("failed to write row %d: %w", records[i].row.Line, err)
		}
	}

	logger.Debug("[Shorthand][Parse] Parsed shorthand text",
		"rows", len(records),
		"entries", len(w.emitted),
		"strings", len(store.Strings()),
		"assertions", len(store.Assertions()),
	)
	return nil
}

// linkTags splits the link tag cell into an optional link type override,
// written as lt<separator><name>, and free tags. Only the first override
// counts; later ones are kept as tags.
func (p *Parser) linkTags(cell string) (string, []string) {
	marker := "lt" + p.opts.ItemSeparator
	override := ""
	tags := make([]string, 0)
	for _, tok := range strings.Fields(cell) {
		if override == "" && strings.HasPrefix(common.Casefold(tok), marker) && len(tok) > len(marker) {
			override = p.entry.Fold(Unescape(tok[len(marker):]))
			continue
		}
		tags = append(tags, Unescape(tok))
	}
	return override, tags
}

type operationRecord struct {
	Operation string `json:"operation"`
	ID        string `json:"id"`
}

type provLink struct {
	src, tgt common.StringID
	link     string
}

type writer struct {
	p *Parser
	s *textnet.RawStore

	inp  common.StringID
	data common.StringID

	nullType common.TypeID
	tagType  common.TypeID
	entryLT  common.TypeID
	taggedLT common.TypeID

	emitted   map[string]common.StringID
	redundant map[[3]int64]struct{}
	dup       map[string]struct{}
}

func (p *Parser) newWriter(s *textnet.RawStore, data string) (*writer, error) {
	opID := p.opts.OperationID
	if opID == "" {
		id, err := util.NewID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate operation id: %w", err)
		}
		opID = id
	}
	op, err := json.Marshal(operationRecord{Operation: "parse_shorthand", ID: opID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode operation: %w", err)
	}
	params, err := json.Marshal(p.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parameters: %w", err)
	}

	w := &writer{
		p:         p,
		s:         s,
		nullType:  s.NodeTypes.Insert(p.opts.MissingNodeType, "explicitly missing item", true),
		tagType:   s.NodeTypes.Insert(textnet.NodeTypeTag, "free-form tag", false),
		emitted:   make(map[string]common.StringID),
		redundant: make(map[[3]int64]struct{}),
	}
	w.entryLT, _ = s.LinkTypes.Lookup(textnet.LinkEntry)
	w.taggedLT, _ = s.LinkTypes.Lookup(textnet.LinkTagged)
	if p.entry.Redundant {
		w.dup = p.entry.DuplicatedPairs()
	}

	opType := s.NodeTypes.Insert(NodeTypeOperation, "record of an operation on the store", false)
	csvType := s.NodeTypes.Insert(NodeTypeLiteralCSV, "verbatim delimited text", false)
	jsonType := s.NodeTypes.Insert(NodeTypeLiteralJSON, "verbatim JSON document", false)

	w.inp = s.InternString(string(op), opType)
	w.data = s.InternString(data, csvType)

	prov := []provLink{
		{w.inp, w.data, LinkShorthandData},
		{w.data, s.InternString(p.entryText, csvType), LinkShorthandEntrySyn},
	}
	if p.linkText != "" {
		prov = append(prov, provLink{w.data, s.InternString(p.linkText, csvType), LinkShorthandLinkSyn})
	}
	prov = append(prov, provLink{w.data, s.InternString(string(params), jsonType), LinkShorthandParameters})

	for _, a := range prov {
		lt := s.LinkTypes.Insert(a.link, "", false)
		if _, err := s.AddAssertion(w.inp, a.src, a.tgt, w.inp, lt); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *writer) record(rec *record) error {
	var ids [3]common.StringID
	for i, e := range []*Entry{rec.left, rec.right, rec.ref} {
		ids[i] = common.NoString
		if e == nil {
			continue
		}
		id, err := w.entry(e)
		if err != nil {
			return err
		}
		ids[i] = id
	}
	if rec.left == nil || rec.right == nil {
		return nil
	}
	return w.links(rec, ids[0], ids[1], ids[2])
}

// entry writes an entry string with its items and tags. Each distinct entry
// is written once per parse.
func (w *writer) entry(e *Entry) (common.StringID, error) {
	if id, ok := w.emitted[e.Text]; ok {
		return id, nil
	}
	s := w.s
	eid := s.InternString(e.Text, s.NodeTypes.Insert(e.NodeType, "", false))
	w.emitted[e.Text] = eid

	if _, err := s.AddAssertion(w.inp, w.data, eid, w.data, w.entryLT); err != nil {
		return eid, err
	}

	for _, it := range e.Items {
		nt := w.nullType
		if !it.Missing {
			nt = s.NodeTypes.Insert(it.NodeType, "", false)
		}
		tid := s.InternString(it.Value, nt)
		if it.LinkType == "" {
			continue
		}
		lt := s.LinkTypes.Insert(it.LinkType, "", false)
		if w.skipRedundant(it, eid, tid, lt) {
			continue
		}
		aid, err := s.AddAssertion(w.inp, eid, tid, w.data, lt)
		if err != nil {
			return eid, err
		}
		if it.ListPosition > 0 {
			if err := s.AddLinkTag(aid, s.InternString(strconv.Itoa(it.ListPosition), w.tagType)); err != nil {
				return eid, err
			}
		}
	}

	for _, tag := range e.Tags {
		if _, err := s.AddAssertion(w.inp, eid, s.InternString(tag, w.tagType), w.data, w.taggedLT); err != nil {
			return eid, err
		}
	}
	return eid, nil
}

// skipRedundant keeps only the first default missing item per entry and
// link type when a grammar repeats a node and link type pair.
func (w *writer) skipRedundant(it Item, src, tgt common.StringID, lt common.TypeID) bool {
	if w.dup == nil || !it.Missing || it.Value != w.p.opts.MissingTokens[0] {
		return false
	}
	if _, ok := w.dup[it.LinkType]; !ok {
		return false
	}
	key := [3]int64{int64(src), int64(tgt), int64(lt)}
	if _, seen := w.redundant[key]; seen {
		return true
	}
	w.redundant[key] = struct{}{}
	return false
}
