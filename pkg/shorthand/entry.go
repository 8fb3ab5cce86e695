package shorthand

import (
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/syntax"
)

// Item is one value read from an entry.
type Item struct {
	// Label is the grammar row the value was read with: a position or a
	// prefixed alternative.
	Label    string
	Position string
	Value    string
	NodeType string
	LinkType string
	// ListPosition numbers list elements from the configured base. It is
	// zero for values that are not list elements.
	ListPosition int
	Missing      bool
}

// Entry is a parsed shorthand entry.
type Entry struct {
	// Text is the entry as written, without its tag segment.
	Text            string
	Prefix          string
	NodeType        string
	SelfDescriptive bool
	Items           []Item
	Tags            []string
}

// ItemsAt returns the items read with label, matching either the position
// or the alternative label.
func (e *Entry) ItemsAt(label string) []Item {
	out := make([]Item, 0, 1)
	for _, it := range e.Items {
		if it.Label == label || it.Position == label {
			out = append(out, it)
		}
	}
	return out
}

// ParseEntry reads a single entry string.
func (p *Parser) ParseEntry(text string) (*Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &common.ParseError{Msg: "entry is empty"}
	}
	sep := p.opts.ItemSeparator
	if strings.HasPrefix(text, sep+sep) {
		return p.parseSelfDescriptive(text)
	}

	segments := SplitUnescaped(text, sep)
	segments, tags := splitTags(segments)
	e := &Entry{Text: strings.Join(segments, sep), Tags: tags}

	prefix := p.defaultPrefix
	if len(segments) > 1 {
		if _, ok := p.entry.Group(Unescape(segments[0])); ok {
			prefix = p.entry.Fold(Unescape(segments[0]))
			segments = segments[1:]
		}
	}
	group, ok := p.entry.Group(prefix)
	if !ok {
		return nil, &common.ParseError{Msg: "entry prefix " + strconv.Quote(prefix) + " is not declared"}
	}
	e.Prefix = group.Prefix
	e.NodeType = group.EntryNodeType
	if e.NodeType == "" {
		e.NodeType = DefaultEntryNodeType
	}

	positions := group.Positions()
	if len(segments) > len(positions) {
		return nil, &common.ParseError{Msg: "entry " + strconv.Quote(text) + " has " + strconv.Itoa(len(segments)) +
			" items, entry prefix " + strconv.Quote(group.Prefix) + " declares " + strconv.Itoa(len(positions))}
	}

	for i, seg := range segments {
		if seg == "" {
			continue
		}
		items, err := p.parseItem(group, positions[i], seg)
		if err != nil {
			return nil, err
		}
		e.Items = append(e.Items, items...)
	}
	return e, nil
}

func (p *Parser) parseItem(group *syntax.Group, position, seg string) ([]Item, error) {
	row, _ := group.Row(position)
	alts := group.Alternatives(position)

	if p.isMissing(p.value(seg)) {
		// A bare missing token at a prefixed position takes the link type of
		// the first alternative.
		link := row.ItemLinkType
		if row.IsPrefixed() && len(alts) > 0 {
			link = alts[0].ItemLinkType
		}
		return []Item{{
			Label:    position,
			Position: position,
			Value:    p.value(seg),
			NodeType: p.opts.MissingNodeType,
			LinkType: link,
			Missing:  true,
		}}, nil
	}

	alt := row
	if row.IsPrefixed() {
		idx := IndexUnescaped(seg, row.ItemPrefixSeparator)
		found := false
		if idx >= 0 {
			label := p.entry.Fold(Unescape(seg[:idx]))
			for _, a := range alts {
				if a.ItemLabel == label {
					alt = a
					found = true
					break
				}
			}
		}
		if !found {
			return nil, &common.ParseError{Msg: "item " + strconv.Quote(Unescape(seg)) + " at position " + position +
				" does not start with one of the prefixes " + strings.Join(row.ItemPrefixes, ", ")}
		}
		seg = seg[idx+len(row.ItemPrefixSeparator):]
	}

	// Untyped grammar rows describe text that is not part of the network.
	if alt.ItemNodeType == "" {
		return nil, nil
	}

	if alt.ListDelimiter == "" {
		v := p.value(seg)
		return []Item{p.newItem(alt, position, v, 0)}, nil
	}
	elems := SplitUnescaped(seg, alt.ListDelimiter)
	out := make([]Item, 0, len(elems))
	n := 0
	for _, el := range elems {
		if el == "" {
			continue
		}
		out = append(out, p.newItem(alt, position, p.value(el), p.opts.ListPositionBase+n))
		n++
	}
	return out, nil
}

func (p *Parser) newItem(row syntax.EntryRow, position, value string, listPos int) Item {
	it := Item{
		Label:        row.ItemLabel,
		Position:     position,
		Value:        value,
		NodeType:     row.ItemNodeType,
		LinkType:     row.ItemLinkType,
		ListPosition: listPos,
	}
	if p.isMissing(value) {
		it.NodeType = p.opts.MissingNodeType
		it.Missing = true
	}
	return it
}

// parseSelfDescriptive reads entries of the form
// ____work__author_actor_Smith__published_date_2000 where every item names
// its own link type and node type.
func (p *Parser) parseSelfDescriptive(text string) (*Entry, error) {
	sep := p.opts.ItemSeparator
	segments := SplitUnescaped(text[2*len(sep):], sep)
	segments, tags := splitTags(segments)
	if len(segments) == 0 || segments[0] == "" {
		return nil, &common.ParseError{Msg: "self-descriptive entry " + strconv.Quote(text) + " has no entry node type"}
	}
	e := &Entry{
		Text:            sep + sep + strings.Join(segments, sep),
		NodeType:        p.entry.Fold(Unescape(segments[0])),
		SelfDescriptive: true,
		Tags:            tags,
	}
	for _, seg := range segments[1:] {
		if seg == "" {
			continue
		}
		parts := splitN(seg, p.opts.SelfDescriptiveDelimiter, 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, &common.ParseError{Msg: "self-descriptive item " + strconv.Quote(Unescape(seg)) +
				" is not of the form link" + p.opts.SelfDescriptiveDelimiter + "node" + p.opts.SelfDescriptiveDelimiter + "value"}
		}
		it := Item{
			Label:    p.entry.Fold(Unescape(parts[0])),
			Value:    p.value(parts[2]),
			NodeType: p.entry.Fold(Unescape(parts[1])),
			LinkType: p.entry.Fold(Unescape(parts[0])),
		}
		it.Position = it.Label
		if p.isMissing(it.Value) {
			it.NodeType = p.opts.MissingNodeType
			it.Missing = true
		}
		e.Items = append(e.Items, it)
	}
	return e, nil
}

// splitTags removes a trailing tag segment, one that starts with white
// space, and returns its tags.
func splitTags(segments []string) ([]string, []string) {
	if len(segments) < 2 {
		return segments, nil
	}
	last := segments[len(segments)-1]
	r, _ := utf8.DecodeRuneInString(last)
	if !unicode.IsSpace(r) {
		return segments, nil
	}
	tags := strings.Fields(last)
	for i := range tags {
		tags[i] = Unescape(tags[i])
	}
	return segments[:len(segments)-1], tags
}

// splitN is SplitUnescaped limited to n parts.
func splitN(s, sep string, n int) []string {
	parts := SplitUnescaped(s, sep)
	if len(parts) <= n {
		return parts
	}
	head := slices.Clone(parts[:n-1])
	return append(head, strings.Join(parts[n-1:], sep))
}

func (p *Parser) value(raw string) string {
	v := Unescape(raw)
	if p.opts.SpaceChar != "" {
		v = strings.ReplaceAll(v, p.opts.SpaceChar, " ")
	}
	return v
}

func (p *Parser) isMissing(v string) bool {
	return slices.Contains(p.opts.MissingTokens, v)
}
