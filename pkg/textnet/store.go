package textnet

import (
	"strconv"
	"time"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
)

// Link and node types every store carries.
const (
	LinkEntry  = "entry"
	LinkTagged = "tagged"
	LinkAlias  = "alias"

	NodeTypeTag = "tag"
)

// RawStore holds the tables produced by parsing: strings, assertions and link
// tags plus both type registries. It only ever grows.
//
// A RawStore is not safe for concurrent mutation; ids are positional and
// assigned by the single writer.
type RawStore struct {
	NodeTypes *TypeRegistry
	LinkTypes *TypeRegistry

	strings    []common.String
	index      map[string]common.StringID
	assertions []common.Assertion
	linkTags   []common.LinkTag

	now func() time.Time
}

// NewRawStore creates an empty store with the structural link types
// registered.
func NewRawStore() *RawStore {
	s := &RawStore{
		NodeTypes: NewTypeRegistry("node type"),
		LinkTypes: NewTypeRegistry("link type"),
		index:     make(map[string]common.StringID),
		now:       time.Now,
	}
	s.LinkTypes.Insert(LinkEntry, "links an input text to each entry it contains", false)
	s.LinkTypes.Insert(LinkTagged, "links a string to one of its free-form tags", false)
	return s
}

// SetClock replaces the source of insertion timestamps.
func (s *RawStore) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// InternString returns the id of text, inserting it with nodeType if it is
// not present yet. The first occurrence of a text decides its node type.
func (s *RawStore) InternString(text string, nodeType common.TypeID) common.StringID {
	if id, ok := s.index[text]; ok {
		return id
	}
	id := common.StringID(len(s.strings))
	s.strings = append(s.strings, common.String{
		ID:           id,
		Text:         text,
		NodeTypeID:   nodeType,
		NodeID:       common.NoNode,
		DateInserted: s.now(),
	})
	s.index[text] = id
	return id
}

// StringID returns the id of text if it has been interned.
func (s *RawStore) StringID(text string) (common.StringID, bool) {
	id, ok := s.index[text]
	return id, ok
}

// LookupString returns the string row holding text.
func (s *RawStore) LookupString(text string) (common.String, error) {
	id, ok := s.index[text]
	if !ok {
		return common.String{}, &common.LookupError{Kind: "string", Key: text}
	}
	return s.strings[id], nil
}

// StringIDs resolves a selector of literal texts to string ids.
func (s *RawStore) StringIDs(sel common.Selector) ([]common.StringID, error) {
	texts := sel.Values()
	out := make([]common.StringID, 0, len(texts))
	for _, text := range texts {
		id, ok := s.index[text]
		if !ok {
			return nil, &common.LookupError{Kind: "string", Key: text}
		}
		out = append(out, id)
	}
	return out, nil
}

// String returns the row for id.
func (s *RawStore) String(id common.StringID) (common.String, error) {
	if id < 0 || int(id) >= len(s.strings) {
		return common.String{}, &common.LookupError{Kind: "string", Key: strconv.FormatInt(int64(id), 10), Msg: "unknown id"}
	}
	return s.strings[id], nil
}

// Text returns the literal of id, or "" for a null or unknown id.
func (s *RawStore) Text(id common.StringID) string {
	if id < 0 || int(id) >= len(s.strings) {
		return ""
	}
	return s.strings[id].Text
}

// NodeTypeOf returns the node type of string id.
func (s *RawStore) NodeTypeOf(id common.StringID) common.TypeID {
	if id < 0 || int(id) >= len(s.strings) {
		return common.NoType
	}
	return s.strings[id].NodeTypeID
}

// Strings returns the strings table. The slice must not be modified.
func (s *RawStore) Strings() []common.String { return s.strings }

// Assertions returns the assertions table. The slice must not be modified.
func (s *RawStore) Assertions() []common.Assertion { return s.assertions }

// LinkTags returns the link-tag table. The slice must not be modified.
func (s *RawStore) LinkTags() []common.LinkTag { return s.linkTags }

// AddAssertion appends an assertion and returns its id. Every non-null string
// reference must exist.
func (s *RawStore) AddAssertion(inp, src, tgt, ref common.StringID, linkType common.TypeID) (common.AssertionID, error) {
	for _, id := range []common.StringID{inp, src, tgt, ref} {
		if id == common.NoString {
			continue
		}
		if id < 0 || int(id) >= len(s.strings) {
			return 0, &common.LookupError{Kind: "string", Key: strconv.FormatInt(int64(id), 10), Msg: "assertion references unknown string"}
		}
	}
	if _, err := s.LinkTypes.Get(linkType); err != nil {
		return 0, err
	}
	id := common.AssertionID(len(s.assertions))
	s.assertions = append(s.assertions, common.Assertion{
		ID:           id,
		InpStringID:  inp,
		SrcStringID:  src,
		TgtStringID:  tgt,
		RefStringID:  ref,
		LinkTypeID:   linkType,
		DateInserted: s.now(),
	})
	return id, nil
}

// AddLinkTag attaches tag to assertion.
func (s *RawStore) AddLinkTag(assertion common.AssertionID, tag common.StringID) error {
	if assertion < 0 || int(assertion) >= len(s.assertions) {
		return &common.LookupError{Kind: "assertion", Key: strconv.FormatInt(int64(assertion), 10), Msg: "unknown id"}
	}
	if tag < 0 || int(tag) >= len(s.strings) {
		return &common.LookupError{Kind: "string", Key: strconv.FormatInt(int64(tag), 10), Msg: "unknown id"}
	}
	s.linkTags = append(s.linkTags, common.LinkTag{AssertionID: assertion, TagStringID: tag})
	return nil
}

// StringsByNodeType returns the ids of all strings whose node type is
// selected, in id order.
func (s *RawStore) StringsByNodeType(sel common.Selector) ([]common.StringID, error) {
	ids, err := s.NodeTypes.IDs(sel)
	if err != nil {
		return nil, err
	}
	want := make(map[common.TypeID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]common.StringID, 0)
	for _, str := range s.strings {
		if _, ok := want[str.NodeTypeID]; ok {
			out = append(out, str.ID)
		}
	}
	return out, nil
}

// AssertionsByLinkType returns all assertions whose link type is selected.
func (s *RawStore) AssertionsByLinkType(sel common.Selector) ([]common.Assertion, error) {
	ids, err := s.LinkTypes.IDs(sel)
	if err != nil {
		return nil, err
	}
	want := make(map[common.TypeID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]common.Assertion, 0)
	for _, a := range s.assertions {
		if _, ok := want[a.LinkTypeID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// AssertionsByInput returns every assertion made by the input string id.
func (s *RawStore) AssertionsByInput(inp common.StringID) []common.Assertion {
	out := make([]common.Assertion, 0)
	for _, a := range s.assertions {
		if a.InpStringID == inp {
			out = append(out, a)
		}
	}
	return out
}

// TagsOf returns the tag string ids attached to assertion, in insertion order.
func (s *RawStore) TagsOf(assertion common.AssertionID) []common.StringID {
	out := make([]common.StringID, 0)
	for _, lt := range s.linkTags {
		if lt.AssertionID == assertion {
			out = append(out, lt.TagStringID)
		}
	}
	return out
}

// Clone returns a deep copy that can be extended without touching s.
func (s *RawStore) Clone() *RawStore {
	c := &RawStore{
		NodeTypes:  s.NodeTypes.clone(),
		LinkTypes:  s.LinkTypes.clone(),
		strings:    append([]common.String(nil), s.strings...),
		index:      make(map[string]common.StringID, len(s.index)),
		assertions: append([]common.Assertion(nil), s.assertions...),
		linkTags:   append([]common.LinkTag(nil), s.linkTags...),
		now:        s.now,
	}
	for k, v := range s.index {
		c.index[k] = v
	}
	return c
}

// Snapshot returns the raw tables in serializable form.
func (s *RawStore) Snapshot() common.Snapshot {
	return common.Snapshot{
		NodeTypes:  s.NodeTypes.All(),
		LinkTypes:  s.LinkTypes.All(),
		Strings:    append([]common.String(nil), s.strings...),
		Assertions: append([]common.Assertion(nil), s.assertions...),
		LinkTags:   append([]common.LinkTag(nil), s.linkTags...),
	}
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
