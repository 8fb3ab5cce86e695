package shorthand

import (
	"strconv"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/syntax"
)

type endpoint struct {
	id      common.StringID
	listPos int
}

type linkKey struct {
	src, tgt, ref common.StringID
	lt            common.TypeID
}

// links writes the cross-entry assertions of one row. An override applies to
// every rule of the row.
func (w *writer) links(rec *record, leftID, rightID, refID common.StringID) error {
	seen := make(map[linkKey]struct{})
	emit := func(src, tgt endpoint, ref common.StringID, linkType string) error {
		lt := w.s.LinkTypes.Insert(linkType, "", false)
		key := linkKey{src.id, tgt.id, ref, lt}
		if _, dup := seen[key]; dup {
			return nil
		}
		seen[key] = struct{}{}

		aid, err := w.s.AddAssertion(w.inp, src.id, tgt.id, ref, lt)
		if err != nil {
			return err
		}
		for _, tag := range rec.tags {
			if err := w.s.AddLinkTag(aid, w.s.InternString(tag, w.tagType)); err != nil {
				return err
			}
		}
		if tgt.listPos > 0 {
			return w.s.AddLinkTag(aid, w.s.InternString(strconv.Itoa(tgt.listPos), w.tagType))
		}
		return nil
	}

	direct := func() error {
		ref := refID
		if ref == common.NoString {
			ref = w.data
		}
		return emit(endpoint{id: leftID}, endpoint{id: rightID}, ref, rec.override)
	}

	if rec.left.SelfDescriptive || rec.right.SelfDescriptive || w.p.link == nil {
		if rec.override == "" {
			logger.Warn("[Shorthand][Links] Skipping link without grammar rule or override",
				"row", rec.row.Line, "left", rec.left.Text, "right", rec.right.Text)
			return nil
		}
		return direct()
	}

	rules := w.p.link.Rules(rec.left.Prefix, rec.right.Prefix)
	if len(rules) == 0 {
		if rec.override == "" {
			logger.Warn("[Shorthand][Links] No link rule for entry prefixes",
				"row", rec.row.Line, "left", rec.left.Prefix, "right", rec.right.Prefix)
			return nil
		}
		return direct()
	}

	for _, rule := range rules {
		srcs := w.endpoints(rule.Source, rec, leftID, rightID)
		tgts := w.endpoints(rule.Target, rec, leftID, rightID)

		refs := []common.StringID{refID}
		if refID == common.NoString {
			refs = refs[:0]
			if !rule.Reference.IsZero() {
				for _, e := range w.endpoints(rule.Reference, rec, leftID, rightID) {
					refs = append(refs, e.id)
				}
			}
			if len(refs) == 0 {
				refs = append(refs, w.data)
			}
		}

		linkType := rule.LinkType
		if rec.override != "" {
			linkType = rec.override
		}

		if rule.ListMode.Positional() {
			n := min(len(srcs), len(tgts))
			for i := 0; i < n; i++ {
				if err := emit(srcs[i], tgts[i], refs[min(i, len(refs)-1)], linkType); err != nil {
					return err
				}
			}
			continue
		}
		for _, s := range srcs {
			for _, t := range tgts {
				if err := emit(s, t, refs[0], linkType); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// endpoints resolves a position code against a row: the entry string itself
// or the strings of the addressed items.
func (w *writer) endpoints(pos syntax.Position, rec *record, leftID, rightID common.StringID) []endpoint {
	e, id := rec.left, leftID
	if pos.Side == syntax.Right {
		e, id = rec.right, rightID
	}
	if pos.ItemLabel == "" {
		return []endpoint{{id: id}}
	}
	items := e.ItemsAt(pos.ItemLabel)
	out := make([]endpoint, 0, len(items))
	for _, it := range items {
		sid, ok := w.s.StringID(it.Value)
		if !ok {
			continue
		}
		out = append(out, endpoint{id: sid, listPos: it.ListPosition})
	}
	return out
}
