package synth

import (
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/shorthand"
	"github.com/OFFIS-RIT/bibliograph/pkg/syntax"
	"github.com/OFFIS-RIT/bibliograph/pkg/textnet"
)

// StoredFormat is an entry syntax and the options a shorthand text was
// parsed with, as recorded in the store.
type StoredFormat struct {
	EntrySyntax string
	Options     shorthand.Options
}

// FormatFromStore collects the distinct entry syntaxes and parse options
// recorded by earlier parses, in the order they were first used.
func FormatFromStore(store *textnet.RawStore) ([]StoredFormat, error) {
	synLT, err := store.LinkTypes.Lookup(shorthand.LinkShorthandEntrySyn)
	if err != nil {
		return nil, fmt.Errorf("store holds no parsed shorthand: %w", err)
	}
	paramsLT, err := store.LinkTypes.Lookup(shorthand.LinkShorthandParameters)
	if err != nil {
		return nil, fmt.Errorf("store holds no parse parameters: %w", err)
	}

	params := make(map[common.StringID]common.StringID)
	for _, a := range store.Assertions() {
		if a.LinkTypeID == paramsLT {
			params[a.SrcStringID] = a.TgtStringID
		}
	}

	seen := make(map[[2]common.StringID]struct{})
	out := make([]StoredFormat, 0)
	for _, a := range store.Assertions() {
		if a.LinkTypeID != synLT {
			continue
		}
		pid, ok := params[a.SrcStringID]
		if !ok {
			return nil, &common.LookupError{
				Kind: "parse parameters",
				Key:  store.Text(a.SrcStringID),
				Msg:  "no parameters recorded for this input",
			}
		}
		key := [2]common.StringID{a.TgtStringID, pid}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		var opts shorthand.Options
		if err := json.Unmarshal([]byte(store.Text(pid)), &opts); err != nil {
			return nil, fmt.Errorf("failed to decode parse parameters: %w", err)
		}
		out = append(out, StoredFormat{EntrySyntax: store.Text(a.TgtStringID), Options: opts})
	}
	return out, nil
}

// SynthesizeFromStore synthesizes entries with every format recorded in the
// store. req.Syntax and req.Format are ignored. A node that fits several
// formats is written with the first.
func SynthesizeFromStore(store *textnet.ResolvedStore, req Request) ([]Entry, error) {
	formats, err := FormatFromStore(store.RawStore)
	if err != nil {
		return nil, err
	}

	seen := make(map[common.NodeID]struct{})
	out := make([]Entry, 0)
	for _, f := range formats {
		syn, err := syntax.ValidateEntrySyntax(f.EntrySyntax, syntax.EntryOptions{
			CaseSensitive:       f.Options.CaseSensitive,
			AllowRedundantItems: f.Options.AllowRedundantItems,
		})
		if err != nil {
			return nil, fmt.Errorf("stored entry syntax: %w", err)
		}
		r := req
		r.Syntax = syn
		r.Format = f.Options.Format()
		entries, err := synthesize(store, r)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if _, dup := seen[e.NodeID]; dup {
				continue
			}
			seen[e.NodeID] = struct{}{}
			out = append(out, e)
		}
	}
	order(out)
	return out, nil
}
