package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/shorthand"
	"github.com/OFFIS-RIT/bibliograph/pkg/synth"
	"github.com/OFFIS-RIT/bibliograph/pkg/syntax"

	"github.com/labstack/echo/v4"
)

type synthBody struct {
	// EntrySyntax is the grammar to write with. Empty reuses the formats
	// the store was parsed with.
	EntrySyntax string            `json:"entry_syntax"`
	Options     shorthand.Options `json:"options"`

	NodeIDs     []common.NodeID `json:"node_ids"`
	NodeType    []string        `json:"node_type"`
	EntryPrefix []string        `json:"entry_prefix"`

	SortBy                 []string `json:"sort_by"`
	SortPrefixes           bool     `json:"sort_prefixes"`
	SortCaseSensitive      bool     `json:"sort_case_sensitive"`
	FillSpaces             bool     `json:"fill_spaces"`
	NameType               string   `json:"name_type" validate:"omitempty,oneof=full abbr"`
	HideDefaultEntryPrefix bool     `json:"hide_default_entry_prefix"`
	IncludeTags            bool     `json:"include_tags"`
}

type entryResponse struct {
	NodeID common.NodeID `json:"node_id"`
	Prefix string        `json:"prefix"`
	Text   string        `json:"text"`
}

func column(values []string) common.Selector {
	if len(values) == 0 {
		return common.Selector{}
	}
	return common.Column(values...)
}

func (b *synthBody) request() synth.Request {
	return synth.Request{
		NodeIDs:                b.NodeIDs,
		NodeType:               column(b.NodeType),
		EntryPrefix:            column(b.EntryPrefix),
		SortBy:                 b.SortBy,
		SortPrefixes:           b.SortPrefixes,
		SortCaseSensitive:      b.SortCaseSensitive,
		FillSpaces:             b.FillSpaces,
		NameType:               synth.NameType(b.NameType),
		HideDefaultEntryPrefix: b.HideDefaultEntryPrefix,
		IncludeTags:            b.IncludeTags,
	}
}

// SynthesizeHandler writes nodes of a compiled store back out as shorthand
// entries.
func SynthesizeHandler(c echo.Context) error {
	data := new(synthBody)
	if err := c.Bind(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(data); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	r, ok, err := loadResolved(c)
	if !ok {
		return err
	}

	req := data.request()
	var entries []synth.Entry
	if data.EntrySyntax == "" {
		entries, err = synth.SynthesizeFromStore(r, req)
	} else {
		opts := data.Options
		req.Syntax, err = syntax.ValidateEntrySyntax(data.EntrySyntax, syntax.EntryOptions{
			CaseSensitive:       opts.CaseSensitive,
			AllowRedundantItems: opts.AllowRedundantItems,
		})
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		req.Format = opts.Format()
		entries, err = synth.Synthesize(r, req)
	}
	if err != nil {
		if errors.Is(err, common.ErrLookup) || errors.Is(err, common.ErrGrammar) {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		logger.Error("[Server][Synth] Failed to synthesize entries", "err", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}

	res := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, entryResponse{NodeID: e.NodeID, Prefix: e.Prefix, Text: e.Text})
	}
	return c.JSON(http.StatusOK, res)
}
