package shorthand

// Options controls how shorthand text is read. Zero values select the
// defaults returned by DefaultOptions.
type Options struct {
	// ItemSeparator splits an entry into items.
	ItemSeparator string `json:"item_separator" yaml:"item_separator"`
	// SpaceChar is replaced by a space inside item values. Empty disables
	// the substitution.
	SpaceChar string `json:"space_char" yaml:"space_char"`
	// MissingTokens mark an item as explicitly missing. The first token is
	// the canonical one written by the synthesizer.
	MissingTokens []string `json:"missing_tokens" yaml:"missing_tokens"`
	// DefaultEntryPrefix applies to entries that do not start with a
	// declared prefix. Empty selects the first prefix of the entry syntax.
	DefaultEntryPrefix string `json:"default_entry_prefix" yaml:"default_entry_prefix"`
	CommentChar        string `json:"comment_char" yaml:"comment_char"`
	// ListPositionBase is the position of the first list element. Zero
	// selects 1.
	ListPositionBase int `json:"list_position_base" yaml:"list_position_base"`
	// SelfDescriptiveDelimiter splits a self-descriptive item into link
	// type, node type and value.
	SelfDescriptiveDelimiter string `json:"self_descriptive_delimiter" yaml:"self_descriptive_delimiter"`
	// MissingNodeType is the null node type given to missing items.
	MissingNodeType string `json:"missing_node_type" yaml:"missing_node_type"`
	SkipRows        int    `json:"skip_rows" yaml:"skip_rows"`

	CaseSensitive       bool `json:"case_sensitive" yaml:"case_sensitive"`
	AllowRedundantItems bool `json:"allow_redundant_items" yaml:"allow_redundant_items"`

	// OperationID names the parse operation in the provenance record. A
	// random id is generated when empty.
	OperationID string `json:"-" yaml:"-"`
}

const (
	defaultItemSeparator = "__"
	defaultCommentChar   = "#"
	defaultSDDelimiter   = "_"
	defaultMissingType   = "missing"
	defaultMissingToken  = "!"
	defaultListBase      = 1

	// DefaultEntryNodeType types entry strings whose group declares no
	// entry node type.
	DefaultEntryNodeType = "entry"
)

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ItemSeparator:            defaultItemSeparator,
		MissingTokens:            []string{defaultMissingToken},
		CommentChar:              defaultCommentChar,
		ListPositionBase:         defaultListBase,
		SelfDescriptiveDelimiter: defaultSDDelimiter,
		MissingNodeType:          defaultMissingType,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ItemSeparator == "" {
		o.ItemSeparator = d.ItemSeparator
	}
	if len(o.MissingTokens) == 0 {
		o.MissingTokens = d.MissingTokens
	}
	if o.CommentChar == "" {
		o.CommentChar = d.CommentChar
	}
	if o.ListPositionBase == 0 {
		o.ListPositionBase = d.ListPositionBase
	}
	if o.SelfDescriptiveDelimiter == "" {
		o.SelfDescriptiveDelimiter = d.SelfDescriptiveDelimiter
	}
	if o.MissingNodeType == "" {
		o.MissingNodeType = d.MissingNodeType
	}
	return o
}

// Format is the subset of Options that decides how entries are written. The
// synthesizer uses it to produce text this package reads back.
type Format struct {
	ItemSeparator      string `json:"item_separator"`
	CommentChar        string `json:"comment_char"`
	SpaceChar          string `json:"space_char"`
	DefaultEntryPrefix string `json:"default_entry_prefix"`
	MissingToken       string `json:"missing_token"`
}

// Format returns the writing format matching o.
func (o Options) Format() Format {
	o = o.withDefaults()
	return Format{
		ItemSeparator:      o.ItemSeparator,
		CommentChar:        o.CommentChar,
		SpaceChar:          o.SpaceChar,
		DefaultEntryPrefix: o.DefaultEntryPrefix,
		MissingToken:       o.MissingTokens[0],
	}
}
