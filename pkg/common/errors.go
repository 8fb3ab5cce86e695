package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrGrammar        = errors.New("grammar error")
	ErrParse          = errors.New("parse error")
	ErrLookup         = errors.New("lookup error")
	ErrResolution     = errors.New("resolution error")
	ErrNotInitialized = errors.New("not initialized")
)

// GrammarError reports a malformed or inconsistent entry or link syntax.
type GrammarError struct {
	Grammar string
	Group   string
	Column  string
	Msg     string
}

func (e *GrammarError) Error() string {
	var b strings.Builder
	b.WriteString(e.Grammar)
	b.WriteString(" syntax")
	if e.Group != "" {
		fmt.Fprintf(&b, " group %q", e.Group)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

func (e *GrammarError) Is(target error) bool { return target == ErrGrammar }

// ParseError reports malformed input text. Row is the 1-based data row, or 0
// when the error concerns the header.
type ParseError struct {
	Row int
	Msg string
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("parse error in row %d: %s", e.Row, e.Msg)
	}
	return "parse error: " + e.Msg
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// LookupError reports a missing or ambiguous string, node or type.
type LookupError struct {
	Kind string
	Key  string
	Msg  string
}

func (e *LookupError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "not found"
	}
	return fmt.Sprintf("%s %q: %s", e.Kind, e.Key, msg)
}

func (e *LookupError) Is(target error) bool { return target == ErrLookup }

// ResolutionError reports an alias batch that would merge strings of
// different node types.
type ResolutionError struct {
	Texts     []string
	NodeTypes []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf(
		"alias class %s mixes node types %s",
		strings.Join(quoteAll(e.Texts), ", "),
		strings.Join(e.NodeTypes, ", "),
	)
}

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// NotInitializedError reports a query against a table that has not been
// computed yet.
type NotInitializedError struct {
	Table string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("%s table has not been initialized", e.Table)
}

func (e *NotInitializedError) Is(target error) bool { return target == ErrNotInitialized }

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
