package shorthand

import (
	"strings"
	"unicode/utf8"
)

// A backslash escapes the character that follows it. Splitting keeps the
// escapes in place so that nested splits (items, prefixes, list elements)
// see the same text; Unescape runs once on the final values.

// SplitUnescaped splits s at every occurrence of sep that is not escaped.
func SplitUnescaped(s, sep string) []string {
	if sep == "" {
		return []string{s}
	}
	parts := make([]string, 0, 4)
	start := 0
	for i := 0; i < len(s); {
		if s[i] == '\\' {
			i += 2
			continue
		}
		if strings.HasPrefix(s[i:], sep) {
			parts = append(parts, s[start:i])
			i += len(sep)
			start = i
			continue
		}
		i++
	}
	if start > len(s) {
		start = len(s)
	}
	return append(parts, s[start:])
}

// IndexUnescaped returns the byte index of the first unescaped occurrence of
// sub in s, or -1.
func IndexUnescaped(s, sub string) int {
	if sub == "" {
		return -1
	}
	for i := 0; i < len(s); {
		if s[i] == '\\' {
			i += 2
			continue
		}
		if strings.HasPrefix(s[i:], sub) {
			return i
		}
		i++
	}
	return -1
}

// Unescape drops every escaping backslash.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Escape makes s safe to embed in shorthand text: backslashes are doubled
// and every occurrence of one of seqs is broken up by escaping its first
// character.
func Escape(s string, seqs ...string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); {
		if s[i] == '\\' {
			b.WriteString(`\\`)
			i++
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		for _, seq := range seqs {
			if seq != "" && strings.HasPrefix(s[i:], seq) {
				b.WriteByte('\\')
				break
			}
		}
		b.WriteString(s[i : i+size])
		i += size
	}
	return b.String()
}
