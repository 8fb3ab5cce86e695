package util

import (
	"strings"
	"unicode"
)

// SanitizeName prepares a user supplied label for storage. Invalid UTF-8,
// NUL bytes and other control characters are removed, whitespace runs
// collapse to one space and the result is trimmed.
func SanitizeName(value string) string {
	if value == "" {
		return value
	}

	var b strings.Builder
	b.Grow(len(value))
	space := false
	for _, r := range strings.ToValidUTF8(value, "") {
		switch {
		case unicode.IsSpace(r):
			space = b.Len() > 0
		case unicode.IsControl(r):
		default:
			if space {
				b.WriteByte(' ')
				space = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
