package alias

import (
	"slices"
	"strings"
	"unicode"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
)

var (
	dropNouns       = withDots("ms", "mrs", "mr", "dr", "sir", "dame")
	generationals   = withDots("jr", "sr")
	partialSurnames = withDots("st", "de", "le", "van", "von")
)

func withDots(words ...string) []string {
	out := slices.Clone(words)
	for _, w := range words {
		out = append(out, w+".")
	}
	return out
}

// WesternSurname reduces a "Surname, Given Names" spelling to the case folded
// surname followed by the initials of the given names, so that
// "van Loon, Harry", "Loon, H. van" and "VAN LOON, H" all map to "vanloonh".
// Names without a comma have no alias.
func WesternSurname(name string) (string, bool) {
	if !strings.Contains(name, ",") {
		return "", false
	}
	fields := strings.Split(common.Casefold(name), ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	more := len(fields) > 2
	surname, given := fields[0], fields[1]

	// "Joanne Gerould, Ms." and "Martin Luther King, Jr." put the whole
	// name before the comma.
	switch {
	case slices.Contains(dropNouns, given):
		if more {
			return "", false
		}
		head, last, ok := rsplit(surname)
		if !ok {
			return "", false
		}
		surname, given = last, head
	case slices.Contains(generationals, given):
		if more {
			return "", false
		}
		head, last, ok := rsplit(surname)
		if !ok {
			return "", false
		}
		surname, given = last, head+" "+given
	}

	surname = trimWords(surname, dropNouns)
	given = trimWords(given, dropNouns)

	for _, p := range partialSurnames {
		if strings.HasSuffix(given, " "+p) {
			surname = p + " " + surname
			given = strings.TrimSuffix(given, p)
		}
	}

	var b strings.Builder
	for _, r := range surname {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	inWord := false
	for _, r := range given {
		word := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
		if word && !inWord {
			b.WriteRune(r)
		}
		inWord = word
	}
	alias := common.Casefold(b.String())
	return alias, alias != ""
}

// rsplit splits s at its last space.
func rsplit(s string) (string, string, bool) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(s[:i]), s[i+1:], true
}

// trimWords removes leading and trailing words found in words.
func trimWords(s string, words []string) string {
	f := strings.Fields(s)
	for len(f) > 0 && slices.Contains(words, f[0]) {
		f = f[1:]
	}
	for len(f) > 0 && slices.Contains(words, f[len(f)-1]) {
		f = f[:len(f)-1]
	}
	return strings.Join(f, " ")
}

var doiDelimiters = []string{"doi:", "doi.org/", "doi/"}

// DOI strips resolver and scheme prefixes from a DOI: "doi:10.1/x",
// "https://doi.org/10.1/x" and "doi/10.1/x" all map to "10.1/x". When several
// delimiters occur the last one in the list above decides.
func DOI(text string) (string, bool) {
	delim := ""
	for _, d := range doiDelimiters {
		if indexFold(text, d) >= 0 {
			delim = d
		}
	}
	if delim == "" {
		return "", false
	}
	rest := text[indexFold(text, delim)+len(delim):]
	if i := indexFold(rest, delim); i >= 0 {
		rest = rest[:i]
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}

// indexFold is a case insensitive strings.Index for ASCII needles.
func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}
