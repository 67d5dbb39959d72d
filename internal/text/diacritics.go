package text

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Diacritics maps a prefix glyph to the combining mark it stands for. The
// game has no precomposed accented glyphs, so "^e" in glyph form is shown
// to the user as "ê".
type Diacritics map[string]rune

// FrenchDiacritics is the prefix table used by the French string banks.
var FrenchDiacritics = Diacritics{
	"`": '\u0300',
	"^": '\u0302',
	"¨": '\u0308',
	"¸": '\u0327',
}

func (d Diacritics) prefixes() []string {
	out := make([]string, 0, len(d))
	for p := range d {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// Apply replaces each prefix glyph followed by a letter with the
// precomposed character, where one exists.
func (d Diacritics) Apply(s string) string {
	if len(d) == 0 {
		return s
	}
	prefixes := d.prefixes()
	var b strings.Builder
	for i := 0; i < len(s); {
		composed := false
		for _, p := range prefixes {
			if !strings.HasPrefix(s[i:], p) || i+len(p) >= len(s) {
				continue
			}
			base, n := utf8.DecodeRuneInString(s[i+len(p):])
			c := norm.NFC.String(string([]rune{base, d[p]}))
			if utf8.RuneCountInString(c) == 1 {
				b.WriteString(c)
				i += len(p) + n
				composed = true
				break
			}
		}
		if !composed {
			_, n := utf8.DecodeRuneInString(s[i:])
			b.WriteString(s[i : i+n])
			i += n
		}
	}
	return b.String()
}

// Remove is the inverse of Apply: precomposed characters whose mark has a
// prefix glyph are split back into prefix and base letter.
func (d Diacritics) Remove(s string) string {
	if len(d) == 0 {
		return s
	}
	marks := make(map[rune]string, len(d))
	for p, m := range d {
		marks[m] = p
	}
	var b strings.Builder
	for _, r := range s {
		parts := []rune(norm.NFD.String(string(r)))
		if len(parts) == 2 {
			if p, ok := marks[parts[1]]; ok {
				b.WriteString(p)
				b.WriteRune(parts[0])
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
