package validators

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and removes diacritics, so "Orçamento" and
// "orcamento" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// ContainsFold reports whether needle occurs in any of the haystacks after folding.
func ContainsFold(needle string, haystacks ...string) bool {
	n := Fold(needle)
	if n == "" {
		return true
	}
	for _, h := range haystacks {
		if strings.Contains(Fold(h), n) {
			return true
		}
	}
	return false
}
