package validators

import "strings"

// Digits strips every non-digit rune.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CanonicalPhone is the dedup key for a phone number: digits only, with the
// Brazilian country code dropped so "+55 11 99999-8888" and "11999998888"
// collide.
func CanonicalPhone(s string) string {
	d := Digits(s)
	if len(d) >= 12 && strings.HasPrefix(d, "55") {
		d = d[2:]
	}
	return d
}
