// Package normalize converts raw contact and address fields into
// comparison-stable canonical forms. Every function is pure and total over
// string input; an empty return value means the input was unusable.
package normalize

import (
	"strings"
	"unicode"
)

// Email lower-cases and trims an email address. Returns "" when the value
// does not look like an address at all.
func Email(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	at := strings.IndexByte(v, '@')
	if at <= 0 || at == len(v)-1 {
		return ""
	}
	if strings.IndexByte(v[at+1:], '.') < 0 {
		return ""
	}
	return v
}

// Phone strips a phone number to its canonical national digit sequence.
// An 11-digit number with a leading 1 is reduced to 10 digits; anything that
// cannot yield a valid 10-digit subscriber number is rejected.
func Phone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return ""
	}
	return digits
}

// Name lower-cases a display name and collapses interior whitespace.
func Name(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}
