package normalize

import (
	"strings"
	"unicode"
)

// streetAbbreviations maps long street-type words to the short form used in
// the canonical key. Both directions of a pair must land on the same token
// so "15999 Coast Hwy" and "15999 Coast Highway" compare equal.
var streetAbbreviations = map[string]string{
	"highway":   "hwy",
	"street":    "st",
	"road":      "rd",
	"avenue":    "ave",
	"drive":     "dr",
	"lane":      "ln",
	"boulevard": "blvd",
	"court":     "ct",
	"circle":    "cir",
	"place":     "pl",
	"terrace":   "ter",
	"parkway":   "pkwy",
	"trail":     "trl",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
	"apartment": "apt",
	"suite":     "ste",
	"unit":      "unit",
}

// unitWords are unit designators that collapse to a single canonical token
// so "Apt 4", "#4", and "Unit 4" all compare equal.
var unitWords = map[string]bool{
	"apt":  true,
	"ste":  true,
	"unit": true,
	"num":  true,
}

// Address reduces a formatted address to a canonical comparison key:
// case-folded, punctuation stripped, abbreviations contracted, whitespace
// collapsed. Two visually different renderings of the same street address
// must normalize identically. Returns "" for unusable input.
func Address(raw string) string {
	lowered := strings.ToLower(raw)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '#':
			// "#4" is a unit marker, keep it as a word boundary token
			b.WriteString(" num ")
		default:
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if short, ok := streetAbbreviations[f]; ok {
			f = short
		}
		if unitWords[f] {
			f = "unit"
		}
		out = append(out, f)
	}

	key := strings.Join(out, " ")
	if len(key) < 3 {
		return ""
	}
	return key
}
