// Package extract centralizes confidence-scored extraction of values embedded
// in free-text fields: microchip numbers concatenated onto external ids,
// parenthetical annotations in name fields, phone numbers buried in notes.
//
// Every caller goes through Extractor instead of doing its own pattern
// matching; a result below the minimum confidence is reported as not found,
// never as an error.
package extract

import (
	"regexp"
	"strings"

	"trapper/pkg/normalize"
)

// Kind names the target value type of an extraction.
type Kind string

const (
	KindMicrochip  Kind = "microchip"
	KindExternalID Kind = "external_id"
	KindPhone      Kind = "phone"
	KindAnnotation Kind = "annotation"
)

// Result is one extracted candidate value with its confidence score.
type Result struct {
	Kind       Kind
	Value      string
	Confidence float64
}

// MinConfidence is the default floor below which results are discarded.
const MinConfidence = 0.75

// Microchip numbers are 9, 10, or 15 digits depending on registry era.
var chipLengths = map[int]bool{9: true, 10: true, 15: true}

var (
	digitRunRe      = regexp.MustCompile(`\d{9,15}`)
	parentheticalRe = regexp.MustCompile(`\(([^()]+)\)`)
	externalIDRe    = regexp.MustCompile(`\b([A-Z]{2,4}-?\d{3,8})\b`)
	phoneRunRe      = regexp.MustCompile(`[\d()+.\- ]{7,20}`)
)

// noteWords is the vocabulary of annotation words that must never be mistaken
// for an extracted identifier (a parenthetical "(deceased)" is a note, not a
// foster parent name).
var noteWords = map[string]bool{
	"deceased":  true,
	"adopted":   true,
	"feral":     true,
	"friendly":  true,
	"pregnant":  true,
	"lactating": true,
	"returned":  true,
	"unknown":   true,
	"male":      true,
	"female":    true,
	"spayed":    true,
	"neutered":  true,
}

// Extractor applies the embedded-pattern rules with a configurable floor.
type Extractor struct {
	minConfidence float64
}

// New returns an Extractor with the default confidence floor.
func New() *Extractor {
	return &Extractor{minConfidence: MinConfidence}
}

// NewWithFloor overrides the confidence floor; values at or above the floor
// survive.
func NewWithFloor(floor float64) *Extractor {
	return &Extractor{minConfidence: floor}
}

// Microchip pulls a microchip number out of free text. A digit run only
// qualifies when its length matches a known chip format; a 15-digit run is
// the modern ISO format and scores highest. Returns nil when nothing
// qualifying is found.
func (e *Extractor) Microchip(text string) *Result {
	var best *Result
	for _, run := range digitRunRe.FindAllString(text, -1) {
		if !chipLengths[len(run)] {
			continue
		}
		confidence := 0.8
		if len(run) == 15 {
			confidence = 0.95
		}
		if best == nil || confidence > best.Confidence {
			best = &Result{Kind: KindMicrochip, Value: run, Confidence: confidence}
		}
	}
	return e.accept(best)
}

// ExternalID pulls an upstream record id (e.g. "TR-10421") out of free text.
func (e *Extractor) ExternalID(text string) *Result {
	m := externalIDRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return e.accept(&Result{Kind: KindExternalID, Value: m[1], Confidence: 0.85})
}

// Annotation extracts a parenthetical annotation from a name field, e.g. the
// foster-parent name in "Mittens (Sarah Chen)". Note-word vocabulary matches
// and out-of-bounds lengths are rejected as not-found.
func (e *Extractor) Annotation(text string) *Result {
	m := parentheticalRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	value := strings.TrimSpace(m[1])
	if len(value) < 2 || len(value) > 60 {
		return nil
	}
	if noteWords[strings.ToLower(value)] {
		return nil
	}

	// A plausible person name has 1-4 alphabetic words.
	words := strings.Fields(value)
	if len(words) == 0 || len(words) > 4 {
		return nil
	}
	confidence := 0.7
	if len(words) >= 2 {
		confidence = 0.85
	}
	for _, w := range words {
		if noteWords[strings.ToLower(w)] {
			return nil
		}
		if strings.IndexFunc(w, isLetterOrApostrophe) != 0 {
			return nil
		}
	}
	return e.accept(&Result{Kind: KindAnnotation, Value: value, Confidence: confidence})
}

// Phone extracts a dialable phone number from free text, reusing the
// normalizer's validity rules.
func (e *Extractor) Phone(text string) *Result {
	for _, run := range phoneRunRe.FindAllString(text, -1) {
		if p := normalize.Phone(run); p != "" {
			return e.accept(&Result{Kind: KindPhone, Value: p, Confidence: 0.9})
		}
	}
	return nil
}

func (e *Extractor) accept(r *Result) *Result {
	if r == nil || r.Confidence < e.minConfidence {
		return nil
	}
	return r
}

func isLetterOrApostrophe(r rune) bool {
	return r == '\'' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}
