package models

import (
	"strings"
	"time"

	id "trapper/pkg/domain"
)

type PatternType string

const (
	TypeContains   PatternType = "contains"
	TypeEquals     PatternType = "equals"
	TypeStartsWith PatternType = "starts_with"
)

func (t PatternType) IsValid() bool {
	return t == TypeContains || t == TypeEquals || t == TypeStartsWith
}

type Classification string

const (
	ClassOrganizational Classification = "organizational"
	ClassInternal       Classification = "internal"
	ClassLowTrust       Classification = "low_trust"
)

func (c Classification) IsValid() bool {
	return c == ClassOrganizational || c == ClassInternal || c == ClassLowTrust
}

// Pattern is one declarative blacklist rule. Patterns are data, not code;
// the registry interprets them against normalized values.
type Pattern struct {
	ID             id.EntityID    `json:"id"`
	Pattern        string         `json:"pattern"`
	Type           PatternType    `json:"pattern_type"`
	Classification Classification `json:"classification"`
	MatchThreshold float64        `json:"match_threshold"`
	Priority       int            `json:"priority"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Matches interprets the predicate against a normalized value.
func (p *Pattern) Matches(value string) bool {
	needle := strings.ToLower(strings.TrimSpace(p.Pattern))
	if needle == "" || value == "" {
		return false
	}
	switch p.Type {
	case TypeEquals:
		return value == needle
	case TypeStartsWith:
		return strings.HasPrefix(value, needle)
	case TypeContains:
		return strings.Contains(value, needle)
	}
	return false
}
