package models

import (
	"math"
	"time"

	id "trapper/pkg/domain"
)

type Basis string

const (
	BasisCoordinateProximity       Basis = "coordinate_proximity"
	BasisNormalizedAddressEquality Basis = "normalized_address_equality"
	BasisIdentifierCollision       Basis = "identifier_collision"
	BasisEmbeddedPatternExtraction Basis = "embedded_pattern_extraction"
)

// Pair is one candidate duplicate. AID and BID are always ordered with the
// lexically smaller id first so the same pair never appears twice.
type Pair struct {
	AID        id.EntityID
	BID        id.EntityID
	Basis      Basis
	Confidence float64
}

// Ordered returns the pair with ids in canonical order.
func (p Pair) Ordered() Pair {
	if p.BID.String() < p.AID.String() {
		p.AID, p.BID = p.BID, p.AID
	}
	return p
}

// ReviewCandidate is one proposed source-to-person match awaiting human
// review. It never links records by itself.
type ReviewCandidate struct {
	SourceSystem      string
	SourceRecordID    string
	CandidatePersonID id.EntityID
	Confidence        float64
	Evidence          map[string]any
	Status            string
	CreatedAt         time.Time
}

const earthRadiusMeters = 6371000.0

// HaversineMeters is the great-circle distance between two coordinates.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	la1 := lat1 * math.Pi / 180
	la2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(la1)*math.Cos(la2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
