package match

import (
	"context"
	"sort"

	"trapper/internal/match/models"
	id "trapper/pkg/domain"
	dErrors "trapper/pkg/domain-errors"
	"trapper/pkg/normalize"
)

const maxCandidatesPerSource = 5

type CandidateStore interface {
	// Upsert keeps the highest confidence seen for the triple
	// (source_system, source_record_id, candidate_person_id).
	Upsert(ctx context.Context, c *models.ReviewCandidate) error
	ListBySource(ctx context.Context, sourceSystem, sourceRecordID string) ([]*models.ReviewCandidate, error)
}

// SourceRecord is the slice of an upstream row the reviewer scoring needs.
type SourceRecord struct {
	SourceSystem   string
	SourceRecordID string
	DisplayName    string
	Email          string
	Phone          string
}

// CandidatePerson is a canonical person projected for matching.
type CandidatePerson struct {
	PersonID    id.EntityID
	DisplayName string
	Email       string
	Phone       string
}

// Reviewer scores source records against canonical people and queues the
// strongest candidates for human review. It never links records itself.
type Reviewer struct {
	store CandidateStore
}

func NewReviewer(store CandidateStore) *Reviewer {
	return &Reviewer{store: store}
}

// Score computes match confidence between one source record and one person.
// Returns nil when no signal clears the floor.
func (r *Reviewer) Score(source SourceRecord, person CandidatePerson) *models.ReviewCandidate {
	var matchedOn []string
	confidence := 0.0

	srcPhone := normalize.Phone(source.Phone)
	personPhone := normalize.Phone(person.Phone)
	if srcPhone != "" && srcPhone == personPhone {
		matchedOn = append(matchedOn, "phone_normalized")
		confidence = 1.0
	}

	srcEmail := normalize.Email(source.Email)
	personEmail := normalize.Email(person.Email)
	if srcEmail != "" && srcEmail == personEmail {
		matchedOn = append(matchedOn, "email")
		if confidence < 0.98 {
			confidence = 0.98
		}
	}

	nameSim := normalize.NameSimilarity(source.DisplayName, person.DisplayName)
	if nameSim >= 0.7 {
		matchedOn = append(matchedOn, "name_fuzzy")
		sameAreaCode := len(srcPhone) >= 3 && len(personPhone) >= 3 && srcPhone[:3] == personPhone[:3]
		if sameAreaCode {
			matchedOn = append(matchedOn, "area_code")
			if c := 0.85 + nameSim*0.1; c > confidence {
				confidence = c
			}
		} else if c := 0.50 + nameSim*0.3; c > confidence {
			confidence = c
		}
	}

	if len(matchedOn) == 0 || confidence < 0.40 {
		return nil
	}

	return &models.ReviewCandidate{
		SourceSystem:      source.SourceSystem,
		SourceRecordID:    source.SourceRecordID,
		CandidatePersonID: person.PersonID,
		Confidence:        confidence,
		Evidence: map[string]any{
			"matched_on":      matchedOn,
			"name_similarity": nameSim,
			"source_name":     source.DisplayName,
		},
		Status: "open",
	}
}

// Queue scores one source record against the given people and persists the
// top candidates. Re-running with the same inputs keeps the stored
// confidence at its maximum rather than duplicating rows.
func (r *Reviewer) Queue(ctx context.Context, source SourceRecord, people []CandidatePerson) (int, error) {
	var candidates []*models.ReviewCandidate
	for _, person := range people {
		if c := r.Score(source, person); c != nil {
			candidates = append(candidates, c)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > maxCandidatesPerSource {
		candidates = candidates[:maxCandidatesPerSource]
	}
	for _, c := range candidates {
		if err := r.store.Upsert(ctx, c); err != nil {
			return 0, dErrors.Wrap(dErrors.CodeInternal, "queue match candidate", err)
		}
	}
	return len(candidates), nil
}
