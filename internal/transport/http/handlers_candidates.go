package httptransport

import (
	"net/http"

	"trapper/internal/match"
	id "trapper/pkg/domain"
	dErrors "trapper/pkg/domain-errors"
)

type queueCandidatesRequest struct {
	SourceSystem   string `json:"source_system"`
	SourceRecordID string `json:"source_record_id"`
	DisplayName    string `json:"display_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`

	People []candidatePerson `json:"people"`
}

type candidatePerson struct {
	PersonID    string `json:"person_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

// handleQueueCandidates scores one source record against the supplied
// people and queues the strongest matches for human review.
func (h *Handler) handleQueueCandidates(w http.ResponseWriter, r *http.Request) {
	var req queueCandidatesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.SourceSystem == "" || req.SourceRecordID == "" {
		writeError(w, dErrors.New(dErrors.CodeValidation, "source_system and source_record_id are required"))
		return
	}

	people := make([]match.CandidatePerson, 0, len(req.People))
	for _, p := range req.People {
		personID, err := id.ParseEntityID(p.PersonID)
		if err != nil {
			writeError(w, err)
			return
		}
		people = append(people, match.CandidatePerson{
			PersonID:    personID,
			DisplayName: p.DisplayName,
			Email:       p.Email,
			Phone:       p.Phone,
		})
	}

	queued, err := h.reviewer.Queue(r.Context(), match.SourceRecord{
		SourceSystem:   req.SourceSystem,
		SourceRecordID: req.SourceRecordID,
		DisplayName:    req.DisplayName,
		Email:          req.Email,
		Phone:          req.Phone,
	}, people)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"queued": queued})
}
