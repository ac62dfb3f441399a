package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	identmodels "trapper/internal/identifier/models"
	identsvc "trapper/internal/identifier/service"
	"trapper/internal/platform/middleware"
	id "trapper/pkg/domain"
)

type logUpdateRequest struct {
	PersonID string `json:"person_id"`
	Type     string `json:"type"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
	Source   string `json:"source"`
	Reason   string `json:"reason"`
}

// handleLogUpdate records a proposed identifier change. Cosmetic changes,
// where old and new normalize identically, answer 204 with no record.
func (h *Handler) handleLogUpdate(w http.ResponseWriter, r *http.Request) {
	var req logUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	personID, err := id.ParseEntityID(req.PersonID)
	if err != nil {
		writeError(w, err)
		return
	}

	updateID, err := h.identifiers.LogUpdate(r.Context(), identsvc.LogUpdateInput{
		PersonID: personID,
		Type:     identmodels.IdentifierType(req.Type),
		OldValue: req.OldValue,
		NewValue: req.NewValue,
		Source:   req.Source,
		Actor:    middleware.GetActor(r.Context()),
		Reason:   req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if updateID == nil {
		writeJSON(w, http.StatusNoContent, nil)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"update_id": updateID.String()})
}

// handleApplyUpdate commits one logged update. Already-applied updates
// and owner conflicts both answer applied=false.
func (h *Handler) handleApplyUpdate(w http.ResponseWriter, r *http.Request) {
	updateID, err := id.ParseUpdateID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	applied, err := h.identifiers.ApplyUpdate(r.Context(), updateID, middleware.GetActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

type classifyRequest struct {
	Value string `json:"value"`
}

// handleClassifyIdentifier classifies a raw identifier value as
// organizational, personal, or unknown.
func (h *Handler) handleClassifyIdentifier(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	classification, err := h.classifier.ClassifyIdentifier(r.Context(), req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"classification": string(classification)})
}
