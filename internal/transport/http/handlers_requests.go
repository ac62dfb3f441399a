package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	id "trapper/pkg/domain"
)

// handleClearAssignments removes a request's primary references and answers
// with the status it settled on.
func (h *Handler) handleClearAssignments(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := h.requests.ClearAssignments(r.Context(), requestID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}
