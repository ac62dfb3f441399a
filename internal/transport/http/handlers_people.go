package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	id "trapper/pkg/domain"
)

// handleCanonical reports whether one person currently classifies as a
// canonical individual.
func (h *Handler) handleCanonical(w http.ResponseWriter, r *http.Request) {
	personID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	canonical, err := h.classifier.IsCanonical(r.Context(), personID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"canonical": canonical})
}

// handleRefreshFlags recomputes is_canonical for every living person.
func (h *Handler) handleRefreshFlags(w http.ResponseWriter, r *http.Request) {
	result, err := h.classifier.RefreshFlags(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"total":         result.Total,
		"canonical":     result.Canonical,
		"non_canonical": result.NonCanonical,
	})
}
