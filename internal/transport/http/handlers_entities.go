package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	id "trapper/pkg/domain"
)

// handleLiving follows the merge chain from any entity id to the living
// entity that absorbed it, reporting the hops taken.
func (h *Handler) handleLiving(w http.ResponseWriter, r *http.Request) {
	entityID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	living, path, err := h.entities.ResolveLiving(r.Context(), entityID)
	if err != nil {
		writeError(w, err)
		return
	}

	hops := make([]string, 0, len(path))
	for _, hop := range path {
		hops = append(hops, hop.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":   living.ID.String(),
		"kind": string(living.Kind),
		"path": hops,
	})
}
