package httptransport

import (
	"net/http"

	"trapper/internal/platform/middleware"
	id "trapper/pkg/domain"
	dErrors "trapper/pkg/domain-errors"
)

type pickRequest struct {
	Kind string `json:"kind"`
	A    string `json:"a"`
	B    string `json:"b"`
}

// handlePick runs canonical selection over two entities without merging.
func (h *Handler) handlePick(w http.ResponseWriter, r *http.Request) {
	var req pickRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	kind, err := id.ParseKind(req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}
	aID, err := id.ParseEntityID(req.A)
	if err != nil {
		writeError(w, err)
		return
	}
	bID, err := id.ParseEntityID(req.B)
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := h.entities.Get(r.Context(), aID)
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := h.entities.Get(r.Context(), bID)
	if err != nil {
		writeError(w, err)
		return
	}
	if a.Kind != kind || b.Kind != kind {
		writeError(w, dErrors.New(dErrors.CodeValidation, "entities do not match the requested kind"))
		return
	}

	winner, err := h.picker.Pick(r.Context(), a, b)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"winner": winner.String()})
}

type mergeRequest struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
	Reason string `json:"reason"`
}

// handleMerge executes one merge. Replaying a completed merge answers
// applied=false rather than an error.
func (h *Handler) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	winnerID, err := id.ParseEntityID(req.Winner)
	if err != nil {
		writeError(w, err)
		return
	}
	loserID, err := id.ParseEntityID(req.Loser)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Reason == "" {
		writeError(w, dErrors.New(dErrors.CodeValidation, "reason is required"))
		return
	}

	applied, err := h.merger.Merge(r.Context(), winnerID, loserID, req.Reason, middleware.GetActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

type batchRequest struct {
	// Kind is optional; empty means every kind.
	Kind      string  `json:"kind"`
	Threshold float64 `json:"threshold"`
}

// handleBatch runs the detect-and-merge driver. A concurrent run for the
// same kind surfaces as 409.
func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		writeError(w, dErrors.New(dErrors.CodeValidation, "threshold must be within [0, 1]"))
		return
	}

	var (
		merged int
		err    error
	)
	if req.Kind == "" {
		merged, err = h.batch.RunAll(r.Context(), req.Threshold)
	} else {
		var kind id.Kind
		kind, err = id.ParseKind(req.Kind)
		if err != nil {
			writeError(w, err)
			return
		}
		merged, err = h.batch.Run(r.Context(), kind, req.Threshold)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"merged": merged})
}
