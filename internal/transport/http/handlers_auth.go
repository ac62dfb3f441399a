package httptransport

import (
	"net/http"
	"time"

	"trapper/internal/platform/secrets"
	dErrors "trapper/pkg/domain-errors"
)

const tokenTTL = time.Hour

type tokenRequest struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleToken exchanges the shared scheduler secret for a short-lived JWT.
func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ClientID == "" || req.Secret == "" {
		writeError(w, dErrors.New(dErrors.CodeValidation, "client_id and secret are required"))
		return
	}
	if h.schedulerSecretHash == "" {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "token exchange is not configured"))
		return
	}
	if err := secrets.Verify(req.Secret, h.schedulerSecretHash); err != nil {
		h.logger.WarnContext(r.Context(), "rejected token exchange", "client_id", req.ClientID)
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		return
	}

	token, err := h.tokens.GenerateAccessToken(req.ClientID, tokenTTL)
	if err != nil {
		writeError(w, dErrors.Wrap(dErrors.CodeInternal, "issue token", err))
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(tokenTTL.Seconds()),
	})
}
