package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"clienthub.org/internal/actor"
	"clienthub.org/internal/audit"
	"clienthub.org/internal/policy"
)

type tokenRequest struct {
	ExternalID string `json:"external_id"`
}

type tokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Actor     actor.Actor `json:"actor"`
}

const tokenTTL = 15 * time.Minute

// handleAuthToken mints a bearer token for an external identity and
// provisions a pending user on first sight. Role and status never ride in
// the token; the directory is consulted again on every subsequent request.
func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		writeError(w, r, http.StatusBadRequest, "external_id is required")
		return
	}
	if len(externalID) > 128 {
		writeError(w, r, http.StatusBadRequest, "external_id too long")
		return
	}

	resolved, err := a.directory.Resolve(r.Context(), externalID)
	if err != nil {
		if !errors.Is(err, actor.ErrNotFound) {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		resolved, err = a.directory.Provision(r.Context(), externalID)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		// System-originated entry: no actor existed before this request.
		a.recordTrail(r.Context(), audit.Record{
			Action:     policy.ActionCreate,
			EntityType: "actor",
			EntityID:   resolved.ID,
			NewValues: map[string]any{
				"external_id": resolved.ExternalID,
				"role":        string(resolved.Role),
				"status":      string(resolved.Status),
			},
			IPAddress: clientIP(r),
		})
	}

	token, err := GenerateToken(externalID, tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(tokenTTL),
		Actor:     resolved,
	})
}
