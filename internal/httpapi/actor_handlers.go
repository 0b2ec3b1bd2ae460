package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"clienthub.org/internal/actor"
	"clienthub.org/internal/audit"
	"clienthub.org/internal/policy"
)

type updateActorRequest struct {
	Role   *string `json:"role"`
	Status *string `json:"status"`
}

func (a *API) handleActorMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, caller)
}

// handleActorResource applies admin-only lifecycle transitions. Unauthorized
// callers get the same "not found" as a missing actor id.
func (a *API) handleActorResource(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/actors/")
	if id == "" || strings.Contains(id, "/") {
		writeNotFound(w, r)
		return
	}
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}

	var req updateActorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Role == nil && req.Status == nil {
		writeError(w, r, http.StatusBadRequest, "no fields to update")
		return
	}

	oldVals := map[string]any{}
	newVals := map[string]any{}
	var updated actor.Actor

	if req.Role != nil {
		role, err := actor.ParseRole(*req.Role)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		change, err := a.actors.ChangeRole(r.Context(), caller, id, role)
		if err != nil {
			handleActorError(w, r, err)
			return
		}
		oldVals["role"] = string(change.Old.Role)
		newVals["role"] = string(change.New.Role)
		updated = change.New
	}

	if req.Status != nil {
		status, err := actor.ParseStatus(*req.Status)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		change, err := a.actors.ChangeStatus(r.Context(), caller, id, status)
		if err != nil {
			handleActorError(w, r, err)
			return
		}
		oldVals["status"] = string(change.Old.Status)
		newVals["status"] = string(change.New.Status)
		updated = change.New
	}

	a.recordTrail(r.Context(), audit.Record{
		ActorID:    caller.ID,
		Action:     policy.ActionUpdate,
		EntityType: "actor",
		EntityID:   updated.ID,
		OldValues:  oldVals,
		NewValues:  newVals,
		IPAddress:  clientIP(r),
	})

	writeJSON(w, http.StatusOK, updated)
}

func handleActorError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, actor.ErrUnauthorized), errors.Is(err, actor.ErrNotFound):
		// Same rendering for "no such actor" and "not allowed to see it".
		writeNotFound(w, r)
	case errors.Is(err, actor.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, actor.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
