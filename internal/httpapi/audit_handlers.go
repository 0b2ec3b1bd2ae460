package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"clienthub.org/internal/audit"
	"clienthub.org/internal/policy"
)

type listAuditResponse struct {
	Items     []audit.Entry `json:"items"`
	NextAfter string        `json:"next_after,omitempty"`
	AsOf      time.Time     `json:"as_of"`
}

// handleAuditQuery reads the trail. The recorder enforces the admin-or-self
// gate; a denial renders as "not found" like everywhere else.
func (a *API) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit, err := parsePositiveInt(q.Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	f := audit.Filter{
		EntityType: strings.TrimSpace(q.Get("entity_type")),
		Action:     policy.Action(strings.TrimSpace(q.Get("action"))),
		ActorID:    strings.TrimSpace(q.Get("actor_id")),
	}
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		f.From = t
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "to must be RFC3339")
			return
		}
		f.To = t
	}

	items, next, err := a.recorder.Query(r.Context(), caller, f, limit, strings.TrimSpace(q.Get("after")))
	if err != nil {
		if errors.Is(err, policy.ErrDenied) {
			writeNotFound(w, r)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, listAuditResponse{
		Items:     items,
		NextAfter: next,
		AsOf:      time.Now().UTC(),
	})
}
