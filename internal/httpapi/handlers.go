// Package httpapi is the HTTP surface over the policy engine, the actor
// directory and the audit trail. Every handler resolves the caller fresh from
// the request context and routes access through the engine; a policy denial
// is rendered as "not found" so existence is never confirmed to an
// unauthorized caller.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"clienthub.org/internal/actor"
	"clienthub.org/internal/audit"
	"clienthub.org/internal/obs"
	"clienthub.org/internal/policy"
	"clienthub.org/internal/resource"
)

// ReadyProbe reports whether downstream dependencies answer.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries the domain services the API dispatches to.
type Deps struct {
	Directory *actor.Directory
	Actors    *actor.Service
	Engine    *policy.Engine
	Recorder  *audit.Recorder
	Resources resource.Store
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	directory *actor.Directory
	actors    *actor.Service
	engine    *policy.Engine
	recorder  *audit.Recorder
	resources resource.Store

	rateBurst     int
	ratePerSecond int
	maxBodyBytes  int64
}

func New(rp ReadyProbe, version string, deps Deps) (*API, error) {
	if deps.Directory == nil || deps.Actors == nil || deps.Engine == nil ||
		deps.Recorder == nil || deps.Resources == nil {
		return nil, errors.New("all dependencies are required")
	}
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,

		directory: deps.Directory,
		actors:    deps.Actors,
		engine:    deps.Engine,
		recorder:  deps.Recorder,
		resources: deps.Resources,

		rateBurst:     20,
		ratePerSecond: 10,
		maxBodyBytes:  1 << 20,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	// resources
	a.mux.HandleFunc("/v1/conversations", a.handleConversationsCollection)
	a.mux.HandleFunc("/v1/conversations/", a.handleConversationResource)
	a.mux.HandleFunc("/v1/documents", a.handleDocumentsCollection)
	a.mux.HandleFunc("/v1/documents/", a.handleDocumentResource)
	a.mux.HandleFunc("/v1/projects", a.handleProjectsCollection)
	a.mux.HandleFunc("/v1/projects/", a.handleProjectResource)

	// actors
	a.mux.HandleFunc("/v1/actors/me", a.handleActorMe)
	a.mux.HandleFunc("/v1/actors/", a.handleActorResource)

	// audit trail
	a.mux.HandleFunc("/v1/audit", a.handleAuditQuery)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a, nil
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = RequestID(h)
	h = Logging(h)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSecond)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "clienthub-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "clienthub-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

// caller pulls the resolved actor off the request context. withAuth put it
// there for every non-public path, so a miss is a wiring bug.
func (a *API) caller(w http.ResponseWriter, r *http.Request) (actor.Actor, bool) {
	c, ok := actor.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return actor.Actor{}, false
	}
	return c, true
}

// recordTrail appends an audit entry for an already committed mutation. An
// append failure is counted and logged inside the recorder and must not fail
// the request; anything else is a programming error worth a log line.
func (a *API) recordTrail(ctx context.Context, rec audit.Record) {
	if _, err := a.recorder.Record(ctx, rec); err != nil && !errors.Is(err, audit.ErrAppendFailed) {
		obs.LogOperational("audit.record_rejected", map[string]any{
			"action":      string(rec.Action),
			"entity_type": rec.EntityType,
			"entity_id":   rec.EntityID,
			"error":       err.Error(),
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
