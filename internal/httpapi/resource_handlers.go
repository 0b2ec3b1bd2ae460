package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"clienthub.org/internal/actor"
	"clienthub.org/internal/audit"
	"clienthub.org/internal/policy"
	"clienthub.org/internal/resource"
)

type createConversationRequest struct {
	Subject string `json:"subject"`
}

type createDocumentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type createProjectRequest struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

type updateDocumentRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type assignConversationRequest struct {
	StaffActorID string `json:"staff_actor_id"`
}

type listResponse[T any] struct {
	Items []T       `json:"items"`
	AsOf  time.Time `json:"as_of"`
}

// Conversations -------------------------------------------------------------

func (a *API) handleConversationsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listConversations(w, r)
	case http.MethodPost:
		a.createConversation(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleConversationResource(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/conversations/")
	if path == "" {
		writeNotFound(w, r)
		return
	}

	if strings.HasSuffix(path, "/assignment") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/assignment"), "/")
		id = strings.TrimSuffix(id, "/")
		if id == "" {
			writeNotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.assignConversation(w, r, caller, id)
		return
	}

	if strings.Contains(path, "/") {
		writeNotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	c, err := a.resources.FindConversation(r.Context(), path)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	if !a.engine.Decide(r.Context(), caller, policy.ActionRead, c.PolicyResource()).Allowed() {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) listConversations(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	scope := a.engine.Scope(r.Context(), caller, policy.KindConversation)
	items, err := a.resources.ListConversations(r.Context(), scope)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, listResponse[resource.Conversation]{Items: items, AsOf: time.Now().UTC()})
}

func (a *API) createConversation(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req createConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		writeError(w, r, http.StatusBadRequest, "subject is required")
		return
	}

	// Opening a thread is a messaging action, so pending accounts keep it.
	probe := policy.Resource{Kind: policy.KindConversation, OwnerID: caller.ID}
	if !a.engine.Decide(r.Context(), caller, policy.ActionMessage, probe).Allowed() {
		writeNotFound(w, r)
		return
	}

	c := &resource.Conversation{OwnerActorID: caller.ID, Subject: subject}
	if err := a.resources.CreateConversation(r.Context(), c); err != nil {
		handleResourceError(w, r, err)
		return
	}

	a.recordTrail(r.Context(), audit.Record{
		ActorID:    caller.ID,
		Action:     policy.ActionCreate,
		EntityType: "conversation",
		EntityID:   c.ID,
		NewValues:  map[string]any{"subject": c.Subject, "owner_actor_id": c.OwnerActorID},
		IPAddress:  clientIP(r),
	})

	w.Header().Set("Location", "/v1/conversations/"+c.ID)
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) assignConversation(w http.ResponseWriter, r *http.Request, caller actor.Actor, id string) {
	// Assignment is an operator action. The engine would also let an owner
	// through on the ownership rule, so the admin gate lives here.
	if caller.Status.Blocked() || caller.Role != actor.RoleAdmin {
		writeNotFound(w, r)
		return
	}

	var req assignConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	change, err := a.resources.AssignConversation(r.Context(), id, strings.TrimSpace(req.StaffActorID))
	if err != nil {
		handleResourceError(w, r, err)
		return
	}

	oldVals, newVals := change.Diff()
	a.recordTrail(r.Context(), audit.Record{
		ActorID:    caller.ID,
		Action:     policy.ActionAssign,
		EntityType: "conversation",
		EntityID:   change.New.ID,
		OldValues:  oldVals,
		NewValues:  newVals,
		IPAddress:  clientIP(r),
	})

	writeJSON(w, http.StatusOK, change.New)
}

// Documents -----------------------------------------------------------------

func (a *API) handleDocumentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listDocuments(w, r)
	case http.MethodPost:
		a.createDocument(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDocumentResource(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeNotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		d, err := a.resources.FindDocument(r.Context(), id)
		if err != nil {
			handleResourceError(w, r, err)
			return
		}
		if !a.engine.Decide(r.Context(), caller, policy.ActionRead, d.PolicyResource()).Allowed() {
			writeNotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, d)
	case http.MethodPatch:
		a.updateDocument(w, r, caller, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
	}
}

func (a *API) listDocuments(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	scope := a.engine.Scope(r.Context(), caller, policy.KindDocument)
	items, err := a.resources.ListDocuments(r.Context(), scope)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, listResponse[resource.Document]{Items: items, AsOf: time.Now().UTC()})
}

func (a *API) createDocument(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req createDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, r, http.StatusBadRequest, "title is required")
		return
	}

	probe := policy.Resource{Kind: policy.KindDocument, OwnerID: caller.ID}
	if !a.engine.Decide(r.Context(), caller, policy.ActionUpload, probe).Allowed() {
		writeNotFound(w, r)
		return
	}

	d := &resource.Document{OwnerActorID: caller.ID, Title: title, Content: req.Content}
	if err := a.resources.CreateDocument(r.Context(), d); err != nil {
		handleResourceError(w, r, err)
		return
	}

	a.recordTrail(r.Context(), audit.Record{
		ActorID:    caller.ID,
		Action:     policy.ActionCreate,
		EntityType: "document",
		EntityID:   d.ID,
		NewValues:  map[string]any{"title": d.Title, "owner_actor_id": d.OwnerActorID},
		IPAddress:  clientIP(r),
	})

	w.Header().Set("Location", "/v1/documents/"+d.ID)
	writeJSON(w, http.StatusCreated, d)
}

func (a *API) updateDocument(w http.ResponseWriter, r *http.Request, caller actor.Actor, id string) {
	var req updateDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == nil && req.Content == nil {
		writeError(w, r, http.StatusBadRequest, "no fields to update")
		return
	}

	d, err := a.resources.FindDocument(r.Context(), id)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	if !a.engine.Decide(r.Context(), caller, policy.ActionUpdate, d.PolicyResource()).Allowed() {
		writeNotFound(w, r)
		return
	}

	change, err := a.resources.UpdateDocument(r.Context(), id, resource.DocumentUpdate{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		handleResourceError(w, r, err)
		return
	}

	oldVals, newVals := change.Diff()
	if len(newVals) > 0 {
		a.recordTrail(r.Context(), audit.Record{
			ActorID:    caller.ID,
			Action:     policy.ActionUpdate,
			EntityType: "document",
			EntityID:   change.New.ID,
			OldValues:  oldVals,
			NewValues:  newVals,
			IPAddress:  clientIP(r),
		})
	}

	writeJSON(w, http.StatusOK, change.New)
}

// Projects ------------------------------------------------------------------

func (a *API) handleProjectsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listProjects(w, r)
	case http.MethodPost:
		a.createProject(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleProjectResource(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/projects/")
	if id == "" || strings.Contains(id, "/") {
		writeNotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	pr, err := a.resources.FindProject(r.Context(), id)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	if !a.engine.Decide(r.Context(), caller, policy.ActionRead, pr.PolicyResource()).Allowed() {
		writeNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

func (a *API) listProjects(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	scope := a.engine.Scope(r.Context(), caller, policy.KindProject)
	items, err := a.resources.ListProjects(r.Context(), scope)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, listResponse[resource.Project]{Items: items, AsOf: time.Now().UTC()})
}

func (a *API) createProject(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req createProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}

	probe := policy.Resource{Kind: policy.KindProject, OwnerID: caller.ID}
	if !a.engine.Decide(r.Context(), caller, policy.ActionCreate, probe).Allowed() {
		writeNotFound(w, r)
		return
	}

	pr := &resource.Project{OwnerActorID: caller.ID, Name: name, Summary: req.Summary}
	if err := a.resources.CreateProject(r.Context(), pr); err != nil {
		handleResourceError(w, r, err)
		return
	}

	a.recordTrail(r.Context(), audit.Record{
		ActorID:    caller.ID,
		Action:     policy.ActionCreate,
		EntityType: "project",
		EntityID:   pr.ID,
		NewValues:  map[string]any{"name": pr.Name, "owner_actor_id": pr.OwnerActorID},
		IPAddress:  clientIP(r),
	})

	w.Header().Set("Location", "/v1/projects/"+pr.ID)
	writeJSON(w, http.StatusCreated, pr)
}

// --- helpers ---

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("limit must be between 1 and 1000")
	}
	return val, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func handleResourceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, resource.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, resource.ErrNotFound):
		writeNotFound(w, r)
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// writeNotFound renders both true absence and policy denial identically, so
// a denied caller cannot distinguish "exists but hidden" from "missing".
func writeNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "resource not found")
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
