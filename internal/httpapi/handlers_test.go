package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"clienthub.org/internal/actor"
	"clienthub.org/internal/assignment"
	"clienthub.org/internal/audit"
	"clienthub.org/internal/policy"
	"clienthub.org/internal/resource"
)

type testEnv struct {
	t       *testing.T
	baseURL string
	client  *http.Client

	actors *actor.MemoryStore
	trail  *audit.MemoryStore
}

var _ assignment.Index = (*resource.MemoryStore)(nil)

func newTestAPI(t *testing.T) *testEnv {
	t.Helper()

	t.Setenv("CLIENTHUB_AUTH_SECRET", "test-secret")
	ResetSecretForTests()

	actors := actor.NewMemoryStore()
	resources := resource.NewMemoryStore()
	trail := audit.NewMemoryStore()

	directory, err := actor.NewDirectory(actors)
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	svc, err := actor.NewService(actors)
	if err != nil {
		t.Fatalf("actor service: %v", err)
	}
	engine, err := policy.NewEngine(resources)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	recorder, err := audit.NewRecorder(trail)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}

	api, err := New(ReadyProbe{}, "test", Deps{
		Directory: directory,
		Actors:    svc,
		Engine:    engine,
		Recorder:  recorder,
		Resources: resources,
	})
	if err != nil {
		t.Fatalf("api: %v", err)
	}
	api.rateBurst = 1000
	api.ratePerSecond = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{
		t:       t,
		baseURL: srv.URL,
		client:  srv.Client(),
		actors:  actors,
		trail:   trail,
	}
}

func (e *testEnv) do(method, path string, body any, token string) *http.Response {
	e.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (e *testEnv) get(path string, params url.Values, token string) *http.Response {
	e.t.Helper()
	if params != nil {
		path += "?" + params.Encode()
	}
	return e.do(http.MethodGet, path, nil, token)
}

// seed creates an actor directly in the store and mints a token for it.
func (e *testEnv) seed(externalID string, role actor.Role, status actor.Status) (actor.Actor, string) {
	e.t.Helper()
	a := &actor.Actor{ExternalID: externalID, Role: role, Status: status}
	if err := e.actors.Create(context.Background(), a); err != nil {
		e.t.Fatalf("seed actor: %v", err)
	}
	return *a, e.obtainToken(externalID)
}

func (e *testEnv) obtainToken(externalID string) string {
	e.t.Helper()
	resp := e.do(http.MethodPost, "/v1/auth/token", map[string]any{"external_id": externalID}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		e.t.Fatalf("unexpected token status: %d", resp.StatusCode)
	}
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		e.t.Fatalf("decode token response: %v", err)
	}
	if payload.Token == "" {
		e.t.Fatal("empty token issued")
	}
	return payload.Token
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d", resp.StatusCode, want)
	}
}

func TestAuthTokenProvisionsPendingUser(t *testing.T) {
	env := newTestAPI(t)

	resp := env.do(http.MethodPost, "/v1/auth/token", map[string]any{"external_id": "idp|alice"}, "")
	wantStatus(t, resp, http.StatusOK)
	payload := decode[tokenResponse](t, resp)

	if payload.Actor.Role != actor.RoleUser {
		t.Fatalf("role = %s, want user", payload.Actor.Role)
	}
	if payload.Actor.Status != actor.StatusPending {
		t.Fatalf("status = %s, want pending", payload.Actor.Status)
	}

	// A second token request reuses the provisioned actor.
	resp = env.do(http.MethodPost, "/v1/auth/token", map[string]any{"external_id": "idp|alice"}, "")
	wantStatus(t, resp, http.StatusOK)
	again := decode[tokenResponse](t, resp)
	if again.Actor.ID != payload.Actor.ID {
		t.Fatalf("provisioned twice: %s vs %s", again.Actor.ID, payload.Actor.ID)
	}

	// Provisioning left exactly one system entry in the trail.
	if got := env.trail.Len(); got != 1 {
		t.Fatalf("trail entries = %d, want 1", got)
	}
}

func TestRequestsWithoutValidToken(t *testing.T) {
	env := newTestAPI(t)

	resp := env.get("/v1/documents", nil, "")
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = env.get("/v1/documents", nil, "not-a-jwt")
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	// A valid token for an identity that vanished from the directory.
	token, err := GenerateToken("idp|ghost", tokenTTL)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	resp = env.get("/v1/documents", nil, token)
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestPendingUserKeepsMessagingAndUploadOnly(t *testing.T) {
	env := newTestAPI(t)
	token := env.obtainToken("idp|pending")

	resp := env.do(http.MethodPost, "/v1/conversations", map[string]any{"subject": "help"}, token)
	wantStatus(t, resp, http.StatusCreated)
	conv := decode[resource.Conversation](t, resp)

	resp = env.do(http.MethodPost, "/v1/documents", map[string]any{"title": "passport", "content": "scan"}, token)
	wantStatus(t, resp, http.StatusCreated)
	doc := decode[resource.Document](t, resp)

	// Projects are out of reach while pending, rendered as absence.
	resp = env.do(http.MethodPost, "/v1/projects", map[string]any{"name": "website"}, token)
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	// Listings still show the pending user's own rows.
	resp = env.get("/v1/conversations", nil, token)
	wantStatus(t, resp, http.StatusOK)
	convs := decode[listResponse[resource.Conversation]](t, resp)
	if len(convs.Items) != 1 || convs.Items[0].ID != conv.ID {
		t.Fatalf("conversations = %+v", convs.Items)
	}

	resp = env.get("/v1/documents", nil, token)
	wantStatus(t, resp, http.StatusOK)
	docs := decode[listResponse[resource.Document]](t, resp)
	if len(docs.Items) != 1 || docs.Items[0].ID != doc.ID {
		t.Fatalf("documents = %+v", docs.Items)
	}

	resp = env.get("/v1/projects", nil, token)
	wantStatus(t, resp, http.StatusOK)
	projects := decode[listResponse[resource.Project]](t, resp)
	if len(projects.Items) != 0 {
		t.Fatalf("projects = %+v", projects.Items)
	}

	// General actions stay denied even on owned rows.
	resp = env.get("/v1/documents/"+doc.ID, nil, token)
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestForeignResourceRendersAsNotFound(t *testing.T) {
	env := newTestAPI(t)
	_, ownerToken := env.seed("idp|owner", actor.RoleUser, actor.StatusActive)
	_, otherToken := env.seed("idp|other", actor.RoleUser, actor.StatusActive)

	resp := env.do(http.MethodPost, "/v1/documents", map[string]any{"title": "invoice"}, ownerToken)
	wantStatus(t, resp, http.StatusCreated)
	doc := decode[resource.Document](t, resp)

	resp = env.get("/v1/documents/"+doc.ID, nil, ownerToken)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	// The denial is byte-for-byte the answer for a missing id.
	resp = env.get("/v1/documents/"+doc.ID, nil, otherToken)
	wantStatus(t, resp, http.StatusNotFound)
	denied := decode[map[string]any](t, resp)

	resp = env.get("/v1/documents/does-not-exist", nil, otherToken)
	wantStatus(t, resp, http.StatusNotFound)
	missing := decode[map[string]any](t, resp)

	if denied["error"] != missing["error"] {
		t.Fatalf("denied=%q missing=%q must be indistinguishable", denied["error"], missing["error"])
	}

	title := "stolen"
	resp = env.do(http.MethodPatch, "/v1/documents/"+doc.ID, map[string]any{"title": title}, otherToken)
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestDocumentUpdateRecordsDiff(t *testing.T) {
	env := newTestAPI(t)
	owner, token := env.seed("idp|owner", actor.RoleUser, actor.StatusActive)

	resp := env.do(http.MethodPost, "/v1/documents", map[string]any{"title": "X", "content": "body"}, token)
	wantStatus(t, resp, http.StatusCreated)
	doc := decode[resource.Document](t, resp)

	resp = env.do(http.MethodPatch, "/v1/documents/"+doc.ID, map[string]any{"title": "Y"}, token)
	wantStatus(t, resp, http.StatusOK)
	updated := decode[resource.Document](t, resp)
	if updated.Title != "Y" || updated.Content != "body" {
		t.Fatalf("updated = %+v", updated)
	}

	entries, _, err := env.trail.Query(context.Background(), audit.Filter{
		EntityType: "document",
		Action:     policy.ActionUpdate,
	}, 10, "")
	if err != nil {
		t.Fatalf("query trail: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("update entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ActorID != owner.ID || e.EntityID != doc.ID {
		t.Fatalf("entry = %+v", e)
	}
	var oldVals, newVals map[string]string
	if err := json.Unmarshal(e.OldValues, &oldVals); err != nil {
		t.Fatalf("old values: %v", err)
	}
	if err := json.Unmarshal(e.NewValues, &newVals); err != nil {
		t.Fatalf("new values: %v", err)
	}
	if oldVals["title"] != "X" || newVals["title"] != "Y" {
		t.Fatalf("diff old=%v new=%v", oldVals, newVals)
	}
	if _, ok := oldVals["content"]; ok {
		t.Fatal("content did not change and must not be snapshotted")
	}
}

func TestAssignmentDrivesStaffVisibility(t *testing.T) {
	env := newTestAPI(t)
	_, userToken := env.seed("idp|client", actor.RoleUser, actor.StatusActive)
	staff, staffToken := env.seed("idp|staff", actor.RoleStaff, actor.StatusActive)
	_, adminToken := env.seed("idp|admin", actor.RoleAdmin, actor.StatusActive)

	resp := env.do(http.MethodPost, "/v1/conversations", map[string]any{"subject": "migration"}, userToken)
	wantStatus(t, resp, http.StatusCreated)
	conv := decode[resource.Conversation](t, resp)

	resp = env.do(http.MethodPost, "/v1/documents", map[string]any{"title": "notes"}, userToken)
	wantStatus(t, resp, http.StatusCreated)
	doc := decode[resource.Document](t, resp)

	// Before assignment the staff member sees nothing of the client.
	resp = env.get("/v1/documents/"+doc.ID, nil, staffToken)
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	// Owners cannot assign; only admin can.
	resp = env.do(http.MethodPost, "/v1/conversations/"+conv.ID+"/assignment",
		map[string]any{"staff_actor_id": staff.ID}, userToken)
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = env.do(http.MethodPost, "/v1/conversations/"+conv.ID+"/assignment",
		map[string]any{"staff_actor_id": staff.ID}, adminToken)
	wantStatus(t, resp, http.StatusOK)
	assigned := decode[resource.Conversation](t, resp)
	if assigned.AssignedStaffID != staff.ID {
		t.Fatalf("assigned_staff_id = %q", assigned.AssignedStaffID)
	}

	// The assignment pulls the conversation and the owner's documents into view.
	resp = env.get("/v1/conversations", nil, staffToken)
	wantStatus(t, resp, http.StatusOK)
	convs := decode[listResponse[resource.Conversation]](t, resp)
	if len(convs.Items) != 1 || convs.Items[0].ID != conv.ID {
		t.Fatalf("staff conversations = %+v", convs.Items)
	}

	resp = env.get("/v1/documents/"+doc.ID, nil, staffToken)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	// Revocation removes visibility on the next request.
	resp = env.do(http.MethodPost, "/v1/conversations/"+conv.ID+"/assignment",
		map[string]any{"staff_actor_id": ""}, adminToken)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.get("/v1/documents/"+doc.ID, nil, staffToken)
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = env.get("/v1/conversations", nil, staffToken)
	wantStatus(t, resp, http.StatusOK)
	convs = decode[listResponse[resource.Conversation]](t, resp)
	if len(convs.Items) != 0 {
		t.Fatalf("staff conversations after revocation = %+v", convs.Items)
	}
}

func TestActorLifecycleEndpoints(t *testing.T) {
	env := newTestAPI(t)
	_, adminToken := env.seed("idp|admin", actor.RoleAdmin, actor.StatusActive)
	target, targetToken := env.seed("idp|bob", actor.RoleUser, actor.StatusPending)

	resp := env.get("/v1/actors/me", nil, targetToken)
	wantStatus(t, resp, http.StatusOK)
	me := decode[actor.Actor](t, resp)
	if me.ID != target.ID {
		t.Fatalf("me = %+v", me)
	}

	// Non-admin callers get the masked answer.
	resp = env.do(http.MethodPatch, "/v1/actors/"+target.ID, map[string]any{"status": "active"}, targetToken)
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = env.do(http.MethodPatch, "/v1/actors/"+target.ID,
		map[string]any{"role": "staff", "status": "active"}, adminToken)
	wantStatus(t, resp, http.StatusOK)
	updated := decode[actor.Actor](t, resp)
	if updated.Role != actor.RoleStaff || updated.Status != actor.StatusActive {
		t.Fatalf("updated = %+v", updated)
	}

	// The transition takes effect on the target's very next request.
	resp = env.do(http.MethodPost, "/v1/projects", map[string]any{"name": "site"}, targetToken)
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = env.do(http.MethodPatch, "/v1/actors/"+target.ID, map[string]any{"status": "banned"}, adminToken)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.get("/v1/documents", nil, targetToken)
	wantStatus(t, resp, http.StatusOK)
	docs := decode[listResponse[resource.Document]](t, resp)
	if len(docs.Items) != 0 {
		t.Fatalf("banned actor listed %d documents", len(docs.Items))
	}
}

func TestAuditQueryGating(t *testing.T) {
	env := newTestAPI(t)
	user, userToken := env.seed("idp|user", actor.RoleUser, actor.StatusActive)
	other, otherToken := env.seed("idp|other", actor.RoleUser, actor.StatusActive)
	_, adminToken := env.seed("idp|admin", actor.RoleAdmin, actor.StatusActive)

	resp := env.do(http.MethodPost, "/v1/documents", map[string]any{"title": "a"}, userToken)
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()
	resp = env.do(http.MethodPost, "/v1/documents", map[string]any{"title": "b"}, otherToken)
	wantStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	// Admin sees everything.
	resp = env.get("/v1/audit", nil, adminToken)
	wantStatus(t, resp, http.StatusOK)
	all := decode[listAuditResponse](t, resp)
	if len(all.Items) != 2 {
		t.Fatalf("admin sees %d entries, want 2", len(all.Items))
	}

	// A user is pinned to their own history regardless of filters.
	resp = env.get("/v1/audit", nil, userToken)
	wantStatus(t, resp, http.StatusOK)
	mine := decode[listAuditResponse](t, resp)
	if len(mine.Items) != 1 || mine.Items[0].ActorID != user.ID {
		t.Fatalf("user entries = %+v", mine.Items)
	}

	// Asking for someone else's trail is masked.
	resp = env.get("/v1/audit", url.Values{"actor_id": {other.ID}}, userToken)
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestHealthEndpointsArePublic(t *testing.T) {
	env := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp := env.get(path, nil, "")
		wantStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}
}
