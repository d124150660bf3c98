package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"ticketd/internal/api"
	"ticketd/internal/models"
)

func decodeTicket(t *testing.T, body []byte) models.Ticket {
	t.Helper()
	var ticket models.Ticket
	if err := json.Unmarshal(body, &ticket); err != nil {
		t.Fatalf("decode ticket: %v (%s)", err, body)
	}
	return ticket
}

func TestStatusEndpointConflictBody(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	handler := srv.Handler()

	w := doJSON(t, handler, http.MethodPost, "/tickets", api.TicketCreateRequest{Title: "API contract"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	dep := decodeTicket(t, w.Body.Bytes())

	w = doJSON(t, handler, http.MethodPost, "/tickets", api.TicketCreateRequest{Title: "Client", DependsOn: []string{dep.ID}}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	ticket := decodeTicket(t, w.Body.Bytes())

	w = doJSON(t, handler, http.MethodPatch, "/tickets/"+ticket.ID+"/status", map[string]string{"status": "ongoing"}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%s)", w.Code, w.Body.String())
	}
	errResp := decodeErrorResponse(t, w)
	if errResp.Code != "dependency_blocked" || errResp.ErrorCode != ErrCodeDependencyBlocked {
		t.Fatalf("unexpected error body: %#v", errResp)
	}
	if errResp.Message == "" {
		t.Fatal("expected a message")
	}
	if len(errResp.Blockers) != 1 || errResp.Blockers[0].ID != dep.ID || errResp.Blockers[0].Status != models.StatusBacklog {
		t.Fatalf("unexpected blockers: %#v", errResp.Blockers)
	}

	var raw map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode raw body: %v", err)
	}
	blockers, ok := raw["blockers"].([]any)
	if !ok || len(blockers) != 1 {
		t.Fatalf("expected blockers array, got %v", raw["blockers"])
	}
	first, _ := blockers[0].(map[string]any)
	if first["_id"] != dep.ID || first["title"] != "API contract" {
		t.Fatalf("unexpected blocker json: %v", first)
	}

	w = doJSON(t, handler, http.MethodPatch, "/tickets/"+dep.ID+"/status", map[string]string{"status": "Done"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, handler, http.MethodPatch, "/tickets/"+ticket.ID+"/status", map[string]string{"status": "Ongoing"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if got := decodeTicket(t, w.Body.Bytes()); got.Status != models.StatusOngoing || got.BlockedBy {
		t.Fatalf("unexpected ticket after admit: %#v", got)
	}
}

func TestStatusEndpointErrors(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	handler := srv.Handler()
	ticket := createTicket(t, srv, "A", models.StatusBacklog)

	tests := []struct {
		name       string
		path       string
		body       any
		wantStatus int
		wantCode   int
	}{
		{name: "missing status", path: "/tickets/" + ticket.ID + "/status", body: map[string]string{}, wantStatus: http.StatusBadRequest, wantCode: ErrCodeMissingRequired},
		{name: "invalid status", path: "/tickets/" + ticket.ID + "/status", body: map[string]string{"status": "Closed"}, wantStatus: http.StatusBadRequest, wantCode: ErrCodeInvalidStatus},
		{name: "unknown ticket", path: "/tickets/tk-zzzz/status", body: map[string]string{"status": "QA"}, wantStatus: http.StatusNotFound, wantCode: ErrCodeTicketNotFound},
		{name: "malformed id", path: "/tickets/nope/status", body: map[string]string{"status": "QA"}, wantStatus: http.StatusNotFound, wantCode: ErrCodeTicketNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, handler, http.MethodPatch, tc.path, tc.body, nil)
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d (%s)", tc.wantStatus, w.Code, w.Body.String())
			}
			if got := decodeErrorResponse(t, w).ErrorCode; got != tc.wantCode {
				t.Fatalf("expected error_code %d, got %d", tc.wantCode, got)
			}
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		w := doJSON(t, handler, http.MethodPatch, "/tickets/"+ticket.ID+"/status", `{"status":`, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestTicketCRUDEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	handler := srv.Handler()

	w := doJSON(t, handler, http.MethodPost, "/tickets", api.TicketCreateRequest{Title: "CRUD", Priority: "high"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	ticket := decodeTicket(t, w.Body.Bytes())

	w = doJSON(t, handler, http.MethodGet, "/tickets/"+ticket.ID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var detail api.TicketDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.ID != ticket.ID || detail.Priority != models.PriorityHigh || detail.Dependents == nil {
		t.Fatalf("unexpected detail: %#v", detail)
	}

	w = doJSON(t, handler, http.MethodPatch, "/tickets/"+ticket.ID, map[string]any{"status": "Done"}, nil)
	if w.Code != http.StatusBadRequest || decodeErrorResponse(t, w).ErrorCode != ErrCodeStatusNotEditable {
		t.Fatalf("expected status edit refusal, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, handler, http.MethodPatch, "/tickets/"+ticket.ID, map[string]any{"title": "CRUD renamed"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if got := decodeTicket(t, w.Body.Bytes()); got.Title != "CRUD renamed" {
		t.Fatalf("unexpected title %q", got.Title)
	}

	w = doJSON(t, handler, http.MethodPut, "/tickets/"+ticket.ID+"/subtasks", api.SubtasksRequest{
		Subtasks: []api.SubtaskInput{{Title: "one", Status: "Ongoing"}},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if got := decodeTicket(t, w.Body.Bytes()); got.Status != models.StatusOngoing {
		t.Fatalf("expected derived Ongoing, got %q", got.Status)
	}

	w = doJSON(t, handler, http.MethodGet, "/tickets?status=ongoing", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var listed []models.Ticket
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != ticket.ID {
		t.Fatalf("unexpected list: %#v", listed)
	}

	w = doJSON(t, handler, http.MethodGet, "/tickets/"+ticket.ID+"/activity", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var activity []models.Activity
	if err := json.Unmarshal(w.Body.Bytes(), &activity); err != nil {
		t.Fatalf("decode activity: %v", err)
	}
	if len(activity) < 3 {
		t.Fatalf("expected created, updated and status entries, got %#v", activity)
	}

	w = doJSON(t, handler, http.MethodDelete, "/tickets/"+ticket.ID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	w = doJSON(t, handler, http.MethodGet, "/tickets/"+ticket.ID, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestCycleEndpointReturnsConflict(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	handler := srv.Handler()
	a := createTicket(t, srv, "a", models.StatusBacklog)
	b := createTicket(t, srv, "b", models.StatusBacklog, a.ID)

	w := doJSON(t, handler, http.MethodPatch, "/tickets/"+a.ID, map[string]any{"dependsOn": []string{b.ID}}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%s)", w.Code, w.Body.String())
	}
	errResp := decodeErrorResponse(t, w)
	if errResp.Code != "dependency_cycle" || errResp.ErrorCode != ErrCodeDependencyCycle {
		t.Fatalf("unexpected error body: %#v", errResp)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	handler := srv.Handler()

	w := doJSON(t, handler, http.MethodGet, "/health", nil, map[string]string{requestIDHeader: "req-123"})
	if got := w.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	w = doJSON(t, handler, http.MethodGet, "/health", nil, nil)
	if got := w.Header().Get(requestIDHeader); got == "" {
		t.Fatal("expected generated request id")
	}
}

func TestInfoEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	createTicket(t, srv, "a", models.StatusBacklog)
	createTicket(t, srv, "b", models.StatusDone)

	w := doJSON(t, srv.Handler(), http.MethodGet, "/info", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var info api.InfoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.TotalTickets != 2 || len(info.Statuses) != 5 || info.SchemaVersion == 0 {
		t.Fatalf("unexpected info: %#v", info)
	}
	if !strings.HasSuffix(info.DBPath, "ticketd-test.db") {
		t.Fatalf("unexpected db path %q", info.DBPath)
	}
}

func TestAdminReconcileEndpoint(t *testing.T) {
	t.Run("forbidden without configured token", func(t *testing.T) {
		srv, _ := newTestServer(t, Options{})
		w := doJSON(t, srv.Handler(), http.MethodPost, "/admin/reconcile", nil, map[string]string{adminTokenHeader: "anything"})
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	hash, err := HashAdminToken("admintoken")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	srv, st := newTestServer(t, Options{AdminTokenHash: hash})
	handler := srv.Handler()
	dep := createTicket(t, srv, "dependency", models.StatusBacklog)
	ticket := createTicket(t, srv, "dependent", models.StatusBacklog, dep.ID)
	forceBlocked(t, st, ticket.ID, false)

	w := doJSON(t, handler, http.MethodPost, "/admin/reconcile", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", w.Code)
	}
	w = doJSON(t, handler, http.MethodPost, "/admin/reconcile", nil, map[string]string{adminTokenHeader: "wrong"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong token, got %d", w.Code)
	}

	w = doJSON(t, handler, http.MethodPost, "/admin/reconcile", nil, map[string]string{adminTokenHeader: "admintoken"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp api.ReconcileResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode reconcile: %v", err)
	}
	if resp.Checked != 2 || len(resp.Corrected) != 1 || resp.Corrected[0].ID != ticket.ID || !resp.Corrected[0].BlockedBy {
		t.Fatalf("unexpected reconcile response: %#v", resp)
	}
}

func TestAuthenticatedProjectFlow(t *testing.T) {
	srv, _ := newTestServer(t, Options{JWTSecret: "s3cret", RequireAuth: true})
	handler := srv.Handler()

	w := doJSON(t, handler, http.MethodPost, "/projects", api.ProjectCreateRequest{Name: "Q3 Launch & Release"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	auth := map[string]string{"Authorization": "Bearer " + signToken(t, "s3cret", jwt.MapClaims{"userId": "alice"})}
	w = doJSON(t, handler, http.MethodPost, "/projects", api.ProjectCreateRequest{Name: "Q3 Launch & Release"}, auth)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var project models.Project
	if err := json.Unmarshal(w.Body.Bytes(), &project); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	if project.KeyPrefix != "QLR" {
		t.Fatalf("unexpected prefix %q", project.KeyPrefix)
	}

	w = doJSON(t, handler, http.MethodPost, "/projects/"+project.ID+"/members", api.MemberAddRequest{UserID: "bob", Role: "manager"}, auth)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, handler, http.MethodGet, "/projects/"+project.ID+"/members", nil, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var members []models.Member
	if err := json.Unmarshal(w.Body.Bytes(), &members); err != nil {
		t.Fatalf("decode members: %v", err)
	}
	roles := map[string]models.MemberRole{}
	for _, m := range members {
		roles[m.UserID] = m.Role
	}
	if roles["alice"] != models.RoleAdmin || roles["bob"] != models.RoleManager {
		t.Fatalf("unexpected members: %#v", members)
	}
	for _, m := range members {
		if m.UserID == "bob" && m.AddedBy != "alice" {
			t.Fatalf("expected bob added by alice, got %q", m.AddedBy)
		}
	}

	w = doJSON(t, handler, http.MethodGet, "/projects/pj-zzzz", nil, auth)
	if w.Code != http.StatusNotFound || decodeErrorResponse(t, w).ErrorCode != ErrCodeProjectNotFound {
		t.Fatalf("expected project 404, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestMemberGrantCannotBypassDoneRoles(t *testing.T) {
	srv, _ := newTestServer(t, Options{JWTSecret: "s3cret", DoneRoles: []models.MemberRole{models.RoleAdmin}})
	handler := srv.Handler()
	bearer := func(user string) map[string]string {
		return map[string]string{"Authorization": "Bearer " + signToken(t, "s3cret", jwt.MapClaims{"userId": user})}
	}

	w := doJSON(t, handler, http.MethodPost, "/projects", api.ProjectCreateRequest{Name: "Billing"}, bearer("alice"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var project models.Project
	if err := json.Unmarshal(w.Body.Bytes(), &project); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	w = doJSON(t, handler, http.MethodPost, "/tickets", api.TicketCreateRequest{ProjectID: project.ID, Title: "invoice export"}, bearer("alice"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	ticket := decodeTicket(t, w.Body.Bytes())
	statusPath := "/tickets/" + ticket.ID + "/status"
	membersPath := "/projects/" + project.ID + "/members"

	w = doJSON(t, handler, http.MethodPatch, statusPath, map[string]string{"status": "Done"}, bearer("mallory"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, handler, http.MethodPost, membersPath, api.MemberAddRequest{UserID: "mallory", Role: "admin"}, bearer("mallory"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for self promotion, got %d (%s)", w.Code, w.Body.String())
	}
	if got := decodeErrorResponse(t, w).ErrorCode; got != ErrCodeForbidden {
		t.Fatalf("expected error_code %d, got %d", ErrCodeForbidden, got)
	}

	w = doJSON(t, handler, http.MethodPatch, statusPath, map[string]string{"status": "Done"}, bearer("mallory"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected Done to stay forbidden, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, handler, http.MethodPost, membersPath, api.MemberAddRequest{UserID: "bob", Role: "manager"}, bearer("alice"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected admin grant to succeed, got %d (%s)", w.Code, w.Body.String())
	}
	w = doJSON(t, handler, http.MethodPost, membersPath, api.MemberAddRequest{UserID: "carol"}, bearer("bob"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected manager grant to succeed, got %d (%s)", w.Code, w.Body.String())
	}
	w = doJSON(t, handler, http.MethodPost, membersPath, api.MemberAddRequest{UserID: "carol", Role: "admin"}, bearer("carol"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected plain member grant to be refused, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, handler, http.MethodPatch, statusPath, map[string]string{"status": "Done"}, bearer("alice"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected project admin to reach Done, got %d (%s)", w.Code, w.Body.String())
	}
}
