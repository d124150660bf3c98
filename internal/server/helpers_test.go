package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ticketd/internal/api"
	"ticketd/internal/models"
	"ticketd/internal/store"
)

func newTestServer(t *testing.T, opts Options) (*Server, *store.Store) {
	t.Helper()
	t.Setenv(allowRemoteEnvKey, "")

	dbPath := filepath.Join(t.TempDir(), "ticketd-test.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})

	opts.DBPath = dbPath
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New("127.0.0.1:0", st, opts, logger), st
}

func createTicket(t *testing.T, srv *Server, title string, status models.Status, deps ...string) models.Ticket {
	t.Helper()
	ticket, err := srv.tickets.Create(context.Background(), api.TicketCreateRequest{
		Title:     title,
		Status:    string(status),
		DependsOn: deps,
	})
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return ticket
}

func transition(t *testing.T, srv *Server, id string, status models.Status) models.Ticket {
	t.Helper()
	ticket, err := srv.statuses.Transition(context.Background(), id, api.StatusUpdateRequest{Status: string(status)})
	if err != nil {
		t.Fatalf("transition %s -> %s: %v", id, status, err)
	}
	return ticket
}

func mustState(t *testing.T, st *store.Store, id string) models.TicketState {
	t.Helper()
	state, err := st.GetTicketState(context.Background(), id)
	if err != nil {
		t.Fatalf("get state %s: %v", id, err)
	}
	if state == nil {
		t.Fatalf("ticket %s not found", id)
	}
	return *state
}

func forceBlocked(t *testing.T, st *store.Store, id string, blocked bool) {
	t.Helper()
	if err := st.SetFlags(context.Background(), []string{id}, store.SetBlocked(blocked, time.Now().UTC())); err != nil {
		t.Fatalf("set blocked on %s: %v", id, err)
	}
}

func asCaller(userID string) context.Context {
	return contextWithCaller(context.Background(), Caller{UserID: userID, Verified: true})
}

func asUnverifiedCaller(userID string) context.Context {
	return contextWithCaller(context.Background(), Caller{UserID: userID})
}

func assertAPIErrorStatusAndCode(t *testing.T, err error, wantStatus, wantCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected HTTP %d error, got nil", wantStatus)
	}
	if got := httpStatusFromError(err); got != wantStatus {
		t.Fatalf("expected HTTP %d, got %d (%v)", wantStatus, got, err)
	}
	var apiErr apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected apiError, got %T", err)
	}
	if apiErr.errCode != wantCode {
		t.Fatalf("expected error_code %d, got %d", wantCode, apiErr.errCode)
	}
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if raw, ok := body.(string); ok {
		reader = strings.NewReader(raw)
	} else if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeErrorResponse(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v (%s)", err, w.Body.String())
	}
	return resp
}
