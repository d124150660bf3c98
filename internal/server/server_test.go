package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"ticketd/internal/api"
)

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:7480")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:7480" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		_, err := ListenAddr("http://0.0.0.0:7480")
		if err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:7480")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:7480" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestWithAuth(t *testing.T) {
	var seen Caller
	var nextCalled bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		seen, _ = callerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	serve := func(srv *Server, path, token string) *httptest.ResponseRecorder {
		nextCalled = false
		seen = Caller{}
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		srv.withAuth(next).ServeHTTP(w, req)
		return w
	}

	t.Run("denies missing auth when required", func(t *testing.T) {
		srv := &Server{jwtSecret: "s3cret", requireAuth: true}
		w := serve(srv, "/tickets", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
			t.Fatalf("decode error response: %v", err)
		}
		if errResp.ErrorCode != ErrCodeUnauthorized {
			t.Fatalf("expected error_code %d, got %d", ErrCodeUnauthorized, errResp.ErrorCode)
		}
		if nextCalled {
			t.Fatal("next handler should not be called")
		}
	})

	t.Run("health is always open", func(t *testing.T) {
		srv := &Server{jwtSecret: "s3cret", requireAuth: true}
		if w := serve(srv, "/health", ""); w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
	})

	t.Run("anonymous allowed when not required", func(t *testing.T) {
		srv := &Server{}
		w := serve(srv, "/tickets", "")
		if w.Code != http.StatusNoContent || !nextCalled {
			t.Fatalf("expected pass-through, got %d", w.Code)
		}
		if seen.UserID != "" {
			t.Fatalf("expected no caller, got %#v", seen)
		}
	})

	t.Run("verified token sets caller", func(t *testing.T) {
		srv := &Server{jwtSecret: "s3cret", requireAuth: true}
		token := signToken(t, "s3cret", jwt.MapClaims{"userId": "alice"})
		w := serve(srv, "/tickets", token)
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
		if seen.UserID != "alice" || !seen.Verified {
			t.Fatalf("unexpected caller: %#v", seen)
		}
	})

	t.Run("subject is the fallback user id", func(t *testing.T) {
		srv := &Server{jwtSecret: "s3cret"}
		token := signToken(t, "s3cret", jwt.MapClaims{"sub": "bob"})
		if w := serve(srv, "/tickets", token); w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
		if seen.UserID != "bob" {
			t.Fatalf("unexpected caller: %#v", seen)
		}
	})

	t.Run("rejects bad signature", func(t *testing.T) {
		srv := &Server{jwtSecret: "s3cret"}
		token := signToken(t, "other", jwt.MapClaims{"userId": "mallory"})
		if w := serve(srv, "/tickets", token); w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("rejects token without user", func(t *testing.T) {
		srv := &Server{jwtSecret: "s3cret"}
		token := signToken(t, "s3cret", jwt.MapClaims{"role": "admin"})
		if w := serve(srv, "/tickets", token); w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("unverified token used for attribution without secret", func(t *testing.T) {
		srv := &Server{}
		token := signToken(t, "whatever", jwt.MapClaims{"userId": "carol"})
		if w := serve(srv, "/tickets", token); w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
		if seen.UserID != "carol" || seen.Verified {
			t.Fatalf("unexpected caller: %#v", seen)
		}
	})
}
