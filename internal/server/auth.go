package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ticketd/internal/auth"
)

const (
	adminTokenHeader = "X-Admin-Token"
	userIDClaim      = "userId"
)

type callerContextKey struct{}

// Caller is the identity attached to a request by withAuth.
type Caller struct {
	UserID string
	// Verified is true when the bearer token signature was checked.
	Verified bool
}

func contextWithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

func callerFromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	caller, ok := ctx.Value(callerContextKey{}).(Caller)
	return caller, ok && caller.UserID != ""
}

// withAuth resolves the bearer token into a Caller. With a JWT secret the
// token must verify as HS256; without one it is decoded unverified and only
// used for attribution.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		raw, hasToken := bearerToken(r)
		if !hasToken {
			if s.requireAuth {
				s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(errors.New("authentication required")))
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		caller, err := s.parseCaller(raw)
		if err != nil {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithCaller(r.Context(), caller)))
	})
}

func (s *Server) parseCaller(raw string) (Caller, error) {
	claims := jwt.MapClaims{}
	verified := s.jwtSecret != ""
	if verified {
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return []byte(s.jwtSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return Caller{}, fmt.Errorf("invalid token: %w", err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return Caller{}, fmt.Errorf("invalid token: %w", err)
		}
	}

	userID, _ := claims[userIDClaim].(string)
	if userID == "" {
		userID, _ = claims.GetSubject()
	}
	if strings.TrimSpace(userID) == "" {
		return Caller{}, errors.New("token has no user id")
	}
	return Caller{UserID: strings.TrimSpace(userID), Verified: verified}, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// requireAdmin checks X-Admin-Token against the configured bcrypt hash.
// Clients that keep presenting bad tokens are locked out for a while.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	client := clientKey(r)
	now := time.Now()
	if s.adminLimiter.Locked(client, now) {
		s.writeErrorReq(w, r, http.StatusTooManyRequests, makeAPIError(
			http.StatusTooManyRequests, "resource_exhausted", ErrCodeResourceExhausted,
			errors.New("too many failed admin attempts"),
		))
		return false
	}
	if s.adminTokenHash == "" {
		s.writeErrorReq(w, r, http.StatusForbidden, forbiddenCode(errors.New("admin token is not configured"), ErrCodeForbidden))
		return false
	}
	token := strings.TrimSpace(r.Header.Get(adminTokenHeader))
	if token == "" {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(errors.New("admin token required")))
		return false
	}
	if !auth.VerifyToken(s.adminTokenHash, token) {
		s.adminLimiter.Fail(client, now)
		s.writeErrorReq(w, r, http.StatusForbidden, forbiddenCode(errors.New("invalid admin token"), ErrCodeForbidden))
		return false
	}
	s.adminLimiter.Clear(client)
	return true
}

// HashAdminToken returns the bcrypt hash stored as auth.admin_token_hash.
func HashAdminToken(token string) (string, error) {
	return auth.HashToken(token)
}
