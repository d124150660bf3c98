package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"ticketd/internal/models"
	"ticketd/internal/store"
)

const (
	allowRemoteEnvKey = "TICKETD_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
)

// Options configures authentication and the Done policy.
type Options struct {
	DBPath         string
	JWTSecret      string
	RequireAuth    bool
	AdminTokenHash string
	// DoneRoles restricts who may move project tickets to Done.
	DoneRoles []models.MemberRole
	// DowngradeDenied turns a refused Done into QA instead of a 403.
	DowngradeDenied bool
}

// Server wraps HTTP handlers for the ticketd API.
type Server struct {
	addr           string
	dbPath         string
	store          store.TicketStore
	tickets        *TicketService
	statuses       *StatusService
	projects       *ProjectService
	logger         *slog.Logger
	jwtSecret      string
	requireAuth    bool
	adminTokenHash string
	adminLimiter   *attemptLimiter
}

// New creates a new server instance.
func New(addr string, ticketStore store.TicketStore, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	// Every write path shares one lock so a transition never interleaves
	// with an edit of the same dependency graph.
	writeMu := &sync.Mutex{}

	return &Server{
		addr:           addr,
		dbPath:         opts.DBPath,
		store:          ticketStore,
		tickets:        NewTicketService(ticketStore, writeMu),
		statuses:       NewStatusService(ticketStore, writeMu, DonePolicy{Roles: opts.DoneRoles, Downgrade: opts.DowngradeDenied}),
		projects:       NewProjectService(ticketStore),
		logger:         logger,
		jwtSecret:      strings.TrimSpace(opts.JWTSecret),
		requireAuth:    opts.RequireAuth,
		adminTokenHash: strings.TrimSpace(opts.AdminTokenHash),
		adminLimiter:   newAttemptLimiter(adminMaxFailures, adminFailureSpan, adminLockout),
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.withRequestLogging(s.withAuth(s.routes())))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr, "require_auth", s.requireAuth)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
