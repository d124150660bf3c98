package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /info", s.handleInfo)

	// Tickets collection.
	mux.HandleFunc("POST /tickets", s.handleCreateTicket)
	mux.HandleFunc("GET /tickets", s.handleListTickets)

	// Single ticket.
	mux.HandleFunc("GET /tickets/{ticketId}", s.handleGetTicket)
	mux.HandleFunc("PATCH /tickets/{ticketId}", s.handleUpdateTicket)
	mux.HandleFunc("DELETE /tickets/{ticketId}", s.handleDeleteTicket)

	// Status transitions.
	mux.HandleFunc("PATCH /tickets/{ticketId}/status", s.handleUpdateStatus)

	// Subtasks and activity.
	mux.HandleFunc("PUT /tickets/{ticketId}/subtasks", s.handleSetSubtasks)
	mux.HandleFunc("GET /tickets/{ticketId}/activity", s.handleListActivity)

	// Projects and members.
	mux.HandleFunc("POST /projects", s.handleCreateProject)
	mux.HandleFunc("GET /projects", s.handleListProjects)
	mux.HandleFunc("GET /projects/{projectId}", s.handleGetProject)
	mux.HandleFunc("GET /projects/{projectId}/members", s.handleListMembers)
	mux.HandleFunc("POST /projects/{projectId}/members", s.handleAddMember)

	// Admin.
	mux.HandleFunc("POST /admin/reconcile", s.handleAdminReconcile)

	return mux
}
