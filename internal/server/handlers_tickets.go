package server

import (
	"net/http"
	"strings"

	"ticketd/internal/api"
	"ticketd/internal/store"
)

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req api.TicketCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	ticket, err := s.tickets.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, ticket)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	query := r.URL.Query()
	filter := store.ListFilter{
		ProjectID: strings.TrimSpace(query.Get("projectId")),
		Statuses:  splitCSV(query.Get("status")),
		Assignee:  strings.TrimSpace(query.Get("assignee")),
		Limit:     limit,
		Offset:    offset,
	}

	tickets, err := s.tickets.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "ticketId", validateTicketID)
	if !ok {
		return
	}

	resp, err := s.tickets.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "ticketId", validateTicketID)
	if !ok {
		return
	}
	var req api.TicketUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	ticket, err := s.tickets.Update(r.Context(), id, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "ticketId", validateTicketID)
	if !ok {
		return
	}

	if err := s.tickets.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"_id": id, "deleted": true})
}

func (s *Server) handleSetSubtasks(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "ticketId", validateTicketID)
	if !ok {
		return
	}
	var req api.SubtasksRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	ticket, err := s.tickets.SetSubtasks(r.Context(), id, req.Subtasks)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r, "ticketId", validateTicketID)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	activity, err := s.tickets.Activity(r.Context(), id, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, activity)
}
