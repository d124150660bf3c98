package server

import (
	"net/http"

	"ticketd/internal/api"
)

// handleUpdateStatus is PATCH /tickets/{ticketId}/status. A 409 body lists
// the unfinished dependencies under "blockers".
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrNotFound(w, r, "ticketId", validateTicketID)
	if !ok {
		return
	}
	var req api.StatusUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	ticket, err := s.statuses.Transition(r.Context(), id, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ticket)
}
