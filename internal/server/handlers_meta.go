package server

import (
	"net/http"

	"ticketd/internal/api"
	"ticketd/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.StoreInfo(r.Context())
	if err != nil {
		s.writeServiceError(w, r, storeFailure(err))
		return
	}

	resp := api.InfoResponse{
		DBPath:        s.dbPath,
		SchemaVersion: info.SchemaVersion,
		Statuses:      models.StatusStrings(),
		TicketCounts:  info.TicketCounts,
		TotalTickets:  info.TotalTickets,
	}

	s.writeJSON(w, http.StatusOK, resp)
}
