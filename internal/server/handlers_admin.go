package server

import (
	"net/http"
)

func (s *Server) handleAdminReconcile(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	resp, err := s.tickets.Reconcile(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.log().Info("reconcile complete", "checked", resp.Checked, "corrected", len(resp.Corrected))
	s.writeJSON(w, http.StatusOK, resp)
}
