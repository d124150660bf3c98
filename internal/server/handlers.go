package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"ticketd/internal/api"
)

const maxJSONBody = 1 << 20

// writeErrorReq logs a failed request at a level matching its status and
// writes the JSON error body. 5xx details stay in the log.
func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, status int, err error) {
	apiErr := resolveAPIError(status, err)
	message := apiErr.Error()
	if err != nil {
		message = err.Error()
	}

	fields := []any{"status", status, "code", apiErr.code, "error_code", apiErr.errCode, "error", message}
	if r != nil {
		fields = append(fields, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
		if id := requestIDFromContext(r.Context()); id != "" {
			fields = append(fields, "request_id", id)
		}
	}

	switch {
	case status >= http.StatusInternalServerError:
		s.log().Error("request error", fields...)
		message = "internal error"
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusTooManyRequests:
		s.log().Warn("request rejected", fields...)
	default:
		s.log().Debug("request rejected", fields...)
	}

	s.writeJSON(w, status, api.ErrorResponse{
		Error:     message,
		Message:   message,
		Code:      apiErr.code,
		ErrorCode: apiErr.errCode,
		Blockers:  apiErr.blockers,
	})
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, httpStatusFromError(err), err)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}

// decodeJSONReq decodes a size-limited body into dst, writing a 400 and
// returning false on failure.
func (s *Server) decodeJSONReq(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		err = badRequestCode(errors.New("request body too large"), ErrCodeRequestTooLarge)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		err = badRequestCode(errors.New("invalid JSON payload"), ErrCodeInvalidJSON)
	default:
		err = badRequestCode(err, ErrCodeInvalidJSON)
	}
	s.writeErrorReq(w, r, http.StatusBadRequest, err)
	return false
}

func (s *Server) pathIDOrBadRequest(w http.ResponseWriter, r *http.Request, name string, valid func(string) bool) (string, bool) {
	id := strings.TrimSpace(r.PathValue(name))
	if !valid(id) {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("invalid %s", name), ErrCodeInvalidID))
		return "", false
	}
	return id, true
}

// pathIDOrNotFound is pathIDOrBadRequest for routes whose only documented
// failure for an unknown id is 404: a malformed id names no ticket.
func (s *Server) pathIDOrNotFound(w http.ResponseWriter, r *http.Request, name string, valid func(string) bool) (string, bool) {
	id := strings.TrimSpace(r.PathValue(name))
	if !valid(id) {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("ticket not found: %s", id), ErrCodeTicketNotFound))
		return "", false
	}
	return id, true
}

// splitCSV splits a comma separated query value, dropping empty items.
func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// queryInt parses a non-negative integer query parameter. Absent is 0.
func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 0, badRequestCode(fmt.Errorf("invalid %s", key), ErrCodeInvalidQuery)
	case n < 0:
		return 0, badRequestCode(fmt.Errorf("%s must be >= 0", key), ErrCodeInvalidQuery)
	}
	return n, nil
}
