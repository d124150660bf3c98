package server

import (
	"errors"
	"net/http"

	"ticketd/internal/workflow"
)

// apiError carries the HTTP status and both error codes of a failure.
// Blockers is set only on dependency conflicts.
type apiError struct {
	status   int
	code     string
	errCode  int
	err      error
	blockers []workflow.Blocker
}

func (e apiError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e apiError) Unwrap() error {
	return e.err
}

type statusDefault struct {
	code    string
	errCode int
}

var statusDefaults = map[int]statusDefault{
	http.StatusBadRequest:          {"invalid_argument", ErrCodeInvalidArgument},
	http.StatusUnauthorized:        {"unauthorized", ErrCodeUnauthorized},
	http.StatusForbidden:           {"forbidden", ErrCodeForbidden},
	http.StatusNotFound:            {"not_found", ErrCodeTicketNotFound},
	http.StatusConflict:            {"conflict", ErrCodeConflict},
	http.StatusTooManyRequests:     {"resource_exhausted", ErrCodeResourceExhausted},
	http.StatusInternalServerError: {"internal", ErrCodeInternal},
}

// makeAPIError wraps err unless it already carries a status, in which case
// the inner classification wins.
func makeAPIError(status int, code string, errCode int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	var existing apiError
	if errors.As(err, &existing) && existing.status != 0 {
		return existing
	}
	return apiError{status: status, code: code, errCode: errCode, err: err}
}

// resolveAPIError classifies err for a response with the given status,
// filling missing codes from the status defaults.
func resolveAPIError(status int, err error) apiError {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	var out apiError
	if !errors.As(err, &out) {
		out = apiError{err: err}
	}
	out.status = status
	def := statusDefaults[status]
	if out.code == "" {
		out.code = def.code
	}
	if out.errCode == 0 {
		out.errCode = def.errCode
	}
	return out
}

func httpStatusFromError(err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.status != 0 {
		return apiErr.status
	}
	return http.StatusInternalServerError
}

func errorBlockers(err error) []workflow.Blocker {
	var apiErr apiError
	if errors.As(err, &apiErr) {
		return apiErr.blockers
	}
	return nil
}

func badRequestCode(err error, code int) error {
	return makeAPIError(http.StatusBadRequest, "invalid_argument", code, err)
}

func notFound(err error) error {
	return notFoundCode(err, ErrCodeTicketNotFound)
}

func notFoundCode(err error, code int) error {
	return makeAPIError(http.StatusNotFound, "not_found", code, err)
}

func conflictCode(err error, code int) error {
	return makeAPIError(http.StatusConflict, "conflict", code, err)
}

func forbiddenCode(err error, code int) error {
	return makeAPIError(http.StatusForbidden, "forbidden", code, err)
}

func unauthorized(err error) error {
	return makeAPIError(http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized, err)
}

// dependencyConflict is the 409 returned when unfinished dependencies gate
// an activation.
func dependencyConflict(blockers []workflow.Blocker) error {
	return apiError{
		status:   http.StatusConflict,
		code:     "dependency_blocked",
		errCode:  ErrCodeDependencyBlocked,
		err:      errors.New("ticket is blocked by unfinished dependencies"),
		blockers: blockers,
	}
}

func dependencyCycle(err error) error {
	return makeAPIError(http.StatusConflict, "dependency_cycle", ErrCodeDependencyCycle, err)
}

func internalError(err error) error {
	return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeInternal, err)
}

func storeFailure(err error) error {
	return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeStoreFailure, err)
}
