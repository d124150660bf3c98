package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument   = 1000
	ErrCodeInvalidJSON       = 1001
	ErrCodeRequestTooLarge   = 1002
	ErrCodeInvalidQuery      = 1003
	ErrCodeInvalidID         = 1004
	ErrCodeInvalidStatus     = 1005
	ErrCodeInvalidType       = 1006
	ErrCodeInvalidPriority   = 1007
	ErrCodeMissingRequired   = 1009
	ErrCodeInvalidDependency = 1012
	ErrCodeInvalidRole       = 1015
	ErrCodeStatusNotEditable = 1016
	ErrCodeInvalidSubtask    = 1017
	ErrCodeInvalidPoints     = 1018
	ErrCodeTitleTooLong      = 1019

	// Domain state (2xxx)
	ErrCodeTicketNotFound     = 2001
	ErrCodeDependencyNotFound = 2002
	ErrCodeProjectNotFound    = 2005
	ErrCodeConflict           = 2102
	ErrCodeDependencyBlocked  = 2103
	ErrCodeDependencyCycle    = 2104
	ErrCodeTicketKeyExhausted = 2105

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003
	ErrCodeDoneNotPermitted  = 3004

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
)
