package errors

import "net/http"

// Error code constants. Errors carry code + params; clients own presentation.

// Resource error codes.
const (
	CodeResourceNotFound  = "RESOURCE_NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeResourceConflict  = "RESOURCE_CONFLICT"
)

// Enrichment error codes.
const (
	CodeJobNotFound       = "JOB_NOT_FOUND"
	CodeJobAlreadyRunning = "JOB_ALREADY_RUNNING"
	CodeEmptyCandidateSet = "EMPTY_CANDIDATE_SET"
	CodeJobNotCancellable = "JOB_NOT_CANCELLABLE"
	CodeExternalService   = "EXTERNAL_SERVICE_ERROR"
)

// Auth error codes.
const (
	CodeAuthFailed   = "AUTH_FAILED"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
)

// Validation error codes.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInvalidBody      = "INVALID_REQUEST_BODY"
)

// Convenience constructors using predefined codes.

// ErrResourceNotFound creates a resource not found error.
func ErrResourceNotFound() *AppError {
	return &AppError{
		Code:       CodeResourceNotFound,
		Message:    "resource not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// ErrInvalidTransition creates an illegal state-machine move error.
// The admin UI distinguishes this from not-found so it refreshes instead of
// retrying blindly.
func ErrInvalidTransition(from, to string) *AppError {
	return (&AppError{
		Code:       CodeInvalidTransition,
		Message:    "resource status does not allow this transition",
		HTTPStatus: http.StatusConflict,
	}).WithParams(map[string]interface{}{"from": from, "to": to})
}

// ErrJobAlreadyRunning creates the duplicate-active-job error.
func ErrJobAlreadyRunning(filter string) *AppError {
	return (&AppError{
		Code:       CodeJobAlreadyRunning,
		Message:    "an enrichment job is already active for this filter",
		HTTPStatus: http.StatusConflict,
	}).WithParams(map[string]interface{}{"filter": filter})
}

// ErrEmptyCandidateSet creates the no-candidates error.
func ErrEmptyCandidateSet(filter string) *AppError {
	return (&AppError{
		Code:       CodeEmptyCandidateSet,
		Message:    "no resources match the enrichment filter",
		HTTPStatus: http.StatusUnprocessableEntity,
	}).WithParams(map[string]interface{}{"filter": filter})
}
