package errors

import "net/http"

// ErrorCode is the machine-readable code in an error body.
type ErrorCode string

// Request problems.
const (
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField    ErrorCode = "MISSING_FIELD"
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
)

// Identity.
const (
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Resources and the job lifecycle.
const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	// ErrCodeInvalidTransition is a job status change the lifecycle forbids.
	ErrCodeInvalidTransition ErrorCode = "INVALID_STATE_TRANSITION"
	// ErrCodeNotReady is a result requested before the job finished.
	ErrCodeNotReady ErrorCode = "RESULT_NOT_READY"
)

// Backends and processing.
const (
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeDatabaseError      ErrorCode = "DATABASE_ERROR"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
	// ErrCodeCapacityExceeded means every transcription slot stayed busy.
	ErrCodeCapacityExceeded ErrorCode = "CAPACITY_EXCEEDED"
	// ErrCodeFormattingFailed means a raw result could not become a response.
	ErrCodeFormattingFailed ErrorCode = "FORMATTING_FAILED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

type rendering struct {
	status    int
	retryable bool
}

var renderings = map[ErrorCode]rendering{
	ErrCodeInvalidInput:       {http.StatusBadRequest, false},
	ErrCodeMissingField:       {http.StatusBadRequest, false},
	ErrCodePayloadTooLarge:    {http.StatusRequestEntityTooLarge, false},
	ErrCodeUnauthorized:       {http.StatusUnauthorized, false},
	ErrCodeForbidden:          {http.StatusForbidden, false},
	ErrCodeTokenExpired:       {http.StatusUnauthorized, false},
	ErrCodeInvalidToken:       {http.StatusUnauthorized, false},
	ErrCodeNotFound:           {http.StatusNotFound, false},
	ErrCodeAlreadyExists:      {http.StatusConflict, false},
	ErrCodeConflict:           {http.StatusConflict, false},
	ErrCodeInvalidTransition:  {http.StatusConflict, false},
	ErrCodeNotReady:           {http.StatusConflict, true},
	ErrCodeRateLimited:        {http.StatusTooManyRequests, true},
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, true},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, true},
	ErrCodeDatabaseError:      {http.StatusInternalServerError, true},
	ErrCodeExternalService:    {http.StatusBadGateway, true},
	ErrCodeCapacityExceeded:   {http.StatusServiceUnavailable, true},
	ErrCodeFormattingFailed:   {http.StatusUnprocessableEntity, false},
	ErrCodeInternal:           {http.StatusInternalServerError, false},
}

// HTTPStatus is the status an error with this code renders with.
// Unknown codes render as 500.
func (c ErrorCode) HTTPStatus() int {
	if r, ok := renderings[c]; ok {
		return r.status
	}
	return http.StatusInternalServerError
}

// Retryable reports whether a request failing with c may succeed later.
func (c ErrorCode) Retryable() bool {
	return renderings[c].retryable
}
