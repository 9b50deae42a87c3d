package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is an error that knows how it is shown to API clients.
type AppError struct {
	Code ErrorCode `json:"code"`
	// Message is safe to show to clients.
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	// HTTPStatus is the status the error renders with.
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	// Cause is logged and unwrapped but never rendered.
	Cause error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause attaches cause and returns e.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets one detail and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError whose status and retryability follow code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: code.HTTPStatus(),
		Retryable:  code.Retryable(),
	}
}

// newWith is New plus one detail.
func newWith(code ErrorCode, message, key string, value any) *AppError {
	return New(code, message).WithDetail(key, value)
}

// Wrap returns the first AppError in err's chain, or an internal error
// caused by err.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err's chain holds an AppError with code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// InvalidInput reports a request field with an unusable value.
func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, "Invalid input: "+reason)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation reports a request that failed struct validation.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message)
}

// MissingField reports an absent required field.
func MissingField(field string) *AppError {
	return newWith(ErrCodeMissingField, "Missing required field: "+field, "field", field)
}

// PayloadTooLarge reports audio above the configured limit.
func PayloadTooLarge(limit int64) *AppError {
	return newWith(ErrCodePayloadTooLarge,
		fmt.Sprintf("Audio payload exceeds the %d byte limit.", limit), "limit_bytes", limit)
}

// Unauthorized reports a missing or unusable credential.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return New(ErrCodeUnauthorized, reason)
}

// Forbidden reports a caller without the needed permission.
func Forbidden(reason string) *AppError {
	if reason == "" {
		reason = "You don't have permission to perform this action."
	}
	return New(ErrCodeForbidden, reason)
}

// TokenExpired reports a bearer token past its expiry.
func TokenExpired() *AppError {
	return New(ErrCodeTokenExpired, "The access token has expired.")
}

// InvalidToken reports a credential that failed verification.
func InvalidToken() *AppError {
	return New(ErrCodeInvalidToken, "Invalid authentication token.")
}

// NotFound reports a missing resource. Resources owned by another user are
// reported the same way.
func NotFound(resource, id string) *AppError {
	e := newWith(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource), "resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// AlreadyExists reports a unique-key collision.
func AlreadyExists(resource string) *AppError {
	return newWith(ErrCodeAlreadyExists,
		fmt.Sprintf("A %s with these details already exists.", resource), "resource", resource)
}

// Conflict reports a request that clashes with the current state.
func Conflict(reason string) *AppError {
	return New(ErrCodeConflict, reason)
}

// InvalidTransition reports a job status change the lifecycle forbids.
func InvalidTransition(from, to string) *AppError {
	return New(ErrCodeInvalidTransition, fmt.Sprintf("Cannot move job from %s to %s.", from, to)).
		WithDetail("from", from).
		WithDetail("to", to)
}

// NotReady reports a result requested while the job is still pending.
func NotReady(status string) *AppError {
	return newWith(ErrCodeNotReady, "The transcription is not finished yet.", "status", status)
}

// RateLimited reports a caller over its request budget.
func RateLimited() *AppError {
	return New(ErrCodeRateLimited, "Too many requests. Please wait a moment and try again.")
}

// ServiceUnavailable reports a backend that cannot be reached right now.
func ServiceUnavailable(service string) *AppError {
	return newWith(ErrCodeServiceUnavailable,
		fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service), "service", service)
}

// Timeout reports an operation that ran out of time.
func Timeout(operation string) *AppError {
	return newWith(ErrCodeTimeout, "The request took too long. Please try again.", "operation", operation)
}

// DatabaseError reports an unclassified database failure.
func DatabaseError(cause error) *AppError {
	return New(ErrCodeDatabaseError, "A database error occurred. Please try again.").WithCause(cause)
}

// ExternalServiceError reports a failure returned by a remote service.
func ExternalServiceError(service string, cause error) *AppError {
	return newWith(ErrCodeExternalService,
		fmt.Sprintf("The %s service encountered an error. Please try again.", service), "service", service).
		WithCause(cause)
}

// CapacityExceeded reports that no slot of the named pool freed up in time.
func CapacityExceeded(pool string) *AppError {
	return newWith(ErrCodeCapacityExceeded, "The transcription backend is at capacity.", "pool", pool)
}

// FormattingFailed reports a raw result that could not be turned into a
// response. The cause text is kept as the "reason" detail.
func FormattingFailed(requestID string, cause error) *AppError {
	e := newWith(ErrCodeFormattingFailed, "The transcription result could not be formatted.", "request_id", requestID)
	if cause != nil {
		e.WithDetail("reason", cause.Error())
	}
	return e.WithCause(cause)
}

// Internal reports an unexpected failure. The cause is never rendered.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred. Please try again or contact support.").WithCause(cause)
}
