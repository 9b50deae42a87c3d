package errors

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the client view of an AppError.
type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// Detail keys that tie an API error to a job.
const (
	DetailRequestID  = "request_id"
	DetailResultCode = "result_code"
)

// ForJob ties e to a job. The body then carries the request id and, when
// resultCode is set, the code recorded on the failed job, so a client can
// match a 5xx from POST /v1/listen with the job's error response.
func (e *AppError) ForJob(requestID, resultCode string) *AppError {
	e.WithDetail(DetailRequestID, requestID)
	if resultCode != "" {
		e.WithDetail(DetailResultCode, resultCode)
	}
	return e
}

// ToResponse renders e. The body gets its own copy of the details.
func (e *AppError) ToResponse() ErrorResponse {
	body := ErrorBody{Code: e.Code, Message: e.Message, Retryable: e.Retryable}
	if len(e.Details) > 0 {
		body.Details = make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			body.Details[k] = v
		}
	}
	return ErrorResponse{Error: body}
}

// Render returns the status and body sent for err. Errors without an
// AppError in their chain render as internal errors.
func Render(err error) (int, ErrorResponse) {
	appErr := Wrap(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = appErr.Code.HTTPStatus()
	}
	return status, appErr.ToResponse()
}
