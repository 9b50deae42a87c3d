package logger

import "time"

// Keys shared by every log line that carries them.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)

// ErrorFields names the operation that failed. A nil err is logged as
// an empty error so callers can pass results through unchecked.
//
//	log.Warn("Job status cache write failed", logger.ErrorFields("status_cache_save", err))
func ErrorFields(op string, err error) map[string]interface{} {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return map[string]interface{}{FieldOperation: op, FieldError: msg}
}

// DurationFields records how long op took, in milliseconds.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{FieldOperation: op, FieldDuration: d.Milliseconds()}
}
