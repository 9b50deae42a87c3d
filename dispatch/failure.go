package dispatch

import (
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/transcription"
	"github.com/kbukum/scribegate/transcription/formatter"
)

// failure is why a job failed: the result code stored on the job and in its
// error response, and the message shown with it.
type failure struct {
	code    string
	message string
}

var (
	queueFailure   = failure{CodeDispatch, "The job could not be queued for transcription."}
	generalFailure = failure{CodeTranscription, "Transcription failed."}
)

// failureFor maps an error from the transcription path to the failure
// recorded on the job. AppError messages are client-safe and kept; anything
// else gets a generic message.
func failureFor(err error) failure {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return generalFailure
	}
	switch appErr.Code {
	case apperrors.ErrCodeFormattingFailed:
		msg := appErr.Message
		if reason, ok := appErr.Details["reason"].(string); ok && reason != "" {
			msg = reason
		}
		return failure{formatter.CodeFormattingError, msg}
	case apperrors.ErrCodeCapacityExceeded:
		return failure{CodeCapacityExceeded, appErr.Message}
	case apperrors.ErrCodeInternal:
		return generalFailure
	default:
		return failure{CodeTranscription, appErr.Message}
	}
}

// workerFailure is the failure reported by a worker result. Missing fields
// fall back to a processing error.
func workerFailure(reported *transcription.ResultError) failure {
	f := failure{formatter.CodeProcessingError, "Transcription failed."}
	if reported == nil {
		return f
	}
	if reported.Code != "" {
		f.code = reported.Code
	}
	if reported.Message != "" {
		f.message = reported.Message
	}
	return f
}
