package jobs

import (
	"time"

	"github.com/kbukum/scribegate/database"
	"github.com/kbukum/scribegate/transcription"
	"github.com/kbukum/scribegate/transcription/formatter"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var transitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether a job may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Job is one transcription request and, once finished, its response.
type Job struct {
	database.Model
	UserID       string                               `gorm:"not null;index" json:"user_id"`
	Status       Status                               `gorm:"not null" json:"status"`
	ModelName    string                               `gorm:"column:model" json:"model"`
	Language     string                               `json:"language"`
	Options      database.JSON[transcription.Options] `json:"options"`
	AudioKey     string                               `json:"audio_key"`
	AudioSHA256  string                               `gorm:"column:audio_sha256" json:"audio_sha256"`
	AudioSize    int64                                `json:"audio_size"`
	ContentType  string                               `json:"content_type"`
	Duration     *float64                             `json:"duration,omitempty"`
	Progress     int                                  `json:"progress"`
	Result       database.JSON[*formatter.Response]   `json:"-"`
	ErrorCode    string                               `json:"error_code,omitempty"`
	ErrorMessage string                               `json:"error_message,omitempty"`
	StartedAt    *time.Time                           `json:"started_at,omitempty"`
	CompletedAt  *time.Time                           `json:"completed_at,omitempty"`
}

// TableName binds Job to the jobs table.
func (Job) TableName() string { return "jobs" }

// Response returns the stored response, or nil while the job is pending.
func (j *Job) Response() *formatter.Response {
	return j.Result.Data
}

// StatusView is the client-facing job status.
type StatusView struct {
	RequestID string     `json:"request_id"`
	Status    Status     `json:"status"`
	Progress  int        `json:"progress"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Error     *ErrorView `json:"error,omitempty"`
}

// ErrorView describes why a job failed.
type ErrorView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// View returns the status view of j.
func (j *Job) View() StatusView {
	v := StatusView{
		RequestID: j.ID,
		Status:    j.Status,
		Progress:  j.Progress,
		CreatedAt: j.CreatedAt.UTC(),
		UpdatedAt: j.UpdatedAt.UTC(),
	}
	if j.Status == StatusFailed {
		v.Error = &ErrorView{Code: j.ErrorCode, Message: j.ErrorMessage}
	}
	return v
}
