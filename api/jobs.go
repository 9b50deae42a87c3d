package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribegate/database/query"
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/jobs"
	"github.com/kbukum/scribegate/server"
	"github.com/kbukum/scribegate/validation"
)

// JobSummary is one row of the job listing.
type JobSummary struct {
	RequestID   string          `json:"request_id"`
	Status      jobs.Status     `json:"status"`
	Model       string          `json:"model"`
	Language    string          `json:"language,omitempty"`
	Progress    int             `json:"progress"`
	AudioSize   int64           `json:"audio_size"`
	Duration    *float64        `json:"duration,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       *jobs.ErrorView `json:"error,omitempty"`
}

func summarize(j *jobs.Job) JobSummary {
	s := JobSummary{
		RequestID:   j.ID,
		Status:      j.Status,
		Model:       j.ModelName,
		Language:    j.Language,
		Progress:    j.Progress,
		AudioSize:   j.AudioSize,
		Duration:    j.Duration,
		CreatedAt:   j.CreatedAt.UTC(),
		CompletedAt: j.CompletedAt,
	}
	if j.Status == jobs.StatusFailed {
		s.Error = &jobs.ErrorView{Code: j.ErrorCode, Message: j.ErrorMessage}
	}
	return s
}

// Status serves the caller's job status. Jobs of other users are reported
// as not found.
func (h *Handler) Status(c *gin.Context) {
	caller, err := principal(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	id := c.Param("request_id")
	if err := validation.PathUUID("request_id", id); err != nil {
		h.fail(c, err)
		return
	}
	view, err := h.jobs.Status(c.Request.Context(), caller.UserID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Results serves the listen response of a finished job. Failed jobs yield
// their error response with 200; unfinished jobs yield 409.
func (h *Handler) Results(c *gin.Context) {
	caller, err := principal(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	id := c.Param("request_id")
	if err := validation.PathUUID("request_id", id); err != nil {
		h.fail(c, err)
		return
	}
	job, err := h.jobs.GetOwned(c.Request.Context(), caller.UserID, id)
	if err != nil {
		h.fail(c, err)
		return
	}

	switch job.Status {
	case jobs.StatusCompleted:
		resp := job.Response()
		if resp == nil {
			h.fail(c, apperrors.Internal(nil).WithDetail("request_id", job.ID))
			return
		}
		c.JSON(http.StatusOK, resp)
	case jobs.StatusFailed:
		resp := job.Response()
		if resp == nil {
			resp = h.formatter.BuildErrorResponse(job.ID, job.ErrorMessage, job.ErrorCode)
		}
		c.JSON(http.StatusOK, resp)
	default:
		h.fail(c, apperrors.NotReady(string(job.Status)).WithDetail("progress", job.Progress))
	}
}

// ListJobs serves one page of the caller's jobs. It accepts page, pageSize,
// sortBy, order and status/model/language filters.
func (h *Handler) ListJobs(c *gin.Context) {
	caller, err := principal(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	params := query.Parse(c.Request.URL.Query(), jobs.ListConfig)
	result, err := h.jobs.List(c.Request.Context(), caller.UserID, params)
	if err != nil {
		h.fail(c, err)
		return
	}

	rows := make([]JobSummary, 0, len(result.Data))
	for i := range result.Data {
		rows = append(rows, summarize(&result.Data[i]))
	}
	server.RespondPage(c, rows, server.Meta{
		Page:       result.Pagination.Page,
		PageSize:   result.Pagination.PageSize,
		Total:      result.Pagination.Total,
		TotalPages: result.Pagination.TotalPages,
	})
}
