package jobs

import (
	"context"
	"time"

	"github.com/kbukum/scribegate/cache"
	"github.com/kbukum/scribegate/database/query"
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/redis"
	"github.com/kbukum/scribegate/transcription/formatter"
)

// DefaultStatusTTL is how long a cached job status stays valid.
const DefaultStatusTTL = 10 * time.Minute

// cachedStatus is the cached form of a job status.
type cachedStatus struct {
	StatusView
	Owner string `json:"owner"`
}

// Service implements job operations on top of a Store and a status cache.
type Service struct {
	store     Store
	statuses  cache.Store[cachedStatus]
	statusTTL time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStatusTTL overrides DefaultStatusTTL.
func WithStatusTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) { s.statusTTL = ttl }
}

// WithClock overrides the time source used for started/completed stamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a job service. Status is cached in Redis when client
// is non-nil and in process memory otherwise.
func NewService(store Store, client *redis.Client, log *logger.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	s := &Service{
		store:     store,
		statuses:  cache.New[cachedStatus](client, "jobs:status"),
		statusTTL: DefaultStatusTTL,
		log:       log.WithComponent("jobs"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit records a new queued job.
func (s *Service) Submit(ctx context.Context, job *Job) error {
	job.Status = StatusQueued
	job.Progress = 0
	if err := s.store.Create(ctx, job); err != nil {
		return err
	}
	s.cacheStatus(ctx, job)
	s.log.WithContext(ctx).Info("Job queued", map[string]interface{}{
		"request_id": job.ID,
		"model":      job.ModelName,
		"audio_size": job.AudioSize,
	})
	return nil
}

// Get loads a job by request id without an ownership check.
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// GetOwned loads a job owned by userID. Jobs of other users are reported
// as not found.
func (s *Service) GetOwned(ctx context.Context, userID, id string) (*Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, apperrors.NotFound("job", id)
	}
	return job, nil
}

// Status returns the status of a job owned by userID. Finished jobs are
// served from the cache; pending ones always come from the store.
func (s *Service) Status(ctx context.Context, userID, id string) (*StatusView, error) {
	cached, err := s.statuses.Load(ctx, id)
	if err != nil {
		s.log.WithContext(ctx).Warn("Job status cache read failed", logger.ErrorFields("status_cache_load", err))
	}
	if cached != nil {
		if cached.Owner != userID {
			return nil, apperrors.NotFound("job", id)
		}
		return &cached.StatusView, nil
	}

	job, err := s.GetOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		s.cacheStatus(ctx, job)
	}
	view := job.View()
	return &view, nil
}

// List returns one page of the user's jobs.
func (s *Service) List(ctx context.Context, userID string, params query.Params) (*query.Result[Job], error) {
	return s.store.List(ctx, userID, params)
}

// Start moves a queued job to processing.
func (s *Service) Start(ctx context.Context, id string) (*Job, error) {
	now := s.now().UTC()
	zero := 0
	return s.transition(ctx, id, StatusQueued, StatusProcessing, Changes{Progress: &zero, StartedAt: &now})
}

// SetProgress records the progress percentage of a processing job.
func (s *Service) SetProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 || progress > 100 {
		return apperrors.InvalidInput("progress", "must be between 0 and 100")
	}
	if err := s.store.SetProgress(ctx, id, progress); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// Complete stores the formatted response and marks the job completed.
// A job still queued is moved through processing first.
func (s *Service) Complete(ctx context.Context, id string, resp *formatter.Response) (*Job, error) {
	if err := s.ensureProcessing(ctx, id); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	full := 100
	changes := Changes{Progress: &full, Result: resp, CompletedAt: &now}
	if resp != nil {
		d := resp.Metadata.Duration
		changes.Duration = &d
	}
	return s.transition(ctx, id, StatusProcessing, StatusCompleted, changes)
}

// Fail marks a queued or processing job failed. resp is the error response
// served from the results endpoint.
func (s *Service) Fail(ctx context.Context, id, code, message string, resp *formatter.Response) (*Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	changes := Changes{Result: resp, ErrorCode: code, ErrorMessage: message, CompletedAt: &now}
	return s.transition(ctx, id, job.Status, StatusFailed, changes)
}

func (s *Service) ensureProcessing(ctx context.Context, id string) error {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == StatusQueued {
		_, err = s.Start(ctx, id)
	}
	return err
}

func (s *Service) transition(ctx context.Context, id string, from, to Status, changes Changes) (*Job, error) {
	job, err := s.store.Transition(ctx, id, from, to, changes)
	if err != nil {
		s.invalidate(ctx, id)
		return nil, err
	}
	s.cacheStatus(ctx, job)
	s.log.WithContext(ctx).Info("Job status changed", map[string]interface{}{
		"request_id": id,
		"from":       string(from),
		"to":         string(to),
	})
	return job, nil
}

// cacheStatus records the status of a finished job. A terminal status never
// changes, so a cached entry cannot go stale. Any other status only drops the
// entry, which keeps a late write from hiding a newer transition.
func (s *Service) cacheStatus(ctx context.Context, job *Job) {
	if !job.Status.IsTerminal() {
		s.invalidate(ctx, job.ID)
		return
	}
	entry := cachedStatus{StatusView: job.View(), Owner: job.UserID}
	if err := s.statuses.Save(ctx, job.ID, &entry, s.statusTTL); err != nil {
		s.log.WithContext(ctx).Warn("Job status cache write failed", logger.ErrorFields("status_cache_save", err))
	}
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if err := s.statuses.Delete(ctx, id); err != nil {
		s.log.WithContext(ctx).Warn("Job status cache delete failed", logger.ErrorFields("status_cache_delete", err))
	}
}
