package jobs

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/scribegate/database"
	"github.com/kbukum/scribegate/database/query"
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/transcription/formatter"
)

// Store persists jobs.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Transition(ctx context.Context, id string, from, to Status, changes Changes) (*Job, error)
	SetProgress(ctx context.Context, id string, progress int) error
	List(ctx context.Context, userID string, params query.Params) (*query.Result[Job], error)
}

// Changes are the columns written alongside a status transition.
type Changes struct {
	Progress     *int
	Duration     *float64
	Result       *formatter.Response
	ErrorCode    string
	ErrorMessage string
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

func (c Changes) columns(to Status, now time.Time) map[string]interface{} {
	cols := map[string]interface{}{
		"status":     to,
		"updated_at": now,
	}
	if c.Progress != nil {
		cols["progress"] = *c.Progress
	}
	if c.Duration != nil {
		cols["duration"] = *c.Duration
	}
	if c.Result != nil {
		cols["result"] = database.NewJSON(c.Result)
	}
	if c.ErrorCode != "" {
		cols["error_code"] = c.ErrorCode
		cols["error_message"] = c.ErrorMessage
	}
	if c.StartedAt != nil {
		cols["started_at"] = *c.StartedAt
	}
	if c.CompletedAt != nil {
		cols["completed_at"] = *c.CompletedAt
	}
	return cols
}

// ListConfig is the query configuration for job listings.
var ListConfig = query.Config{
	AllowedSortFields: []string{"created_at", "updated_at", "status"},
	AllowedFilters:    []string{"status", "model", "language"},
	DefaultSort:       "created_at DESC",
}

// Repository is the GORM-backed Store.
type Repository struct {
	db  *database.DB
	now func() time.Time
}

var _ Store = (*Repository)(nil)

// NewRepository creates a job repository on db.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Create inserts a new job.
func (r *Repository) Create(ctx context.Context, job *Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return database.FromDatabase(err, "job")
	}
	return nil
}

// Get loads a job by request id.
func (r *Repository) Get(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if database.IsNotFoundError(err) {
			return nil, apperrors.NotFound("job", id)
		}
		return nil, database.FromDatabase(err, "job")
	}
	return &job, nil
}

// Transition moves a job from one status to another and applies changes.
// The update only matches a row still in from, so a concurrent writer that
// moved the job first makes this call fail with INVALID_STATE_TRANSITION.
func (r *Repository) Transition(ctx context.Context, id string, from, to Status, changes Changes) (*Job, error) {
	if !from.CanTransition(to) {
		return nil, apperrors.InvalidTransition(string(from), string(to))
	}

	var out Job
	err := r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&Job{}).
			Where("id = ? AND status = ?", id, from).
			Updates(changes.columns(to, r.now()))
		if res.Error != nil {
			return database.FromDatabase(res.Error, "job")
		}
		if res.RowsAffected == 0 {
			var current Job
			if err := tx.Select("id", "status").First(&current, "id = ?", id).Error; err != nil {
				if database.IsNotFoundError(err) {
					return apperrors.NotFound("job", id)
				}
				return database.FromDatabase(err, "job")
			}
			return apperrors.InvalidTransition(string(current.Status), string(to))
		}
		if err := tx.First(&out, "id = ?", id).Error; err != nil {
			return database.FromDatabase(err, "job")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetProgress records progress for a processing job. Other states are
// left untouched.
func (r *Repository) SetProgress(ctx context.Context, id string, progress int) error {
	err := r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusProcessing).
		Updates(map[string]interface{}{"progress": progress, "updated_at": r.now()}).Error
	if err != nil {
		return database.FromDatabase(err, "job")
	}
	return nil
}

// List returns one page of the user's jobs.
func (r *Repository) List(ctx context.Context, userID string, params query.Params) (*query.Result[Job], error) {
	scoped := r.db.WithContext(ctx).Model(&Job{}).Where("user_id = ?", userID)
	res, err := query.Apply[Job](scoped, params, ListConfig)
	if err != nil {
		return nil, database.FromDatabase(err, "job")
	}
	return res, nil
}
