// Package users keeps the local record of every caller. Users are created
// just in time on their first authenticated request and refreshed from the
// identity provider's claims on later ones.
package users

import (
	"context"
	"time"

	"github.com/kbukum/scribegate/database"
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/logger"
)

// User is a local user record keyed by the identity provider subject.
type User struct {
	database.Model
	Subject    string                  `gorm:"uniqueIndex;not null" json:"subject"`
	Username   string                  `json:"username"`
	Email      string                  `json:"email"`
	Roles      database.JSON[[]string] `json:"roles"`
	LastSeenAt *time.Time              `json:"last_seen_at,omitempty"`
}

// TableName binds User to the users table.
func (User) TableName() string { return "users" }

// Profile is the identity asserted by a verified token.
type Profile struct {
	Subject  string
	Username string
	Email    string
	Roles    []string
}

// Repository stores users with GORM.
type Repository struct {
	db  *database.DB
	log *logger.Logger
	now func() time.Time
}

// NewRepository creates a user repository on db.
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Repository{db: db, log: log.WithComponent("users"), now: time.Now}
}

// Get loads a user by id.
func (r *Repository) Get(ctx context.Context, id string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if database.IsNotFoundError(err) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, database.FromDatabase(err, "user")
	}
	return &u, nil
}

// FindBySubject loads a user by identity provider subject.
func (r *Repository) FindBySubject(ctx context.Context, subject string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "subject = ?", subject).Error; err != nil {
		if database.IsNotFoundError(err) {
			return nil, apperrors.NotFound("user", subject)
		}
		return nil, database.FromDatabase(err, "user")
	}
	return &u, nil
}

// Provision returns the local user for p, creating it on first sight and
// refreshing its profile fields and last-seen time otherwise.
func (r *Repository) Provision(ctx context.Context, p Profile) (*User, error) {
	if p.Subject == "" {
		return nil, apperrors.MissingField("sub")
	}
	now := r.now().UTC()

	existing, err := r.FindBySubject(ctx, p.Subject)
	switch {
	case err == nil:
		return r.refresh(ctx, existing, p, now)
	case !isNotFound(err):
		return nil, err
	}

	u := &User{
		Subject:    p.Subject,
		Username:   p.Username,
		Email:      p.Email,
		Roles:      database.NewJSON(nonNil(p.Roles)),
		LastSeenAt: &now,
	}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if database.IsDuplicateError(err) {
			// Lost a race with a concurrent first request.
			return r.FindBySubject(ctx, p.Subject)
		}
		return nil, database.FromDatabase(err, "user")
	}
	r.log.WithContext(ctx).Info("User provisioned", map[string]interface{}{
		"user_id":  u.ID,
		"username": u.Username,
	})
	return u, nil
}

func (r *Repository) refresh(ctx context.Context, u *User, p Profile, now time.Time) (*User, error) {
	u.Username = p.Username
	u.Email = p.Email
	u.Roles = database.NewJSON(nonNil(p.Roles))
	u.LastSeenAt = &now
	err := r.db.WithContext(ctx).Model(u).Updates(map[string]interface{}{
		"username":     u.Username,
		"email":        u.Email,
		"roles":        u.Roles,
		"last_seen_at": now,
	}).Error
	if err != nil {
		return nil, database.FromDatabase(err, "user")
	}
	return u, nil
}

func isNotFound(err error) bool {
	appErr, ok := apperrors.AsAppError(err)
	return ok && appErr.Code == apperrors.ErrCodeNotFound
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
