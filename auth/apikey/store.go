package apikey

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/scribegate/auth"
	"github.com/kbukum/scribegate/database"
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/logger"
)

// Key is a stored API key.
type Key struct {
	ID         string                  `gorm:"primaryKey;type:text" json:"id"`
	UserID     string                  `gorm:"not null;index" json:"user_id"`
	Name       string                  `json:"name"`
	SecretHash string                  `gorm:"not null" json:"-"`
	Scopes     database.JSON[[]string] `json:"scopes"`
	CreatedAt  time.Time               `gorm:"autoCreateTime" json:"created_at"`
	LastUsedAt *time.Time              `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time              `json:"revoked_at,omitempty"`
}

// TableName binds Key to the api_keys table.
func (Key) TableName() string { return "api_keys" }

// BeforeCreate generates a UUID if not already set.
func (k *Key) BeforeCreate(_ *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}

// Revoked reports whether the key has been revoked.
func (k *Key) Revoked() bool { return k.RevokedAt != nil }

// Created is a newly issued key with its one-time plaintext token.
type Created struct {
	Key   *Key   `json:"key"`
	Token string `json:"token"`
}

// Store issues and verifies API keys. It implements auth.Authenticator
// for the "Token" scheme.
type Store struct {
	db  *database.DB
	cfg Config
	log *logger.Logger
	now func() time.Time
}

var _ auth.Authenticator = (*Store)(nil)

// NewStore creates a key store on db.
func NewStore(db *database.DB, cfg Config, log *logger.Logger) *Store {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Store{db: db, cfg: cfg, log: log.WithComponent("apikey"), now: time.Now}
}

// Scheme implements auth.Authenticator.
func (s *Store) Scheme() string { return "Token" }

// Create issues a key for userID. The returned token is the only copy of
// the secret.
func (s *Store) Create(ctx context.Context, userID, name string, scopes []string) (*Created, error) {
	if userID == "" {
		return nil, apperrors.MissingField("user_id")
	}
	if len(scopes) == 0 {
		scopes = s.cfg.DefaultScopes
	}

	secret, err := generateSecret(s.cfg.SecretBytes)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	hash, err := hashSecret(secret, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	key := &Key{
		UserID:     userID,
		Name:       name,
		SecretHash: hash,
		Scopes:     database.NewJSON(append([]string(nil), scopes...)),
	}
	if err := s.db.WithContext(ctx).Create(key).Error; err != nil {
		return nil, database.FromDatabase(err, "api_key")
	}

	s.log.WithContext(ctx).Info("API key created", map[string]interface{}{
		"key_id":  key.ID,
		"user_id": userID,
		"name":    name,
	})
	return &Created{Key: key, Token: FormatToken(key.ID, secret)}, nil
}

// Authenticate verifies a "<id>.<secret>" credential and records its use.
func (s *Store) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	id, secret, err := ParseToken(token)
	if err != nil {
		return nil, err
	}

	var key Key
	if err := s.db.WithContext(ctx).First(&key, "id = ?", id).Error; err != nil {
		if database.IsNotFoundError(err) {
			return nil, apperrors.InvalidToken()
		}
		return nil, database.FromDatabase(err, "api_key")
	}
	if key.Revoked() {
		return nil, apperrors.InvalidToken().WithDetail("reason", "revoked")
	}
	if !verifySecret(secret, key.SecretHash) {
		return nil, apperrors.InvalidToken()
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&Key{}).Where("id = ?", key.ID).
		Update("last_used_at", now).Error; err != nil {
		s.log.WithContext(ctx).Warn("API key last use not recorded", map[string]interface{}{
			"key_id": key.ID, "error": err.Error(),
		})
	}

	return &auth.Principal{
		UserID:      key.UserID,
		Permissions: key.Scopes.Data,
		Method:      auth.MethodAPIKey,
	}, nil
}

// List returns the keys owned by userID, newest first.
func (s *Store) List(ctx context.Context, userID string) ([]Key, error) {
	keys := make([]Key, 0)
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&keys).Error
	if err != nil {
		return nil, database.FromDatabase(err, "api_key")
	}
	return keys, nil
}

// Revoke disables a key owned by userID. Revoking twice is a no-op.
func (s *Store) Revoke(ctx context.Context, userID, id string) error {
	var key Key
	if err := s.db.WithContext(ctx).First(&key, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if database.IsNotFoundError(err) {
			return apperrors.NotFound("api_key", id)
		}
		return database.FromDatabase(err, "api_key")
	}
	if key.Revoked() {
		return nil
	}
	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&key).Update("revoked_at", now).Error; err != nil {
		return database.FromDatabase(err, "api_key")
	}
	s.log.WithContext(ctx).Info("API key revoked", map[string]interface{}{
		"key_id": id, "user_id": userID,
	})
	return nil
}
