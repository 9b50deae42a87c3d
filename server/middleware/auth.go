package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribegate/auth"
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/users"
)

// HeaderAuthorization carries the caller's credential.
const HeaderAuthorization = "Authorization"

// Authenticator verifies an Authorization header value; *auth.Registry
// satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (*auth.Principal, error)
}

// Provisioner maps a verified identity onto a local user.
type Provisioner interface {
	Provision(ctx context.Context, p users.Profile) (*users.User, error)
}

// AuthConfig configures the authentication middleware.
type AuthConfig struct {
	Authenticator Authenticator
	// Users provisions OIDC callers on their first request. When nil, OIDC
	// principals are identified by their subject.
	Users Provisioner
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string
	Log       *logger.Logger
}

// Auth returns a Gin middleware that authenticates the Authorization header
// and stores the resulting principal in the request context.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	log := cfg.Log
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		ctx := c.Request.Context()
		principal, err := cfg.Authenticator.Authenticate(ctx, c.GetHeader(HeaderAuthorization))
		if err != nil {
			abort(c, asAppError(err, apperrors.Unauthorized("authentication failed")))
			return
		}

		if principal.Method == auth.MethodOIDC {
			if err := provision(ctx, cfg.Users, principal); err != nil {
				log.WithContext(ctx).Error("User provisioning failed", map[string]interface{}{
					"subject": principal.Subject,
					"error":   err.Error(),
				})
				abort(c, asAppError(err, apperrors.Internal(err)))
				return
			}
		}

		ctx = auth.WithPrincipal(ctx, principal)
		ctx = logger.ContextWithUserID(ctx, principal.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Set("user_id", principal.UserID)
		c.Next()
	}
}

func provision(ctx context.Context, p Provisioner, principal *auth.Principal) error {
	if p == nil {
		principal.UserID = principal.Subject
		return nil
	}
	u, err := p.Provision(ctx, users.Profile{
		Subject:  principal.Subject,
		Username: principal.Username,
		Email:    principal.Email,
		Roles:    principal.Roles,
	})
	if err != nil {
		return err
	}
	principal.UserID = u.ID
	return nil
}

// RequirePermission rejects callers whose principal lacks perm. It must run
// after Auth.
func RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := auth.PrincipalFrom(c.Request.Context())
		if !ok {
			abort(c, apperrors.Unauthorized("authentication required"))
			return
		}
		if !principal.Can(perm) {
			abort(c, apperrors.Forbidden("missing permission").WithDetail("permission", perm))
			return
		}
		c.Next()
	}
}

func asAppError(err error, fallback *apperrors.AppError) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	return fallback.WithCause(err)
}
