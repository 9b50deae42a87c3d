package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/scribegate/auth"
	"github.com/kbukum/scribegate/cache"
	apperrors "github.com/kbukum/scribegate/errors"
	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/redis"
)

// Claims are the access token claims issued by Keycloak-style providers.
type Claims struct {
	jwt.RegisteredClaims
	PreferredUsername string            `json:"preferred_username,omitempty"`
	Email             string            `json:"email,omitempty"`
	Scope             string            `json:"scope,omitempty"`
	AuthorizedParty   string            `json:"azp,omitempty"`
	RealmAccess       Access            `json:"realm_access,omitempty"`
	ResourceAccess    map[string]Access `json:"resource_access,omitempty"`
}

// Access lists the roles granted in a realm or client.
type Access struct {
	Roles []string `json:"roles,omitempty"`
}

// Roles returns realm roles followed by the client's resource roles,
// without duplicates.
func (c *Claims) Roles(clientID string) []string {
	roles := make([]string, 0, len(c.RealmAccess.Roles))
	for _, r := range c.RealmAccess.Roles {
		if !slices.Contains(roles, r) {
			roles = append(roles, r)
		}
	}
	if clientID != "" {
		for _, r := range c.ResourceAccess[clientID].Roles {
			if !slices.Contains(roles, r) {
				roles = append(roles, r)
			}
		}
	}
	return roles
}

// Scopes splits the space separated scope claim.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// Verifier authenticates Bearer tokens. It implements auth.Authenticator.
type Verifier struct {
	cfg         Config
	keys        *keySet
	permissions auth.RolePermissions
	log         *logger.Logger
	now         func() time.Time
}

var _ auth.Authenticator = (*Verifier)(nil)

// Option configures a Verifier.
type Option func(*Verifier)

// WithHTTPClient overrides the client used for discovery and JWKS requests.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.keys.client = c }
}

// WithRolePermissions maps token roles to permission patterns.
func WithRolePermissions(m auth.RolePermissions) Option {
	return func(v *Verifier) { v.permissions = m }
}

// WithClock overrides the time source used for lifetime checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
		v.keys.now = now
	}
}

// NewVerifier creates a verifier. Keys are fetched lazily on first use, so
// the issuer need not be reachable at startup. A nil redis client keeps
// the key cache in process memory only.
func NewVerifier(cfg Config, client *redis.Client, log *logger.Logger, opts ...Option) *Verifier {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("oidc")

	v := &Verifier{
		cfg: cfg,
		log: log,
		now: time.Now,
	}
	var shared cache.Store[jwksDoc]
	if client != nil {
		shared = cache.New[jwksDoc](client, "oidc:jwks")
	}
	v.keys = &keySet{
		issuer:  strings.TrimRight(cfg.Issuer, "/"),
		jwksURL: cfg.JWKSURL,
		client:  &http.Client{Timeout: cfg.GetHTTPTimeout()},
		ttl:     cfg.GetJWKSCacheTTL(),
		shared:  shared,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Scheme implements auth.Authenticator.
func (v *Verifier) Scheme() string { return "Bearer" }

// Authenticate verifies the token and maps its claims onto a Principal.
// The principal has no UserID until the caller provisions the user.
func (v *Verifier) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	claims, err := v.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	roles := claims.Roles(v.cfg.ClientID)
	return &auth.Principal{
		Subject:     claims.Subject,
		Username:    claims.PreferredUsername,
		Email:       claims.Email,
		Roles:       roles,
		Permissions: v.permissions.Resolve(roles),
		Method:      auth.MethodOIDC,
	}, nil
}

// Verify checks the signature, issuer, audience and lifetime of token.
// Expired tokens yield TOKEN_EXPIRED and an unreachable issuer yields
// EXTERNAL_SERVICE_ERROR. Every other failure is INVALID_TOKEN.
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.cfg.SupportedSigningAlgs),
		jwt.WithIssuer(v.keys.issuer),
		jwt.WithLeeway(v.cfg.GetLeeway()),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}

	claims := &Claims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header has no kid")
		}
		return v.keys.key(ctx, kid)
	})
	if err != nil {
		return nil, v.reject(err)
	}
	if claims.Subject == "" {
		return nil, v.reject(errors.New("token has no subject"))
	}
	if v.cfg.Audience == "" && v.cfg.ClientID != "" &&
		!slices.Contains(claims.Audience, v.cfg.ClientID) && claims.AuthorizedParty != v.cfg.ClientID {
		return nil, v.reject(fmt.Errorf("token not issued for client %q", v.cfg.ClientID))
	}
	return claims, nil
}

func (v *Verifier) reject(err error) error {
	v.log.Debug("Bearer token rejected", map[string]interface{}{"reason": err.Error()})
	if errors.Is(err, errUnavailable) {
		return apperrors.ExternalServiceError("identity provider", err)
	}
	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperrors.TokenExpired().WithCause(err)
	}
	return apperrors.InvalidToken().WithCause(err)
}
