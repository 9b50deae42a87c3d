package auth

import (
	"context"
	"strings"

	apperrors "github.com/kbukum/scribegate/errors"
)

// Authentication methods recorded on a Principal.
const (
	MethodOIDC   = "oidc"
	MethodAPIKey = "apikey"
)

// Principal is an authenticated caller.
type Principal struct {
	// UserID is the local user id. OIDC principals get it after provisioning.
	UserID string
	// Subject is the identity provider subject, empty for API keys.
	Subject  string
	Username string
	Email    string
	Roles    []string
	// Permissions are resource:action patterns such as "jobs:*".
	Permissions []string
	Method      string
}

// Can reports whether any of the principal's permission patterns match perm.
func (p *Principal) Can(perm string) bool {
	return p != nil && MatchAny(p.Permissions, perm)
}

// Authenticator verifies one credential scheme.
type Authenticator interface {
	// Scheme is the Authorization header scheme, e.g. "Bearer".
	Scheme() string
	// Authenticate verifies credential and returns the caller.
	Authenticate(ctx context.Context, credential string) (*Principal, error)
}

// AuthenticatorFunc adapts a function to Authenticator for the given scheme.
type AuthenticatorFunc struct {
	Name string
	Fn   func(ctx context.Context, credential string) (*Principal, error)
}

// Scheme implements Authenticator.
func (f AuthenticatorFunc) Scheme() string { return f.Name }

// Authenticate implements Authenticator.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, credential string) (*Principal, error) {
	return f.Fn(ctx, credential)
}

// ParseAuthorization splits an Authorization header into scheme and
// credential.
func ParseAuthorization(header string) (scheme, credential string, err error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", "", apperrors.Unauthorized("missing Authorization header")
	}
	scheme, credential, ok := strings.Cut(header, " ")
	credential = strings.TrimSpace(credential)
	if !ok || credential == "" {
		return "", "", apperrors.Unauthorized("malformed Authorization header")
	}
	return scheme, credential, nil
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
