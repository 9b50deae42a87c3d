// Package auth authenticates API callers.
//
// Two credential schemes are supported, each behind an Authenticator:
//
//   - Bearer <jwt>      OIDC access tokens verified against the issuer's JWKS (auth/oidc)
//   - Token <id>.<key>  API keys with bcrypt-hashed secrets (auth/apikey)
//
// A Registry maps the scheme of an Authorization header to its
// Authenticator. The resulting Principal travels in the request context
// and carries the permissions checked by route guards.
package auth
