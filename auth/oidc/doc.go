// Package oidc verifies OIDC access tokens presented as
// "Authorization: Bearer <jwt>".
//
// The Verifier discovers the issuer's JWKS endpoint, caches the key set in
// redis (shared across replicas) and in process memory, and checks the
// signature, issuer, audience and lifetime with golang-jwt. Keycloak
// claims (preferred_username, realm_access and resource_access roles,
// scope) are mapped onto an auth.Principal.
//
//	v := oidc.NewVerifier(cfg, redisClient, log)
//	registry.Register(v)
package oidc
