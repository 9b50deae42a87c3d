// Package apikey issues and verifies long-lived API keys presented as
// "Authorization: Token <key-id>.<secret>".
//
// Only a bcrypt hash of the secret is stored; the plaintext token is
// returned once, by Create. Keys belong to a local user and carry scopes
// that become the principal's permissions.
package apikey
