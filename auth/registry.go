package auth

import (
	"context"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/kbukum/scribegate/errors"
)

// Registry is a thread-safe registry of Authenticators keyed by
// case-insensitive scheme.
//
//	reg := auth.NewRegistry()
//	reg.Register(oidcVerifier)
//	reg.Register(apiKeys)
//	principal, err := reg.Authenticate(ctx, r.Header.Get("Authorization"))
type Registry struct {
	mu             sync.RWMutex
	authenticators map[string]Authenticator
}

// NewRegistry creates a registry holding the given authenticators.
func NewRegistry(authenticators ...Authenticator) *Registry {
	r := &Registry{authenticators: make(map[string]Authenticator)}
	for _, a := range authenticators {
		r.Register(a)
	}
	return r
}

// Register adds a, replacing any authenticator for the same scheme.
func (r *Registry) Register(a Authenticator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authenticators[strings.ToLower(a.Scheme())] = a
}

// Get returns the authenticator for scheme.
func (r *Registry) Get(scheme string) (Authenticator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.authenticators[strings.ToLower(scheme)]
	return a, ok
}

// Schemes returns the registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.authenticators))
	for _, a := range r.authenticators {
		names = append(names, a.Scheme())
	}
	sort.Strings(names)
	return names
}

// Authenticate verifies an Authorization header value with the
// authenticator registered for its scheme.
func (r *Registry) Authenticate(ctx context.Context, header string) (*Principal, error) {
	scheme, credential, err := ParseAuthorization(header)
	if err != nil {
		return nil, err
	}
	a, ok := r.Get(scheme)
	if !ok {
		return nil, apperrors.Unauthorized("unsupported authorization scheme").
			WithDetail("supported", r.Schemes())
	}
	return a.Authenticate(ctx, credential)
}
