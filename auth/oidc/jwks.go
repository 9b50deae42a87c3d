package oidc

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/scribegate/cache"
	"github.com/kbukum/scribegate/logger"
)

// jwk represents a JSON Web Key.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg,omitempty"`
	Use string `json:"use,omitempty"`

	// RSA fields
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`

	// EC fields
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

type jwksDoc struct {
	Keys []jwk `json:"keys"`
}

// errUnavailable marks failures to reach the issuer, as opposed to bad tokens.
var errUnavailable = errors.New("identity provider unavailable")

type discoveryDoc struct {
	Issuer  string `json:"issuer"`
	JWKSUri string `json:"jwks_uri"`
}

// keySet resolves signing keys by kid. Keys live in process memory for
// ttl and in the shared cache for the same ttl. A kid missing from a
// fresh set forces one fetch from the issuer.
type keySet struct {
	issuer  string
	jwksURL string
	client  *http.Client
	ttl     time.Duration
	shared  cache.Store[jwksDoc]
	log     *logger.Logger
	now     func() time.Time

	mu        sync.RWMutex
	keys      map[string]jwk
	fetchedAt time.Time

	// fetchMu serializes origin fetches so a burst of unknown kids costs one request.
	fetchMu sync.Mutex
}

func (s *keySet) lookup(kid string) (jwk, bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fresh := s.keys != nil && s.now().Sub(s.fetchedAt) < s.ttl
	k, ok := s.keys[kid]
	return k, ok, fresh
}

func (s *keySet) install(doc *jwksDoc) {
	keys := make(map[string]jwk, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Use == "sig" || k.Use == "" {
			keys[k.Kid] = k
		}
	}
	s.mu.Lock()
	s.keys = keys
	s.fetchedAt = s.now()
	s.mu.Unlock()
}

// key returns the public key for kid.
func (s *keySet) key(ctx context.Context, kid string) (crypto.PublicKey, error) {
	k, ok, fresh := s.lookup(kid)
	if ok && fresh {
		return k.publicKey()
	}

	if !fresh {
		if doc := s.loadShared(ctx); doc != nil {
			s.install(doc)
			if k, ok, _ := s.lookup(kid); ok {
				return k.publicKey()
			}
		}
	}

	if err := s.refresh(ctx, kid); err != nil {
		return nil, err
	}
	k, ok, _ = s.lookup(kid)
	if !ok {
		return nil, fmt.Errorf("key %q not found in JWKS", kid)
	}
	return k.publicKey()
}

func (s *keySet) loadShared(ctx context.Context) *jwksDoc {
	if s.shared == nil {
		return nil
	}
	doc, err := s.shared.Load(ctx, s.cacheKey())
	if err != nil {
		s.log.Warn("JWKS cache read failed", map[string]interface{}{
			"issuer": s.issuer, "error": err.Error(),
		})
		return nil
	}
	return doc
}

func (s *keySet) cacheKey() string {
	return s.issuer
}

// refresh fetches the key set from the issuer unless another caller
// already installed a set containing kid while this one waited.
func (s *keySet) refresh(ctx context.Context, kid string) error {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	if _, ok, fresh := s.lookup(kid); ok && fresh {
		return nil
	}

	doc, err := s.fetch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", errUnavailable, err)
	}
	s.install(doc)

	if s.shared != nil {
		if err := s.shared.Save(ctx, s.cacheKey(), doc, s.ttl); err != nil {
			s.log.Warn("JWKS cache write failed", map[string]interface{}{
				"issuer": s.issuer, "error": err.Error(),
			})
		}
	}
	s.log.Debug("JWKS refreshed", map[string]interface{}{
		"issuer": s.issuer, "keys": len(doc.Keys),
	})
	return nil
}

func (s *keySet) fetch(ctx context.Context) (*jwksDoc, error) {
	url, err := s.resolveURL(ctx)
	if err != nil {
		return nil, err
	}
	var doc jwksDoc
	if err := s.getJSON(ctx, url, &doc); err != nil {
		return nil, fmt.Errorf("fetch JWKS: %w", err)
	}
	return &doc, nil
}

// resolveURL returns the configured JWKS URL or discovers it from the issuer.
func (s *keySet) resolveURL(ctx context.Context) (string, error) {
	if s.jwksURL != "" {
		return s.jwksURL, nil
	}
	var doc discoveryDoc
	wellKnown := strings.TrimRight(s.issuer, "/") + "/.well-known/openid-configuration"
	if err := s.getJSON(ctx, wellKnown, &doc); err != nil {
		return "", fmt.Errorf("discovery failed for %s: %w", s.issuer, err)
	}
	if doc.JWKSUri == "" {
		return "", errors.New("discovery document missing jwks_uri")
	}
	s.jwksURL = doc.JWKSUri
	return s.jwksURL, nil
}

func (s *keySet) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // Error on close is safe to ignore for read operations

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// publicKey converts a JWK to a Go crypto.PublicKey.
func (k *jwk) publicKey() (crypto.PublicKey, error) {
	switch k.Kty {
	case "RSA":
		return k.rsaPublicKey()
	case "EC":
		return k.ecPublicKey()
	default:
		return nil, fmt.Errorf("unsupported key type: %s", k.Kty)
	}
}

func (k *jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode RSA N: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode RSA E: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

func (k *jwk) ecPublicKey() (*ecdsa.PublicKey, error) {
	xBytes, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, fmt.Errorf("decode EC X: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(k.Y)
	if err != nil {
		return nil, fmt.Errorf("decode EC Y: %w", err)
	}

	var curve elliptic.Curve
	switch k.Crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("unsupported curve: %s", k.Crv)
	}

	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
