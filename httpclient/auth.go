package httpclient

import "net/http"

// AuthConfig sets credentials on outbound requests. Exactly one of Token
// or HeaderName/Key is expected.
type AuthConfig struct {
	// Token is sent as "Authorization: Bearer <token>".
	Token string
	// HeaderName carries Key verbatim, e.g. "X-API-Key".
	HeaderName string
	Key        string
}

// BearerAuth sends token as a bearer credential.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Token: token}
}

// APIKeyAuth sends key in the named header. An empty name uses X-API-Key.
func APIKeyAuth(key, headerName string) *AuthConfig {
	if headerName == "" {
		headerName = "X-API-Key"
	}
	return &AuthConfig{HeaderName: headerName, Key: key}
}

func (a *AuthConfig) apply(req *http.Request) {
	if a == nil {
		return
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}
	if a.HeaderName != "" && a.Key != "" {
		req.Header.Set(a.HeaderName, a.Key)
	}
}
