package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSConfig lets browser clients call the API. Origins are exact, "*", or
// a scheme plus wildcard host such as "https://*.example.com".
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	// MaxAge lets browsers cache a preflight answer.
	MaxAge time.Duration `mapstructure:"max_age"`
}

// Allows reports whether origin matches one of the allowed origins.
func (c *CORSConfig) Allows(origin string) bool {
	return slices.ContainsFunc(c.AllowedOrigins, func(pattern string) bool {
		return matchOrigin(pattern, origin)
	})
}

func matchOrigin(pattern, origin string) bool {
	if pattern == "*" || pattern == origin {
		return true
	}
	prefix, suffix, ok := strings.Cut(pattern, "*")
	if !ok || !strings.HasSuffix(prefix, "://") {
		return false
	}
	host, found := strings.CutPrefix(origin, prefix)
	return found && strings.HasSuffix(host, suffix) && len(host) > len(suffix) &&
		!strings.Contains(strings.TrimSuffix(host, suffix), "/")
}

// CORS answers preflight requests itself and decorates the rest. Requests
// from origins that are not allowed pass through without CORS headers.
func CORS(cfg *CORSConfig) Middleware {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()
			h.Add("Vary", "Origin")
			if origin == "" || !cfg.Allows(origin) {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", origin)
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if !preflight {
				setIf(h, "Access-Control-Expose-Headers", exposed)
				next.ServeHTTP(w, r)
				return
			}
			setIf(h, "Access-Control-Allow-Methods", methods)
			setIf(h, "Access-Control-Allow-Headers", headers)
			setIf(h, "Access-Control-Max-Age", maxAge)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func setIf(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

// GinCORS returns CORS as a Gin middleware.
func GinCORS(cfg *CORSConfig) gin.HandlerFunc {
	return GinWrap(CORS(cfg))
}
