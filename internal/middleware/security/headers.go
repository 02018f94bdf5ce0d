package security

import (
	"fmt"
	"net/http"
	"strings"
)

// HeadersConfig lists the response headers sent on every page. An empty
// value omits the header.
type HeadersConfig struct {
	// CSP directives in order, e.g. {"script-src", "'self'"}.
	CSP [][2]string
	// HSTS max-age in seconds, sent on TLS requests only.
	HSTSMaxAge int
	Static     map[string]string
}

// DefaultHeadersConfig allows htmx from unpkg and the inline style the goal
// bar width is set through.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: [][2]string{
			{"default-src", "'self'"},
			{"script-src", "'self' https://unpkg.com"},
			{"style-src", "'self' 'unsafe-inline'"},
			{"img-src", "'self' data:"},
			{"connect-src", "'self'"},
			{"object-src", "'none'"},
			{"frame-ancestors", "'none'"},
			{"base-uri", "'self'"},
			{"form-action", "'self'"},
		},
		HSTSMaxAge: 365 * 24 * 3600,
		Static: map[string]string{
			"X-Content-Type-Options":       "nosniff",
			"X-Frame-Options":              "DENY",
			"Referrer-Policy":              "strict-origin-when-cross-origin",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
	}
}

// HeadersMiddleware sets the configured headers before the handler runs.
type HeadersMiddleware struct {
	fixed http.Header
	hsts  string
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	fixed := http.Header{}
	for name, value := range config.Static {
		if value != "" {
			fixed.Set(name, value)
		}
	}
	if len(config.CSP) > 0 {
		parts := make([]string, 0, len(config.CSP))
		for _, d := range config.CSP {
			parts = append(parts, d[0]+" "+d[1])
		}
		fixed.Set("Content-Security-Policy", strings.Join(parts, "; "))
	}

	m := &HeadersMiddleware{fixed: fixed}
	if config.HSTSMaxAge > 0 {
		m.hsts = fmt.Sprintf("max-age=%d; includeSubDomains", config.HSTSMaxAge)
	}
	return m
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for name := range h.fixed {
			headers.Set(name, h.fixed.Get(name))
		}
		if r.TLS != nil && h.hsts != "" {
			headers.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware marks embedded assets cacheable for maxAge seconds.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	cacheControl := fmt.Sprintf("public, max-age=%d", maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", cacheControl)
			}
			next.ServeHTTP(w, r)
		})
	}
}
