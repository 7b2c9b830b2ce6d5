package middleware

import (
	"net/http"
	"strings"
)

// Third-party origins the page loads from.
const (
	htmxOrigin     = "https://unpkg.com"
	tailwindOrigin = "https://cdn.tailwindcss.com"
	mapsOrigin     = "https://www.google.com"
)

// SecurityHeadersMiddleware sets the security headers on every response.
type SecurityHeadersMiddleware struct {
	isSecure bool
	csp      string
}

// NewSecurityHeadersMiddleware builds the middleware. isSecure enables HSTS
// and should be true whenever the site is served over HTTPS.
// extraImgSrc adds image origins such as the R2 public URL.
func NewSecurityHeadersMiddleware(isSecure bool, extraImgSrc ...string) *SecurityHeadersMiddleware {
	return &SecurityHeadersMiddleware{
		isSecure: isSecure,
		csp:      buildCSP(extraImgSrc),
	}
}

func (m *SecurityHeadersMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-XSS-Protection", "1; mode=block")
		if m.isSecure {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		h.Set("Content-Security-Policy", m.csp)
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		next.ServeHTTP(w, r)
	})
}

// buildCSP allows htmx from unpkg, the Tailwind play CDN (which injects
// inline styles), https images and the Google Maps embed. The page itself
// may not be framed.
func buildCSP(extraImgSrc []string) string {
	img := []string{"'self'", "data:", "https:"}
	for _, src := range extraImgSrc {
		src = strings.TrimRight(strings.TrimSpace(src), "/")
		if src != "" && !strings.HasPrefix(src, "https:") {
			img = append(img, src)
		}
	}

	directives := []string{
		"default-src 'self'",
		"script-src 'self' " + htmxOrigin + " " + tailwindOrigin + " 'unsafe-inline'",
		"style-src 'self' 'unsafe-inline'",
		"img-src " + strings.Join(img, " "),
		"font-src 'self'",
		"connect-src 'self'",
		"frame-src " + mapsOrigin,
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}
	return strings.Join(directives, "; ")
}
