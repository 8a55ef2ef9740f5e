package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const nonceKey = "csp-nonce"

// staticHeaders go on every response. Applicant data must not linger in shared caches.
var staticHeaders = [][2]string{
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
	{"Cache-Control", "no-store"},
}

// SecurityHeadersMiddleware sets the static response headers.
// hsts should only be enabled when the service sits behind TLS.
func SecurityHeadersMiddleware(hsts bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range staticHeaders {
			h.Set(kv[0], kv[1])
		}
		if hsts {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

// GenerateNonce returns 16 random bytes, base64 encoded
func GenerateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// CSPMiddleware issues a per-request nonce for the page templates and sends
// the matching Content-Security-Policy. With reportURI set, violations of the
// same policy are also reported.
func CSPMiddleware(reportURI string) gin.HandlerFunc {
	return func(c *gin.Context) {
		nonce, err := GenerateNonce()
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Set(nonceKey, nonce)

		policy := pagePolicy(nonce)
		c.Header("Content-Security-Policy", policy)
		if reportURI != "" {
			c.Header("Content-Security-Policy-Report-Only", policy+"; report-uri "+reportURI)
		}
		c.Next()
	}
}

// GetNonce returns the nonce CSPMiddleware stored, or "" outside the page routes
func GetNonce(c *gin.Context) string {
	return c.GetString(nonceKey)
}

// pagePolicy allows nothing but same-origin resources and nonce'd inline blocks
func pagePolicy(nonce string) string {
	directives := []string{
		"default-src 'none'",
		"script-src 'nonce-" + nonce + "'",
		"style-src 'self' 'nonce-" + nonce + "'",
		"img-src 'self' data:",
		"frame-ancestors 'none'",
		"base-uri 'none'",
		"form-action 'self'",
	}
	return strings.Join(directives, "; ")
}
