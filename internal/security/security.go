package security

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
)

var (
	scriptPattern  = regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`)
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxFieldLength int           `json:"max_field_length"`
	MaxFields      int           `json:"max_fields"`
	MaxBodyBytes   int64         `json:"max_body_bytes"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxFieldLength: 64,
		MaxFields:      64,
		MaxBodyBytes:   1 << 20,
		RequestTimeout: 5 * time.Second,
	}
}

// SecurityMiddleware screens raw submissions before they reach the pipeline
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	def := DefaultSecurityConfig()
	if config.MaxFieldLength <= 0 {
		config.MaxFieldLength = def.MaxFieldLength
	}
	if config.MaxFields <= 0 {
		config.MaxFields = def.MaxFields
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = def.MaxBodyBytes
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = def.RequestTimeout
	}
	return &SecurityMiddleware{config: config}
}

// ValidateInput checks a single submitted string value
func (sm *SecurityMiddleware) ValidateInput(input string) error {
	if len(input) > sm.config.MaxFieldLength {
		return fmt.Errorf("value exceeds maximum length of %d characters", sm.config.MaxFieldLength)
	}

	// Check for null bytes (potential injection attempt)
	if strings.Contains(input, "\x00") {
		return fmt.Errorf("value contains invalid characters")
	}

	if !utf8.ValidString(input) {
		return fmt.Errorf("value contains invalid UTF-8 encoding")
	}

	return nil
}

// SanitizeInput trims the value, strips markup and collapses whitespace
func (sm *SecurityMiddleware) SanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	input = scriptPattern.ReplaceAllString(input, "")
	input = htmlTagPattern.ReplaceAllString(input, "")
	return spacePattern.ReplaceAllString(input, " ")
}

// SanitizeFields validates and sanitizes every string value of a raw
// submission. Non-string values pass through unchanged. The returned error
// is a validation AppError naming the first offending field.
func (sm *SecurityMiddleware) SanitizeFields(raw map[string]any) (map[string]any, error) {
	if len(raw) > sm.config.MaxFields {
		return nil, apperrors.NewValidationError("", fmt.Sprintf("too many fields (max %d)", sm.config.MaxFields))
	}

	out := make(map[string]any, len(raw))
	var errs []*apperrors.AppError
	for key, value := range raw {
		s, ok := value.(string)
		if !ok {
			out[key] = value
			continue
		}
		if err := sm.ValidateInput(s); err != nil {
			errs = append(errs, apperrors.NewValidationError(key, err.Error()))
			continue
		}
		out[key] = sm.SanitizeInput(s)
	}

	if len(errs) > 0 {
		// map iteration order is random; keep the reported field stable
		sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
		return nil, apperrors.NewFieldErrors(errs)
	}
	return out, nil
}

// ValidateContentType rejects bodies that are neither JSON nor form-encoded
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
		c.Next()
		return
	}

	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	allowedTypes := []string{
		"application/json",
		"application/x-www-form-urlencoded",
		"multipart/form-data",
	}

	if contentType != "" {
		found := false
		for _, allowed := range allowedTypes {
			if strings.Contains(contentType, allowed) {
				found = true
				break
			}
		}

		if !found {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
				"error": "unsupported content type",
			})
			return
		}
	}

	c.Next()
}

// LimitBody caps the request body size
func (sm *SecurityMiddleware) LimitBody(c *gin.Context) {
	if c.Request.ContentLength > sm.config.MaxBodyBytes {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "request body too large",
		})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
	c.Next()
}

// RequestTimeout enforces request timeout
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)

	// Set timeout header for client
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}
