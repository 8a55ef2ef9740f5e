package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSecurityConfigDefaults(t *testing.T) {
	sm := NewSecurityMiddleware(SecurityConfig{})

	assert.Equal(t, DefaultSecurityConfig(), sm.config)
	assert.Equal(t, 5*time.Second, sm.config.RequestTimeout)
}

func TestValidateInput(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	tests := []struct {
		name     string
		input    string
		errorMsg string
	}{
		{name: "valid label", input: "Graduate"},
		{name: "valid number", input: "500000"},
		{name: "too long", input: strings.Repeat("9", 65), errorMsg: "maximum length"},
		{name: "null bytes", input: "75\x000", errorMsg: "invalid characters"},
		{name: "invalid UTF-8", input: "Yes\xff\xfe", errorMsg: "invalid UTF-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sm.ValidateInput(tt.input)
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	assert.Equal(t, "Not Graduate", sm.SanitizeInput("  Not   Graduate "))
	assert.Equal(t, "Yes", sm.SanitizeInput("<script>alert(1)</script><b>Yes</b>"))
}

func TestSanitizeFields(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig())

	out, err := sm.SanitizeFields(map[string]any{
		"education":   " <i>Graduate</i> ",
		"cibil_score": 750,
	})
	require.NoError(t, err)
	assert.Equal(t, "Graduate", out["education"])
	assert.Equal(t, 750, out["cibil_score"])

	_, err = sm.SanitizeFields(map[string]any{
		"self_employed": "No\x00",
		"education":     strings.Repeat("x", 100),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	appErr := apperrors.ToAppError(err)
	assert.Equal(t, "education", appErr.Field)
	assert.Len(t, apperrors.FieldMessages(appErr), 2)
}

func TestSanitizeFields_TooMany(t *testing.T) {
	sm := NewSecurityMiddleware(SecurityConfig{MaxFields: 2})

	_, err := sm.SanitizeFields(map[string]any{"a": "1", "b": "2", "c": "3"})
	assert.True(t, apperrors.IsValidation(err))
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	ok := func(c *gin.Context) { c.String(http.StatusOK, GetNonce(c)) }
	r.GET("/", ok)
	r.POST("/predict", ok)
	return r
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(SecurityHeadersMiddleware(false)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	w = httptest.NewRecorder()
	newRouter(SecurityHeadersMiddleware(true)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestCSPMiddleware(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(CSPMiddleware("")).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	nonce := w.Body.String()
	require.NotEmpty(t, nonce)
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "'nonce-"+nonce+"'")
	assert.Empty(t, w.Header().Get("Content-Security-Policy-Report-Only"))

	w2 := httptest.NewRecorder()
	newRouter(CSPMiddleware("/csp-report")).ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEqual(t, nonce, w2.Body.String(), "nonce is per request")
	assert.Contains(t, w2.Header().Get("Content-Security-Policy-Report-Only"), "report-uri /csp-report")
}

func TestValidateContentType(t *testing.T) {
	sm := NewSecurityMiddleware(DefaultSecurityConfig())
	r := newRouter(sm.ValidateContentType)

	tests := []struct {
		contentType string
		want        int
	}{
		{"application/json", http.StatusOK},
		{"application/x-www-form-urlencoded", http.StatusOK},
		{"text/xml", http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("{}"))
		req.Header.Set("Content-Type", tt.contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tt.want, w.Code, tt.contentType)
	}
}

func TestLimitBody(t *testing.T) {
	sm := NewSecurityMiddleware(SecurityConfig{MaxBodyBytes: 8})
	r := newRouter(sm.LimitBody)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(strings.Repeat("x", 9))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("ok")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestTimeout(t *testing.T) {
	sm := NewSecurityMiddleware(SecurityConfig{RequestTimeout: 2 * time.Second})

	r := gin.New()
	r.Use(sm.RequestTimeout)
	var hasDeadline bool
	r.GET("/", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, hasDeadline)
	assert.Equal(t, "2", w.Header().Get("X-Timeout"))
}
