package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCompressedRouter(cm *CompressionMiddleware) *gin.Engine {
	r := gin.New()
	r.Use(cm.Handler())
	r.GET("/large", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"padding": strings.Repeat("a", 4096)})
	})
	r.GET("/small", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/binary", func(c *gin.Context) {
		c.Data(http.StatusOK, "image/png", make([]byte, 4096))
	})
	r.GET("/empty", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, path string, acceptGzip bool) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if acceptGzip {
		req.Header.Set("Accept-Encoding", "gzip, deflate")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCompression(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		acceptGzip     bool
		expectedStatus int
		wantGzip       bool
	}{
		{name: "large JSON is compressed", path: "/large", acceptGzip: true, expectedStatus: http.StatusOK, wantGzip: true},
		{name: "client without gzip gets plain body", path: "/large", expectedStatus: http.StatusOK},
		{name: "small JSON is left alone", path: "/small", acceptGzip: true, expectedStatus: http.StatusOK},
		{name: "binary content type is left alone", path: "/binary", acceptGzip: true, expectedStatus: http.StatusOK},
		{name: "no content keeps status", path: "/empty", acceptGzip: true, expectedStatus: http.StatusNoContent},
		{name: "unknown route keeps 404", path: "/missing", acceptGzip: true, expectedStatus: http.StatusNotFound},
	}

	r := newCompressedRouter(NewCompressionMiddleware(DefaultCompressionConfig()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.path, tt.acceptGzip)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if !tt.wantGzip {
				assert.Empty(t, w.Header().Get("Content-Encoding"))
				return
			}

			assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
			zr, err := gzip.NewReader(w.Body)
			require.NoError(t, err)
			body, err := io.ReadAll(zr)
			require.NoError(t, err)
			assert.Contains(t, string(body), strings.Repeat("a", 4096))
		})
	}
}

func TestCompression_Stats(t *testing.T) {
	cm := NewCompressionMiddleware(DefaultCompressionConfig())
	r := newCompressedRouter(cm)

	get(r, "/large", true)
	get(r, "/small", true)

	stats := cm.GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, int64(1), stats["compressed_requests"])
	assert.Less(t, stats["compression_ratio"].(float64), 1.0)
}

func TestNewCompressionMiddleware_Defaults(t *testing.T) {
	cm := NewCompressionMiddleware(CompressionConfig{MinSize: -5, CompressionLevel: 42})
	assert.Equal(t, 0, cm.config.MinSize)
	assert.Equal(t, gzip.DefaultCompression, cm.config.CompressionLevel)
	assert.NotEmpty(t, cm.config.ContentTypes)
}
