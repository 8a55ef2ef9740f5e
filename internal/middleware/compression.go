// Package middleware holds transport-level gin middleware shared by the API and the form pages.
package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // responses below this many bytes go out uncompressed
	CompressionLevel int      // gzip level 1-9
	ContentTypes     []string // content types worth compressing
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: gzip.DefaultCompression,
		ContentTypes: []string{
			"application/json",
			"text/html",
			"text/plain",
		},
	}
}

// CompressionMiddleware gzips large textual responses for clients that accept it
type CompressionMiddleware struct {
	config CompressionConfig
	stats  *CompressionStats
	pool   sync.Pool
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	if config.MinSize < 0 {
		config.MinSize = 0
	}
	if config.CompressionLevel < gzip.HuffmanOnly || config.CompressionLevel > gzip.BestCompression {
		config.CompressionLevel = gzip.DefaultCompression
	}
	if len(config.ContentTypes) == 0 {
		config.ContentTypes = DefaultCompressionConfig().ContentTypes
	}

	cm := &CompressionMiddleware{config: config, stats: NewCompressionStats()}
	cm.pool.New = func() interface{} {
		gz, _ := gzip.NewWriterLevel(io.Discard, cm.config.CompressionLevel)
		return gz
	}
	return cm
}

// Handler returns the gin middleware. Bodies are buffered up to MinSize so
// small responses are never compressed.
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		gzw := &gzipResponseWriter{ResponseWriter: c.Writer, cm: cm, status: c.Writer.Status()}
		c.Writer = gzw
		c.Header("Vary", "Accept-Encoding")

		defer func() {
			gzw.finish()
			c.Writer = gzw.ResponseWriter
		}()

		c.Next()
	}
}

func (cm *CompressionMiddleware) shouldCompress(contentType string) bool {
	for _, ct := range cm.config.ContentTypes {
		if strings.Contains(contentType, ct) {
			return true
		}
	}
	return false
}

// GetStats returns compression statistics
func (cm *CompressionMiddleware) GetStats() map[string]interface{} {
	return cm.stats.GetStats()
}

// gzipResponseWriter holds the body back until it knows whether to compress
type gzipResponseWriter struct {
	gin.ResponseWriter
	cm *CompressionMiddleware

	status      int
	statusSet   bool
	wroteHeader bool
	buf         []byte
	gz          *gzip.Writer
	decided     bool
	size        int
}

func (w *gzipResponseWriter) WriteHeader(code int) {
	if code > 0 && !w.wroteHeader {
		w.status = code
		w.statusSet = true
	}
}

func (w *gzipResponseWriter) WriteHeaderNow() {
	w.wroteHeader = true
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	w.wroteHeader = true
	w.size += len(data)

	if w.decided {
		if w.gz != nil {
			return w.gz.Write(data)
		}
		return w.ResponseWriter.Write(data)
	}

	w.buf = append(w.buf, data...)
	if len(w.buf) >= w.cm.config.MinSize {
		if err := w.decide(true); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

func (w *gzipResponseWriter) Written() bool {
	return w.wroteHeader || w.ResponseWriter.Written()
}

func (w *gzipResponseWriter) Status() int {
	return w.status
}

func (w *gzipResponseWriter) Size() int {
	if !w.wroteHeader {
		return -1
	}
	return w.size
}

// decide commits the headers and flushes the buffered prefix
func (w *gzipResponseWriter) decide(large bool) error {
	w.decided = true
	header := w.ResponseWriter.Header()

	compress := large &&
		header.Get("Content-Encoding") == "" &&
		w.status != http.StatusNoContent && w.status != http.StatusNotModified &&
		w.cm.shouldCompress(header.Get("Content-Type"))

	if compress {
		header.Set("Content-Encoding", "gzip")
		header.Del("Content-Length")
		w.gz = w.cm.pool.Get().(*gzip.Writer)
		w.gz.Reset(w.ResponseWriter)
	} else if len(w.buf) > 0 {
		header.Set("Content-Length", strconv.Itoa(len(w.buf)))
	}

	w.ResponseWriter.WriteHeader(w.status)
	w.ResponseWriter.WriteHeaderNow()

	pending := w.buf
	w.buf = nil
	if len(pending) == 0 {
		return nil
	}
	if w.gz != nil {
		_, err := w.gz.Write(pending)
		return err
	}
	_, err := w.ResponseWriter.Write(pending)
	return err
}

func (w *gzipResponseWriter) finish() {
	if !w.decided {
		if !w.wroteHeader && !w.statusSet {
			return
		}
		_ = w.decide(false)
	}

	if w.gz == nil {
		w.cm.stats.RecordRequest(int64(w.size), int64(w.size), false)
		return
	}

	_ = w.gz.Close()
	w.cm.pool.Put(w.gz)
	w.cm.stats.RecordRequest(int64(w.size), int64(w.ResponseWriter.Size()), true)
	w.gz = nil
}

func (w *gzipResponseWriter) Flush() {
	if !w.decided {
		_ = w.decide(len(w.buf) >= w.cm.config.MinSize)
	}
	if w.gz != nil {
		_ = w.gz.Flush()
	}
	w.ResponseWriter.Flush()
}

// CompressionStats tracks compression statistics
type CompressionStats struct {
	TotalRequests      int64
	CompressedRequests int64
	TotalBytes         int64
	CompressedBytes    int64
}

// NewCompressionStats creates new compression statistics
func NewCompressionStats() *CompressionStats {
	return &CompressionStats{}
}

// RecordRequest records a request's compression stats
func (cs *CompressionStats) RecordRequest(originalSize, compressedSize int64, compressed bool) {
	atomic.AddInt64(&cs.TotalRequests, 1)
	atomic.AddInt64(&cs.TotalBytes, originalSize)
	if compressed {
		atomic.AddInt64(&cs.CompressedRequests, 1)
		atomic.AddInt64(&cs.CompressedBytes, compressedSize)
	} else {
		atomic.AddInt64(&cs.CompressedBytes, originalSize)
	}
}

// GetStats returns current compression statistics
func (cs *CompressionStats) GetStats() map[string]interface{} {
	total := atomic.LoadInt64(&cs.TotalBytes)
	out := atomic.LoadInt64(&cs.CompressedBytes)

	ratio := float64(1)
	if total > 0 {
		ratio = float64(out) / float64(total)
	}

	return map[string]interface{}{
		"total_requests":      atomic.LoadInt64(&cs.TotalRequests),
		"compressed_requests": atomic.LoadInt64(&cs.CompressedRequests),
		"total_bytes":         total,
		"compressed_bytes":    out,
		"compression_ratio":   ratio,
		"compression_savings": 1.0 - ratio,
	}
}
