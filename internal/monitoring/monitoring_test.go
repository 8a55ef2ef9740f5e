package monitoring

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_PipelineCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordDecision("approve")
	m.RecordDecision("approve")
	m.RecordDecision("reject")
	m.RecordRejection("range")
	m.IncrementInferenceError()
	m.IncrementExplanationFailure()
	m.IncrementExplanationSkipped()
	m.IncrementRateLimitBlock()

	stats := m.GetPipelineStats()
	assert.Equal(t, int64(3), stats["decisions"])
	assert.Equal(t, map[string]int64{"approve": 2, "reject": 1}, stats["decisions_by_outcome"])
	assert.Equal(t, map[string]int64{"range": 1}, stats["rejections"])
	assert.Equal(t, int64(1), stats["inference_errors"])
	assert.Equal(t, int64(1), stats["explanation_failures"])
	assert.Equal(t, int64(1), stats["explanations_skipped"])
	assert.Equal(t, int64(1), stats["rate_limit_blocks"])

	m.Reset()
	assert.Equal(t, int64(0), m.GetPipelineStats()["decisions"])
}

func TestMetrics_Stats(t *testing.T) {
	m := NewMetrics()

	for i := 1; i <= 10; i++ {
		m.IncrementRequest()
		m.RecordResponseTime(time.Duration(i) * time.Millisecond)
	}
	m.IncrementError()
	m.IncrementCacheHit()
	m.IncrementCacheMiss()
	m.RecordRequestByStatus(http.StatusOK)
	m.RecordRequestByStatus(http.StatusBadRequest)

	stats := m.GetStats()
	assert.Equal(t, int64(10), stats["total_requests"])
	assert.InDelta(t, 10.0, stats["error_rate_percent"], 1e-9)
	assert.InDelta(t, 50.0, stats["cache_hit_rate_percent"], 1e-9)
	assert.Equal(t, 10*time.Millisecond, m.GetPercentileResponseTime(100))
	assert.Equal(t, map[int]int64{200: 1, 400: 1}, m.GetStatusCodeDistribution())
}

func TestLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelInfo)

	logger.DecisionLogger("req-1", "approve", 0.97, true, 3*time.Millisecond, false)
	out := buf.String()
	assert.Contains(t, out, `"msg":"Decision Completed"`)
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"timestamp"`)

	buf.Reset()
	logger.CacheLogger("get", "abc", true, 1)
	assert.Empty(t, buf.String(), "debug records are filtered at info level")

	logger.SetLevel(slog.LevelDebug)
	logger.CacheLogger("get", "0123456789abcdef", true, 1)
	assert.Contains(t, buf.String(), `"key_hash":"01234567..."`)
}

func TestLogger_APIErrorCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelInfo)

	logger.APIErrorLogger(errors.New("boom"), "POST", "/predict", "127.0.0.1", 500)
	assert.Regexp(t, `"caller":"[^"]+:\d+"`, buf.String())
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
}

func TestCLIHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCLIHandler(&buf, slog.LevelInfo, false))

	logger.Info("loaded model", "kind", "logistic")
	logger.Debug("hidden")
	assert.Equal(t, "loaded model: kind=logistic\n", buf.String())

	buf.Reset()
	logger.WithGroup("check").Info("ok")
	assert.Equal(t, "[check] ok\n", buf.String())
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Body.String())
	require.NoError(t, err)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	inbound := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, inbound)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, inbound, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid<script>")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid<script>", w.Body.String())
}

func TestMonitoringMiddleware_CountsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	metrics := NewMetrics()
	router := gin.New()
	router.Use(MonitoringMiddleware(metrics, NewLoggerTo(&buf, slog.LevelInfo)))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	for _, path := range []string{"/ok", "/bad", "/bad"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, int64(3), metrics.RequestCount)
	assert.Equal(t, int64(2), metrics.ErrorCount)
	assert.Contains(t, buf.String(), `"msg":"HTTP Request"`)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestTracer_NestedSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewTracer("loan-decision", NewLoggerTo(&buf, slog.LevelDebug))

	root, ctx := tracer.StartSpan(context.Background(), "analyze", WithTraceID("req-42"))
	assert.Equal(t, "req-42", root.TraceID)

	var child *Span
	err := TraceFunction(ctx, tracer, "predict", func(ctx context.Context) error {
		child = SpanFromContext(ctx)
		return errors.New("model rejected record")
	})
	require.Error(t, err)
	require.NotNil(t, child)
	assert.Equal(t, "req-42", child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentID)
	assert.Equal(t, SpanStatusError, child.Status)

	tracer.EndSpan(root, nil)
	assert.Contains(t, buf.String(), `"operation":"predict"`)
	assert.Contains(t, buf.String(), `"operation":"analyze"`)
}

func TestTraceFunction_RepanicsAndEndsSpan(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewTracer("loan-decision", NewLoggerTo(&buf, slog.LevelDebug))

	assert.Panics(t, func() {
		_ = TraceFunction(context.Background(), tracer, "explain", func(context.Context) error {
			panic("engine blew up")
		})
	})
	assert.Contains(t, buf.String(), `"tag_panic":"true"`)
	assert.Contains(t, buf.String(), `"status":"error"`)
}

func TestPrometheusHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordDecision("approve")
	m.RecordRejection("range")
	m.RecordRequestByStatus(http.StatusOK)
	m.IncrementExplanationSkipped()
	m.RecordResponseTime(20 * time.Millisecond)

	w := httptest.NewRecorder()
	PrometheusHandler(m).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `loan_decision_decisions_total{outcome="approve"} 1`)
	assert.Contains(t, body, `loan_decision_rejections_total{category="range"} 1`)
	assert.Contains(t, body, `loan_decision_http_requests_total{code="200"} 1`)
	assert.Contains(t, body, `loan_decision_explanations_missing_total{reason="skipped"} 1`)
	assert.Contains(t, body, `loan_decision_response_time_seconds{quantile="0.5"}`)
}
