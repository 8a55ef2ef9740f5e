package monitoring

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"time"
)

// Logger provides structured JSON logging for the decision service
type Logger struct {
	*slog.Logger
	out io.Writer
}

// NewLogger creates a JSON logger on stdout at info level
func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout, slog.LevelInfo)
}

// NewLoggerTo creates a JSON logger writing to w at the given level
func NewLoggerTo(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(newJSONHandler(w, level)),
		out:    w,
	}
}

func newJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})
}

// RequestLogger logs one served request. Server errors log at error level,
// client errors at warn.
func (l *Logger) RequestLogger(requestID, method, path, ip, userAgent string, statusCode int, duration time.Duration) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	l.Log(context.Background(), level, "HTTP Request",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", ip,
		"user_agent", userAgent,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// DecisionLogger logs one completed pipeline run. Applicant values are never logged.
func (l *Logger) DecisionLogger(requestID, outcome string, confidence float64, explained bool, duration time.Duration, cacheHit bool) {
	l.Info("Decision Completed",
		"request_id", requestID,
		"outcome", outcome,
		"confidence", confidence,
		"explained", explained,
		"duration_ms", duration.Milliseconds(),
		"cache_hit", cacheHit,
	)
}

// ValidationLogger logs a rejected submission by field, without the submitted values
func (l *Logger) ValidationLogger(requestID, category string, fields []string) {
	l.Warn("Submission Rejected",
		"request_id", requestID,
		"category", category,
		"fields", fields,
	)
}

// ExplanationLogger logs a degraded or skipped explanation
func (l *Logger) ExplanationLogger(requestID, reason string, err error) {
	attrs := []any{
		"request_id", requestID,
		"reason", reason,
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	l.Warn("Explanation Unavailable", attrs...)
}

// APIErrorLogger logs API errors with context
func (l *Logger) APIErrorLogger(err error, method, path, ip string, statusCode int) {
	_, file, line, ok := runtime.Caller(2)
	caller := "unknown"
	if ok {
		caller = file + ":" + strconv.Itoa(line)
	}

	l.Error("API Error",
		"error", err.Error(),
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"caller", caller,
	)
}

// CacheLogger logs cache operations
func (l *Logger) CacheLogger(operation, key string, hit bool, itemCount int) {
	if len(key) > 8 {
		key = key[:8] + "..."
	}
	l.Debug("Cache Operation",
		"operation", operation,
		"key_hash", key,
		"hit", hit,
		"cache_size", itemCount,
	)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

// SecurityLogger logs security-related events
func (l *Logger) SecurityLogger(event, ip, userAgent string, details map[string]interface{}) {
	attrs := []any{
		"event", event,
		"ip", ip,
		"user_agent", userAgent,
	}
	for key, value := range details {
		attrs = append(attrs, key, value)
	}

	l.Warn("Security Event", attrs...)
}

// PerformanceLogger logs performance metrics
func (l *Logger) PerformanceLogger(metric string, value float64, unit string) {
	l.Log(context.Background(), slog.LevelWarn, "Performance Metric",
		"metric", metric,
		"value", value,
		"unit", unit,
	)
}

// SetLevel rebuilds the handler at a new level, keeping the output writer
func (l *Logger) SetLevel(level slog.Level) {
	out := l.out
	if out == nil {
		out = os.Stdout
	}
	l.Logger = slog.New(newJSONHandler(out, level))
}

var startTime = time.Now()
