package monitoring

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"
)

// SpanStatus represents the status of a span
type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "ok"
	SpanStatusError SpanStatus = "error"
)

// Span times one pipeline stage of one request
type Span struct {
	TraceID   string            `json:"trace_id"`
	SpanID    string            `json:"span_id"`
	ParentID  string            `json:"parent_id,omitempty"`
	Operation string            `json:"operation"`
	StartTime time.Time         `json:"start_time"`
	Duration  time.Duration     `json:"duration"`
	Tags      map[string]string `json:"tags,omitempty"`
	Error     string            `json:"error,omitempty"`
	Status    SpanStatus        `json:"status"`
}

type spanKey struct{}

// Tracer records stage spans to the debug log
type Tracer struct {
	serviceName string
	logger      *Logger
}

// NewTracer creates a new tracer instance
func NewTracer(serviceName string, logger *Logger) *Tracer {
	return &Tracer{
		serviceName: serviceName,
		logger:      logger,
	}
}

// SpanOption represents an option for configuring a span
type SpanOption func(*Span)

// WithTraceID pins the trace id, normally to the request id
func WithTraceID(id string) SpanOption {
	return func(span *Span) {
		if id != "" {
			span.TraceID = id
		}
	}
}

// StartSpan starts a span, nested under any span already carried by ctx
func (t *Tracer) StartSpan(ctx context.Context, operation string, opts ...SpanOption) (*Span, context.Context) {
	span := &Span{
		SpanID:    randomHex(8),
		Operation: operation,
		StartTime: time.Now(),
		Tags:      map[string]string{},
		Status:    SpanStatusOK,
	}
	if parent := SpanFromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		span.ParentID = parent.SpanID
	} else {
		span.TraceID = randomHex(16)
	}

	for _, opt := range opts {
		opt(span)
	}

	return span, context.WithValue(ctx, spanKey{}, span)
}

// EndSpan closes a span and logs it
func (t *Tracer) EndSpan(span *Span, err error) {
	span.Duration = time.Since(span.StartTime)
	if err != nil {
		span.Error = err.Error()
		span.Status = SpanStatusError
	}
	t.logSpan(span)
}

// SpanFromContext returns the span carried by ctx, if any
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanKey{}).(*Span); ok {
		return span
	}
	return nil
}

func (t *Tracer) logSpan(span *Span) {
	attrs := []any{
		"trace_id", span.TraceID,
		"span_id", span.SpanID,
		"service", t.serviceName,
		"operation", span.Operation,
		"status", span.Status,
		"duration_us", span.Duration.Microseconds(),
	}
	if span.ParentID != "" {
		attrs = append(attrs, "parent_id", span.ParentID)
	}
	if span.Error != "" {
		attrs = append(attrs, "error", span.Error)
	}
	for k, v := range span.Tags {
		attrs = append(attrs, "tag_"+k, v)
	}

	t.logger.Debug("Trace Span", attrs...)
}

// TraceFunction runs fn inside a span, ending it even if fn panics
func TraceFunction(ctx context.Context, tracer *Tracer, operation string, fn func(context.Context) error) error {
	span, spanCtx := tracer.StartSpan(ctx, operation)

	defer func() {
		if r := recover(); r != nil {
			span.Tags["panic"] = "true"
			tracer.EndSpan(span, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	err := fn(spanCtx)
	tracer.EndSpan(span, err)
	return err
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}
