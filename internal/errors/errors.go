package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryValidation             ErrorCategory = "validation"
	CategoryRange                  ErrorCategory = "range"
	CategoryUnknownCategory        ErrorCategory = "unknown_category"
	CategorySchemaMismatch         ErrorCategory = "schema_mismatch"
	CategoryModelUnavailable       ErrorCategory = "model_unavailable"
	CategoryInference              ErrorCategory = "inference"
	CategoryExplanationUnavailable ErrorCategory = "explanation_unavailable"
	CategoryRateLimit              ErrorCategory = "rate_limit"
	CategoryTimeout                ErrorCategory = "timeout"
	CategoryInternal               ErrorCategory = "internal"
	CategoryConfiguration          ErrorCategory = "configuration"
)

// AppError wraps an errbuilder error with the category used to route it
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory `json:"category"`
	HTTPStatus int           `json:"http_status"`
	Field      string        `json:"field,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	RequestID  string        `json:"request_id,omitempty"`
	StackTrace string        `json:"stack_trace,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", codeString(e.Category), e.Field, e.ErrBuilder.Msg)
	}
	return fmt.Sprintf("[%s] %s", codeString(e.Category), e.ErrBuilder.Msg)
}

// Message returns the user-facing message without the code prefix
func (e *AppError) Message() string {
	return e.ErrBuilder.Msg
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

func codeString(c ErrorCategory) string {
	switch c {
	case CategoryValidation:
		return "VALIDATION_ERROR"
	case CategoryRange:
		return "RANGE_ERROR"
	case CategoryUnknownCategory:
		return "UNKNOWN_CATEGORY"
	case CategorySchemaMismatch:
		return "SCHEMA_MISMATCH"
	case CategoryModelUnavailable:
		return "MODEL_UNAVAILABLE"
	case CategoryInference:
		return "INFERENCE_ERROR"
	case CategoryExplanationUnavailable:
		return "EXPLANATION_UNAVAILABLE"
	case CategoryRateLimit:
		return "RATE_LIMIT_EXCEEDED"
	case CategoryTimeout:
		return "TIMEOUT_ERROR"
	case CategoryConfiguration:
		return "CONFIGURATION_ERROR"
	case CategoryInternal:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// NewValidationError creates a generic validation error, e.g. a missing or non-numeric field
func NewValidationError(field, message string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	appErr := NewAppError(builder, CategoryValidation, http.StatusBadRequest)
	appErr.Field = field
	return appErr
}

// NewRangeError reports a numeric value outside the range declared for a field
func NewRangeError(field string, value float64, message string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("value", fmt.Errorf("%v", value))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	appErr := NewAppError(builder, CategoryRange, http.StatusBadRequest)
	appErr.Field = field
	return appErr
}

// NewUnknownCategoryError reports a categorical label missing from the encoding table
func NewUnknownCategoryError(field, label string, allowed []string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("allowed", fmt.Errorf("%v", allowed))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("unrecognized value %q", label)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	appErr := NewAppError(builder, CategoryUnknownCategory, http.StatusBadRequest)
	appErr.Field = field
	return appErr
}

// NewSchemaMismatchError is fatal at startup: the model and schema disagree
func NewSchemaMismatchError(message string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message)

	return NewAppError(builder, CategorySchemaMismatch, http.StatusInternalServerError)
}

// NewModelUnavailableError reports a missing or unloadable model artifact
func NewModelUnavailableError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryModelUnavailable, http.StatusServiceUnavailable)
}

// NewInferenceError reports that the model rejected a record
func NewInferenceError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryInference, http.StatusUnprocessableEntity)
}

// NewExplanationUnavailableError is carried inside results, never returned to callers of the pipeline
func NewExplanationUnavailableError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryExplanationUnavailable, http.StatusOK)
}

// NewRateLimitError creates a rate limit error using errbuilder
func NewRateLimitError(retryAfter string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("retry_after", errors.New(retryAfter))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryRateLimit, http.StatusTooManyRequests)
}

// NewTimeoutError creates a timeout error using errbuilder
func NewTimeoutError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeDeadlineExceeded).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryTimeout, http.StatusGatewayTimeout)
}

// NewInternalError creates an internal server error using errbuilder
func NewInternalError(message string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("internal_details", errors.New(message))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Internal server error").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryInternal, http.StatusInternalServerError)

	if gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode {
		appErr.StackTrace = captureStackTrace()
	}

	return appErr
}

// NewConfigurationError creates a configuration error using errbuilder
func NewConfigurationError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryConfiguration, http.StatusInternalServerError)
}

// NewFieldErrors folds several per-field errors into the first one.
// The remaining field messages are attached as details so a form can show all of them.
func NewFieldErrors(errs []*AppError) *AppError {
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	if len(errs) == 1 {
		return first
	}

	errorMap := errbuilder.ErrorMap{}
	for _, e := range errs {
		errorMap.Set(e.Field, errors.New(e.Message()))
	}

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(first.Message()).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	merged := NewAppError(builder, first.Category, first.HTTPStatus)
	merged.Field = first.Field
	return merged
}

// FieldMessages flattens the per-field detail map of a merged validation error
func FieldMessages(err *AppError) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}
	if err.Field != "" {
		out[err.Field] = err.Message()
	}
	for key, detail := range err.ErrBuilder.Details.Errors {
		if key == "value" || key == "allowed" {
			continue
		}
		if detail != nil {
			out[key] = detail.Error()
		}
	}
	return out
}

// SortedFields returns the keys of FieldMessages in stable order
func SortedFields(msgs map[string]string) []string {
	keys := make([]string, 0, len(msgs))
	for k := range msgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// captureStackTrace captures a stack trace for debugging
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// CategoryOf returns the category of the first AppError in the chain, or "" if none
func CategoryOf(err error) ErrorCategory {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category
	}
	return ""
}

// IsCategory reports whether err carries the given category
func IsCategory(err error, category ErrorCategory) bool {
	return err != nil && CategoryOf(err) == category
}

// IsValidation reports whether err rejects a single submission because of its input
func IsValidation(err error) bool {
	switch CategoryOf(err) {
	case CategoryValidation, CategoryRange, CategoryUnknownCategory:
		return true
	default:
		return false
	}
}

// IsFatal reports whether err should stop the process at startup
func IsFatal(err error) bool {
	switch CategoryOf(err) {
	case CategorySchemaMismatch, CategoryModelUnavailable, CategoryConfiguration:
		return true
	default:
		return false
	}
}

// ErrorHandler is a Gin middleware that provides centralized error handling
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			appErr := ToAppError(err)
			if appErr.RequestID == "" {
				appErr.RequestID = c.GetString("request_id")
			}

			LogError(c, appErr)

			if !c.Writer.Written() {
				c.JSON(appErr.HTTPStatus, appErr)
			}
		}
	}
}

// RecoveryHandler provides panic recovery with structured error responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err interface{}) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", err),
			fmt.Errorf("%v", err),
		)

		appErr.StackTrace = captureStackTrace()

		LogError(c, appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
	})
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var ebErr *errbuilder.ErrBuilder
	if errors.As(err, &ebErr) {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	if errors.Is(err, context.Canceled) {
		return NewTimeoutError("Request cancelled", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("Request deadline exceeded", err)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// LogError logs an error with appropriate level and context
func LogError(c *gin.Context, err *AppError) {
	ip := c.ClientIP()
	method := c.Request.Method
	path := c.Request.URL.Path
	requestID := c.GetString("request_id")

	errorCode := err.ErrBuilder.ErrCode()
	errorMsg := err.ErrBuilder.Msg
	errorDetails := err.ErrBuilder.Details

	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", errorCode,
		"http_status", err.HTTPStatus,
		"ip", ip,
		"method", method,
		"path", path,
		"request_id", requestID,
	)
	if err.Field != "" {
		logEntry = logEntry.With("field", err.Field)
	}

	switch err.Category {
	case CategoryValidation, CategoryRange, CategoryUnknownCategory, CategoryRateLimit:
		if len(errorDetails.Errors) > 0 {
			logEntry.Warn(errorMsg, "details", errorDetails.Errors)
		} else {
			logEntry.Warn(errorMsg)
		}
	case CategoryExplanationUnavailable, CategoryTimeout:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Info(errorMsg, "cause", cause)
		} else {
			logEntry.Info(errorMsg)
		}
	default:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Error(errorMsg, "cause", cause)
		} else {
			logEntry.Error(errorMsg)
		}
	}

	if err.StackTrace != "" && (gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode) {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	contextMsg := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", contextMsg, err)
}

// SafeClose safely closes a resource and logs any errors
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}

	if err := closer.Close(); err != nil {
		slog.Warn("Failed to close resource",
			"resource", resourceName,
			"error", err)
	}
}

// SafeExecute executes a function and recovers from panics.
// It returns the recovered value, or nil when fn completed normally.
func SafeExecute(fn func()) (recovered interface{}) {
	defer func() {
		if r := recover(); r != nil {
			recovered = r
		}
	}()

	fn()
	return nil
}
