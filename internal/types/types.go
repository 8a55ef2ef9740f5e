// Package types holds the JSON shapes of the HTTP API.
package types

import (
	"time"

	"github.com/ZanzyTHEbar/loan-decision/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/resilience"
	"github.com/ZanzyTHEbar/loan-decision/internal/schema"
)

// PredictRequest is a loan application keyed by feature name or alias.
// Values may be numbers, numeric strings or category labels.
type PredictRequest map[string]any

// PredictResponse is the decision returned by POST /api/v1/predict
type PredictResponse struct {
	analysis.DisplayResult
}

// ErrorResponse is returned for every failed API request
type ErrorResponse struct {
	Error     string            `json:"error"`
	Category  string            `json:"category"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewErrorResponse flattens an AppError for API clients
func NewErrorResponse(err *apperrors.AppError) ErrorResponse {
	resp := ErrorResponse{
		Error:     string(err.Category),
		Category:  string(err.Category),
		Message:   err.Message(),
		RequestID: err.RequestID,
		Timestamp: err.Timestamp,
	}
	if apperrors.IsValidation(err) {
		resp.Fields = apperrors.FieldMessages(err)
	}
	if err.Category == apperrors.CategoryInternal {
		resp.Message = "An unexpected error occurred"
	}
	return resp
}

// SchemaResponse describes the accepted input for GET /api/v1/schema
type SchemaResponse struct {
	Version     string         `json:"version"`
	Fingerprint string         `json:"fingerprint"`
	Features    []schema.Entry `json:"features"`
}

// NewSchemaResponse describes s
func NewSchemaResponse(s *schema.Schema) SchemaResponse {
	return SchemaResponse{
		Version:     s.Version,
		Fingerprint: s.Fingerprint(),
		Features:    append([]schema.Entry(nil), s.Features...),
	}
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status       string                              `json:"status"`
	Timestamp    time.Time                           `json:"timestamp"`
	ModelVersion string                              `json:"model_version,omitempty"`
	Services     map[string]resilience.ServiceHealth `json:"services"`
}
