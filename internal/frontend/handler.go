package frontend

import (
	"context"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/loan-decision/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/monitoring"
	"github.com/ZanzyTHEbar/loan-decision/internal/schema"
	"github.com/ZanzyTHEbar/loan-decision/internal/security"
)

const pageTitle = "Loan Approval Prediction"

// Analyzer runs the decision pipeline for one submission
type Analyzer interface {
	Analyze(ctx context.Context, requestID string, raw map[string]any) (analysis.DisplayResult, error)
}

// Sanitizer screens raw submitted values
type Sanitizer interface {
	SanitizeFields(raw map[string]any) (map[string]any, error)
}

// Handler serves the applicant form and renders decisions as HTML
type Handler struct {
	schema    *schema.Schema
	analyzer  Analyzer
	sanitizer Sanitizer
	tmpl      *template.Template
	logger    *monitoring.Logger
}

// NewHandler creates the form handler. sanitizer may be nil.
func NewHandler(s *schema.Schema, analyzer Analyzer, sanitizer Sanitizer, tmpl *template.Template, logger *monitoring.Logger) *Handler {
	return &Handler{
		schema:    s,
		analyzer:  analyzer,
		sanitizer: sanitizer,
		tmpl:      tmpl,
		logger:    logger,
	}
}

// ShowForm renders an empty applicant form
func (h *Handler) ShowForm(c *gin.Context) {
	h.render(c, "form.html", http.StatusOK, PageData{
		Fields: BuildForm(h.schema, nil, nil),
	})
}

// Submit runs the pipeline on the posted form. Invalid input re-renders the
// form with per-field messages; a decision renders the result page.
func (h *Handler) Submit(c *gin.Context) {
	requestID := c.GetString("request_id")

	if err := c.Request.ParseForm(); err != nil {
		h.renderError(c, requestID, apperrors.NewValidationError("", "malformed form submission"))
		return
	}
	raw := analysis.FromForm(c.Request.PostForm)
	submitted := make(map[string]string, len(raw))
	for k, v := range raw {
		if entry, _, ok := h.schema.Lookup(k); ok {
			submitted[entry.Name], _ = v.(string)
		}
	}

	if h.sanitizer != nil {
		clean, err := h.sanitizer.SanitizeFields(raw)
		if err != nil {
			h.reject(c, requestID, submitted, err)
			return
		}
		raw = clean
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), requestID, raw)
	if err != nil {
		h.reject(c, requestID, submitted, err)
		return
	}

	h.render(c, "result.html", http.StatusOK, PageData{
		Result:    &result,
		RequestID: result.RequestID,
	})
}

// reject re-renders the form for input errors and shows the error page otherwise
func (h *Handler) reject(c *gin.Context, requestID string, submitted map[string]string, err error) {
	if !apperrors.IsValidation(err) {
		h.renderError(c, requestID, err)
		return
	}
	appErr := apperrors.ToAppError(err)
	h.render(c, "form.html", appErr.HTTPStatus, PageData{
		Fields:    BuildForm(h.schema, submitted, apperrors.FieldMessages(appErr)),
		Message:   "Please correct the highlighted fields.",
		RequestID: requestID,
	})
}

func (h *Handler) renderError(c *gin.Context, requestID string, err error) {
	appErr := apperrors.ToAppError(err)
	if appErr.RequestID == "" {
		appErr.RequestID = requestID
	}
	apperrors.LogError(c, appErr)

	message := appErr.Message()
	if appErr.Category == apperrors.CategoryInternal {
		message = "An unexpected error occurred"
	}
	h.render(c, "error.html", appErr.HTTPStatus, PageData{
		Message:   message,
		RequestID: requestID,
	})
}

func (h *Handler) render(c *gin.Context, name string, status int, data PageData) {
	data.Title = pageTitle
	data.Nonce = security.GetNonce(c)

	if err := Render(c, h.tmpl, name, status, data); err != nil {
		h.logger.Error("Failed to render page", "error", err, "template", name, "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to render page"})
	}
}
