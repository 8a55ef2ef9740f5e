package frontend

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/loan-decision/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/model"
	"github.com/ZanzyTHEbar/loan-decision/internal/monitoring"
	"github.com/ZanzyTHEbar/loan-decision/internal/schema"
	"github.com/ZanzyTHEbar/loan-decision/internal/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingAnalyzer struct{ err error }

func (f failingAnalyzer) Analyze(context.Context, string, map[string]any) (analysis.DisplayResult, error) {
	return analysis.DisplayResult{}, f.err
}

func newPipeline(t *testing.T) Analyzer {
	t.Helper()
	m, err := model.Load(filepath.Join("..", "..", "models", "loan_logistic.json"))
	require.NoError(t, err)
	return analysis.NewAnalyzer(analysis.Options{
		Schema:         schema.Default(),
		Classifier:     m,
		Explainer:      m,
		ExplainEnabled: true,
		Formatter:      analysis.DefaultFormatterConfig(),
		ModelVersion:   m.Version(),
	})
}

func newRouter(t *testing.T, a Analyzer) *gin.Engine {
	t.Helper()
	tmpl, err := LoadTemplates()
	require.NoError(t, err)

	h := NewHandler(schema.Default(), a, security.NewSecurityMiddleware(security.DefaultSecurityConfig()), tmpl,
		monitoring.NewLoggerTo(io.Discard, slog.LevelError))

	r := gin.New()
	r.Use(security.CSPMiddleware(""))
	r.GET("/", h.ShowForm)
	r.POST("/predict", h.Submit)
	return r
}

func scenarioForm() url.Values {
	return url.Values{
		"no_of_dependents":         {"2"},
		"education":                {"Graduate"},
		"self_employed":            {"No"},
		"income_annum":             {"500000"},
		"loan_amount":              {"200000"},
		"loan_term":                {"10"},
		"cibil_score":              {"750"},
		"residential_assets_value": {"100000"},
		"commercial_assets_value":  {"100000"},
		"luxury_assets_value":      {"100000"},
		"bank_asset_value":         {"100000"},
	}
}

func post(r *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBuildForm(t *testing.T) {
	fields := BuildForm(schema.Default(), map[string]string{"cibil_score": "800"}, map[string]string{"loan_term": "must be at least 1"})
	require.Len(t, fields, 11)

	byName := map[string]FormField{}
	for _, f := range fields {
		byName[f.Name] = f
	}

	assert.True(t, byName["education"].Select)
	assert.Equal(t, []string{"Graduate", "Not Graduate"}, byName["education"].Options)
	assert.Equal(t, "Graduate", byName["education"].Value)

	assert.Equal(t, "800", byName["cibil_score"].Value)
	assert.Equal(t, "300", byName["cibil_score"].Min)
	assert.Equal(t, "900", byName["cibil_score"].Max)

	assert.Equal(t, "1", byName["no_of_dependents"].Step)
	assert.Equal(t, "1", byName["loan_term"].Min)
	assert.Equal(t, "must be at least 1", byName["loan_term"].Error)
}

func TestShowForm(t *testing.T) {
	r := newRouter(t, failingAnalyzer{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	for _, label := range []string{"Number of Dependents", "Education Level", "CIBIL Score", "Bank Asset Value"} {
		assert.Contains(t, body, label)
	}
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.NotContains(t, body, `nonce=""`)
}

func TestSubmit_Approved(t *testing.T) {
	r := newRouter(t, newPipeline(t))

	w := post(r, scenarioForm())

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Approved")
	assert.Contains(t, body, "97.79%")
	assert.Contains(t, body, "CIBIL Score")
	assert.Contains(t, body, "toward_approval")
}

func TestSubmit_InvalidInputRerendersForm(t *testing.T) {
	r := newRouter(t, newPipeline(t))

	form := scenarioForm()
	form.Set("cibil_score", "250")
	form.Set("education", "Married")
	w := post(r, form)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Please correct the highlighted fields.")
	assert.Contains(t, body, "must be between 300 and 900")
	assert.Contains(t, body, `value="250"`, "submitted values are kept")
}

func TestSubmit_MarkupIsRejected(t *testing.T) {
	r := newRouter(t, newPipeline(t))

	form := scenarioForm()
	form.Set("education", "Graduate\x00")
	w := post(r, form)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid characters")
}

func TestSubmit_InferenceError(t *testing.T) {
	r := newRouter(t, failingAnalyzer{err: apperrors.NewInferenceError("prediction failed", nil)})

	w := post(r, scenarioForm())

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "prediction failed")
}
