package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/loan-decision/internal/analysis"
	"github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/resilience"
	"github.com/ZanzyTHEbar/loan-decision/internal/types"
)

// predictHandler godoc
// @Summary      Predict a loan decision
// @Description  Normalizes the application, runs the classifier and returns the decision with ranked feature contributions
// @Tags         decisions
// @Accept       json
// @Produce      json
// @Param        application  body      object  true  "Application keyed by feature name or alias"
// @Success      200          {object}  types.PredictResponse
// @Failure      400          {object}  types.ErrorResponse
// @Failure      422          {object}  types.ErrorResponse
// @Failure      429          {object}  types.ErrorResponse
// @Failure      503          {object}  types.ErrorResponse
// @Router       /api/v1/predict [post]
func (a *app) predictHandler(c *gin.Context) {
	var req types.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, errors.NewValidationError("", "request body must be a JSON object"))
		return
	}

	raw, err := a.guard.SanitizeFields(req)
	if err != nil {
		a.writeError(c, err)
		return
	}

	result, err := a.analyzer.Analyze(c.Request.Context(), c.GetString("request_id"), raw)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.PredictResponse{DisplayResult: result})
}

// schemaHandler godoc
// @Summary   Describe the accepted input fields
// @Tags      schema
// @Produce   json
// @Success   200  {object}  types.SchemaResponse
// @Router    /api/v1/schema [get]
func (a *app) schemaHandler(c *gin.Context) {
	c.JSON(http.StatusOK, types.NewSchemaResponse(a.schema))
}

// healthHandler godoc
// @Summary   Pipeline health
// @Tags      system
// @Produce   json
// @Success   200  {object}  types.HealthResponse
// @Failure   503  {object}  types.HealthResponse
// @Router    /health [get]
func (a *app) healthHandler(c *gin.Context) {
	resp := types.HealthResponse{
		Status:       "ok",
		Timestamp:    time.Now().UTC(),
		ModelVersion: a.model.Version(),
		Services:     a.health.GetAllServiceHealth(),
	}

	// inference in emergency means no decisions can be served
	if svc, ok := resp.Services[analysis.ServiceInference]; ok && svc.Level == resilience.LevelEmergency {
		resp.Status = "unavailable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	if a.health.OverallLevel() != resilience.LevelNormal {
		resp.Status = "degraded"
	}

	c.JSON(http.StatusOK, resp)
}

// metricsHandler godoc
// @Summary   In-process counters
// @Tags      system
// @Produce   json
// @Success   200  {object}  map[string]interface{}
// @Router    /metrics [get]
func (a *app) metricsHandler(c *gin.Context) {
	stats := a.metrics.GetStats()
	if a.cache != nil {
		stats["cache"] = a.cache.Stats()
	}
	if a.limiter != nil {
		stats["rate_limit"] = a.limiter.GetStats()
	}
	if a.gzip != nil {
		stats["compression"] = a.gzip.GetStats()
	}
	c.JSON(http.StatusOK, stats)
}

// writeError logs err and writes it as an ErrorResponse
func (a *app) writeError(c *gin.Context, err error) {
	appErr := errors.ToAppError(err)
	if appErr.RequestID == "" {
		appErr.RequestID = c.GetString("request_id")
	}
	errors.LogError(c, appErr)
	c.JSON(appErr.HTTPStatus, types.NewErrorResponse(appErr))
}
