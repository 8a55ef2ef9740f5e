package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ZanzyTHEbar/loan-decision/docs"
	"github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/frontend"
	"github.com/ZanzyTHEbar/loan-decision/internal/monitoring"
	"github.com/ZanzyTHEbar/loan-decision/internal/security"
)

func setupRouter(a *app) *gin.Engine {
	r := gin.New()

	// request id first so every later middleware can log it
	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(a.metrics, a.logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(a.logger, a.cfg.Server.MaxBodyBytes))

	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	r.Use(security.SecurityHeadersMiddleware(a.cfg.Server.HSTS))
	if a.gzip != nil {
		r.Use(a.gzip.Handler())
	}
	if len(a.cfg.Server.CORSOrigins) > 0 {
		r.Use(cors.New(corsConfig(a.cfg.Server.CORSOrigins)))
	}

	// guarded wraps a submission handler with throttling and body checks
	guarded := func(h gin.HandlerFunc) []gin.HandlerFunc {
		var chain []gin.HandlerFunc
		if a.limiter != nil {
			chain = append(chain, a.limiter.IPRateLimitMiddleware())
		}
		return append(chain, a.guard.ValidateContentType, a.guard.LimitBody, a.guard.RequestTimeout, h)
	}

	form := frontend.NewHandler(a.schema, a.analyzer, a.guard, a.pages, a.logger)
	pages := r.Group("/", security.CSPMiddleware(a.cfg.Server.CSPReportURI))
	pages.GET("/", form.ShowForm)
	pages.POST("/predict", guarded(form.Submit)...)

	api := r.Group("/api/v1")
	api.POST("/predict", guarded(a.predictHandler)...)
	api.GET("/schema", a.schemaHandler)

	r.GET("/health", a.healthHandler)
	r.GET("/metrics", a.metricsHandler)
	r.GET("/metrics/prometheus", gin.WrapH(monitoring.PrometheusHandler(a.metrics)))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", monitoring.RequestIDHeader},
		ExposeHeaders: []string{monitoring.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
