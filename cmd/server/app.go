package main

import (
	"fmt"
	"html/template"

	"github.com/ZanzyTHEbar/loan-decision/internal/analysis"
	"github.com/ZanzyTHEbar/loan-decision/internal/cache"
	"github.com/ZanzyTHEbar/loan-decision/internal/config"
	"github.com/ZanzyTHEbar/loan-decision/internal/frontend"
	"github.com/ZanzyTHEbar/loan-decision/internal/middleware"
	"github.com/ZanzyTHEbar/loan-decision/internal/model"
	"github.com/ZanzyTHEbar/loan-decision/internal/monitoring"
	"github.com/ZanzyTHEbar/loan-decision/internal/ratelimit"
	"github.com/ZanzyTHEbar/loan-decision/internal/resilience"
	"github.com/ZanzyTHEbar/loan-decision/internal/schema"
	"github.com/ZanzyTHEbar/loan-decision/internal/security"
)

// app holds everything loaded once at startup and shared by all requests
type app struct {
	cfg      config.Config
	logger   *monitoring.Logger
	metrics  *monitoring.Metrics
	schema   *schema.Schema
	model    *model.Model
	analyzer *analysis.Analyzer
	health   *resilience.DegradationManager
	cache    *cache.Cache
	limiter  *ratelimit.RateLimiter
	guard    *security.SecurityMiddleware
	gzip     *middleware.CompressionMiddleware
	pages    *template.Template
}

// newApp loads the schema and model and wires the pipeline. Errors are fatal.
func newApp(cfg config.Config, logger *monitoring.Logger) (*app, error) {
	s, m, err := analysis.LoadPipeline(cfg.Model.Path, cfg.Model.SchemaPath, cfg.Model.Strict)
	if err != nil {
		return nil, err
	}

	pages, err := frontend.LoadTemplates()
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetrics()
	health := resilience.NewDegradationManager(cfg.Degradation)

	var explainer model.Explainer
	if cfg.Explanation.Enabled {
		explainer = m
	}
	checks, err := analysis.HealthChecks(s, m, explainer)
	if err != nil {
		return nil, fmt.Errorf("failed to build health checks: %w", err)
	}
	for name, check := range checks {
		health.RegisterService(name, check)
	}

	var decisions *cache.Cache
	if cfg.Cache.Enabled {
		decisions = cache.NewCache(cfg.Cache.TTL, cfg.Cache.MaxItems, metrics)
	}

	var limiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewRateLimiter(ratelimit.Config{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			IdleTTL:           cfg.RateLimit.IdleTTL,
		}, metrics)
	}

	var compression *middleware.CompressionMiddleware
	if cfg.Server.Compression {
		compression = middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig())
	}

	analyzer := analysis.NewAnalyzer(analysis.Options{
		Schema:              s,
		Classifier:          m,
		Explainer:           m,
		ExplainEnabled:      cfg.Explanation.Enabled,
		AdditivityTolerance: cfg.Explanation.AdditivityTolerance,
		Breaker:             cfg.CircuitBreaker,
		Formatter: analysis.FormatterConfig{
			Decimals:    cfg.Display.Decimals,
			TopFeatures: cfg.Explanation.TopFeatures,
			Language:    cfg.Display.LanguageTag(),
		},
		ModelVersion: m.Version(),
		Logger:       logger,
		Metrics:      metrics,
		Tracer:       monitoring.NewTracer("loan-decision", logger),
		Cache:        decisions,
		Health:       health,
	})

	logger.SystemLogger("pipeline_loaded", fmt.Sprintf("model %s (%s) with schema %s", m.Version(), m.Kind(), s.Fingerprint()))

	return &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		schema:   s,
		model:    m,
		analyzer: analyzer,
		health:   health,
		cache:    decisions,
		limiter:  limiter,
		guard: security.NewSecurityMiddleware(security.SecurityConfig{
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			RequestTimeout: cfg.Server.RequestTimeout,
		}),
		gzip:  compression,
		pages: pages,
	}, nil
}

// close stops background goroutines
func (a *app) close() {
	if a.cache != nil {
		a.cache.Close()
	}
	if a.limiter != nil {
		a.limiter.Close()
	}
}
