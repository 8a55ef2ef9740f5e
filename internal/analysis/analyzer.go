package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/loan-decision/internal/cache"
	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/model"
	"github.com/ZanzyTHEbar/loan-decision/internal/monitoring"
	"github.com/ZanzyTHEbar/loan-decision/internal/resilience"
	"github.com/ZanzyTHEbar/loan-decision/internal/schema"
)

// Service names reported to the degradation manager
const (
	ServiceInference   = "inference"
	ServiceExplanation = "explanation"
)

// Options wires the pipeline. Only Schema is required.
type Options struct {
	Schema     *schema.Schema
	Classifier model.Classifier
	Explainer  model.Explainer

	ExplainEnabled      bool
	AdditivityTolerance float64
	Breaker             resilience.CircuitBreakerConfig
	Formatter           FormatterConfig
	ModelVersion        string

	Logger  *monitoring.Logger
	Metrics *monitoring.Metrics
	Tracer  *monitoring.Tracer
	Cache   *cache.Cache
	Health  *resilience.DegradationManager
}

// Analyzer orchestrates normalize -> predict -> explain -> format for one submission
type Analyzer struct {
	normalizer   *Normalizer
	predictor    *Predictor
	explainer    *ExplanationAdapter
	formatter    *Formatter
	explain      bool
	modelVersion string

	logger  *monitoring.Logger
	metrics *monitoring.Metrics
	tracer  *monitoring.Tracer
	cache   *cache.Cache
	health  *resilience.DegradationManager
}

// cachedDecision is what the decision cache holds for a record
type cachedDecision struct {
	prediction  Prediction
	explanation *Explanation
}

// NewAnalyzer creates a new analyzer with all components
func NewAnalyzer(opts Options) *Analyzer {
	logger := opts.Logger
	if logger == nil {
		logger = monitoring.NewLoggerTo(io.Discard, slog.LevelError)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = monitoring.NewTracer("loan-decision", logger)
	}
	health := opts.Health
	if health == nil {
		health = resilience.NewDegradationManager(resilience.DefaultDegradationConfig())
	}
	if _, ok := health.GetServiceHealth(ServiceInference); !ok {
		health.RegisterService(ServiceInference, nil)
	}
	if _, ok := health.GetServiceHealth(ServiceExplanation); !ok {
		health.RegisterService(ServiceExplanation, nil)
	}

	return &Analyzer{
		normalizer:   NewNormalizer(opts.Schema),
		predictor:    NewPredictor(opts.Classifier),
		explainer:    NewExplanationAdapter(opts.Explainer, resilience.NewCircuitBreaker(opts.Breaker), opts.AdditivityTolerance, logger),
		formatter:    NewFormatter(opts.Schema, opts.Formatter),
		explain:      opts.ExplainEnabled,
		modelVersion: opts.ModelVersion,
		logger:       logger,
		metrics:      metrics,
		tracer:       tracer,
		cache:        opts.Cache,
		health:       health,
	}
}

// Normalizer exposes the input normalizer, e.g. for form re-rendering
func (a *Analyzer) Normalizer() *Normalizer { return a.normalizer }

// Health exposes the degradation manager for health reporting
func (a *Analyzer) Health() *resilience.DegradationManager { return a.health }

// Analyze runs the whole pipeline for one submission. Input errors return
// before the model is touched; explanation errors degrade into the result.
func (a *Analyzer) Analyze(ctx context.Context, requestID string, raw map[string]any) (DisplayResult, error) {
	start := time.Now()
	if requestID == "" {
		requestID = uuid.NewString()
	}

	root, ctx := a.tracer.StartSpan(ctx, "analyze", monitoring.WithTraceID(requestID))
	result, err := a.run(ctx, requestID, raw)
	a.tracer.EndSpan(root, err)
	if err != nil {
		return DisplayResult{}, err
	}

	a.metrics.RecordDecision(string(result.Outcome))
	a.logger.DecisionLogger(requestID, string(result.Outcome), result.Confidence,
		result.ExplanationStatus == ExplanationAvailable, time.Since(start), result.Cached)
	return result, nil
}

func (a *Analyzer) run(ctx context.Context, requestID string, raw map[string]any) (DisplayResult, error) {
	if err := ctx.Err(); err != nil {
		return DisplayResult{}, apperrors.ToAppError(err)
	}

	var record schema.FeatureRecord
	err := monitoring.TraceFunction(ctx, a.tracer, "normalize", func(context.Context) error {
		var err error
		record, err = a.normalizer.Normalize(raw)
		return err
	})
	if err != nil {
		a.rejected(requestID, err)
		return DisplayResult{}, err
	}

	key := record.Key()
	if a.cache != nil {
		if v, ok := a.cache.Get(key); ok {
			if d, ok := v.(cachedDecision); ok {
				a.logger.CacheLogger("get", key, true, a.cache.Size())
				result := a.formatter.Format(requestID, d.prediction, d.explanation, nil)
				return a.finish(result, true), nil
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return DisplayResult{}, apperrors.ToAppError(err)
	}

	var pred Prediction
	err = monitoring.TraceFunction(ctx, a.tracer, "predict", func(context.Context) error {
		var err error
		pred, err = a.predictor.Predict(record)
		return err
	})
	if err != nil {
		a.health.RecordError(ServiceInference, err)
		a.metrics.IncrementInferenceError()
		return DisplayResult{}, err
	}
	a.health.RecordSuccess(ServiceInference)

	var (
		expl    *Explanation
		explErr error
	)
	switch {
	case !a.explain:
	case !a.health.IsServiceAvailable(ServiceExplanation):
		explErr = apperrors.NewExplanationUnavailableError("explanations are paused after repeated failures", resilience.ErrServiceUnavailable)
		a.explanationFailed(requestID, explErr)
	default:
		_ = monitoring.TraceFunction(ctx, a.tracer, "explain", func(context.Context) error {
			expl, explErr = a.explainer.Explain(record, pred)
			return explErr
		})
		if explErr != nil {
			a.explanationFailed(requestID, explErr)
		} else {
			a.health.RecordSuccess(ServiceExplanation)
		}
	}

	if a.cache != nil && explErr == nil {
		a.cache.Set(key, cachedDecision{prediction: pred, explanation: expl})
	}

	result := a.formatter.Format(requestID, pred, expl, explErr)
	return a.finish(result, false), nil
}

func (a *Analyzer) finish(result DisplayResult, cached bool) DisplayResult {
	result.ModelVersion = a.modelVersion
	result.Cached = cached
	return result
}

func (a *Analyzer) rejected(requestID string, err error) {
	category := string(apperrors.CategoryOf(err))
	a.metrics.RecordRejection(category)

	fields := apperrors.SortedFields(apperrors.FieldMessages(apperrors.ToAppError(err)))
	a.logger.ValidationLogger(requestID, category, fields)
}

func (a *Analyzer) explanationFailed(requestID string, err error) {
	appErr := apperrors.ToAppError(err)
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrServiceUnavailable) {
		a.metrics.IncrementExplanationSkipped()
	} else {
		a.metrics.IncrementExplanationFailure()
		a.health.RecordError(ServiceExplanation, err)
	}
	a.logger.ExplanationLogger(requestID, appErr.Message(), appErr.Unwrap())
}
