package analysis

import (
	"context"
	"fmt"

	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/model"
	"github.com/ZanzyTHEbar/loan-decision/internal/resilience"
	"github.com/ZanzyTHEbar/loan-decision/internal/schema"
)

// LoadPipeline loads the schema and model artifact and checks they agree.
// Any error it returns is fatal for a starting process.
func LoadPipeline(modelPath, schemaPath string, strict bool) (*schema.Schema, *model.Model, error) {
	s, err := schema.LoadOrDefault(schemaPath)
	if err != nil {
		return nil, nil, apperrors.NewConfigurationError("failed to load feature schema", err)
	}

	if modelPath == "" {
		return nil, nil, apperrors.NewModelUnavailableError("no model path configured", nil)
	}
	m, err := model.Load(modelPath)
	if err != nil {
		return nil, nil, apperrors.NewModelUnavailableError("failed to load model artifact", err)
	}

	if err := s.CheckModel(m.Signature(), strict); err != nil {
		return nil, nil, err
	}
	return s, m, nil
}

// SampleRecord builds a valid record from the schema's lower bounds and first
// category codes. Health checks feed it to the model.
func SampleRecord(s *schema.Schema) (schema.FeatureRecord, error) {
	values := make([]float64, s.Len())
	for i, e := range s.Features {
		switch {
		case e.Kind == schema.KindCategorical && len(e.Categories) > 0:
			values[i] = float64(e.Categories[0].Code)
		default:
			if lower, ok := e.LowerBound(); ok {
				values[i] = lower
			} else if e.Max != nil && *e.Max < 0 {
				values[i] = *e.Max
			}
		}
	}
	return schema.NewRecord(s, values)
}

// HealthChecks returns periodic checks for the inference and explanation
// services, keyed by the service names the Analyzer reports under.
// A nil explainer gets no explanation check.
func HealthChecks(s *schema.Schema, classifier model.Classifier, explainer model.Explainer) (map[string]resilience.HealthCheckFunc, error) {
	sample, err := SampleRecord(s)
	if err != nil {
		return nil, fmt.Errorf("failed to build sample record: %w", err)
	}

	predictor := NewPredictor(classifier)
	checks := map[string]resilience.HealthCheckFunc{
		ServiceInference: func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := predictor.Predict(sample)
			return err
		},
	}

	if explainer != nil {
		checks[ServiceExplanation] = func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := explainer.Explain(sample.Values())
			return err
		}
	}
	return checks, nil
}
