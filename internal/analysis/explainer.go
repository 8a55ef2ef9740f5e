package analysis

import (
	"errors"
	"fmt"
	"math"

	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/model"
	"github.com/ZanzyTHEbar/loan-decision/internal/monitoring"
	"github.com/ZanzyTHEbar/loan-decision/internal/resilience"
	"github.com/ZanzyTHEbar/loan-decision/internal/schema"
)

// DefaultAdditivityTolerance is the relative gap between baseline plus
// contributions and the model score that is logged as a warning
const DefaultAdditivityTolerance = 1e-6

// ExplanationAdapter asks the attribution engine about the predicted class.
// Every failure comes back as explanation_unavailable so the caller can keep the prediction.
type ExplanationAdapter struct {
	engine    model.Explainer
	breaker   *resilience.CircuitBreaker
	tolerance float64
	logger    *monitoring.Logger
}

// NewExplanationAdapter wraps an attribution engine. engine may be nil.
func NewExplanationAdapter(engine model.Explainer, breaker *resilience.CircuitBreaker, tolerance float64, logger *monitoring.Logger) *ExplanationAdapter {
	if tolerance <= 0 {
		tolerance = DefaultAdditivityTolerance
	}
	return &ExplanationAdapter{
		engine:    engine,
		breaker:   breaker,
		tolerance: tolerance,
		logger:    logger,
	}
}

// Explain returns the attribution of the predicted class for record
func (a *ExplanationAdapter) Explain(record schema.FeatureRecord, pred Prediction) (*Explanation, error) {
	if a.engine == nil {
		return nil, apperrors.NewExplanationUnavailableError("no explanation engine loaded", nil)
	}

	var expl *Explanation
	call := func() error {
		var err error
		if r := apperrors.SafeExecute(func() { expl, err = a.explain(record, pred) }); r != nil {
			return fmt.Errorf("explanation engine panicked: %v", r)
		}
		return err
	}

	var err error
	if a.breaker != nil {
		err = a.breaker.Call(call)
	} else {
		err = call()
	}

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return nil, apperrors.NewExplanationUnavailableError("explanations are temporarily disabled", err)
	case err != nil:
		return nil, apperrors.NewExplanationUnavailableError("explanation could not be computed", err)
	}
	return expl, nil
}

func (a *ExplanationAdapter) explain(record schema.FeatureRecord, pred Prediction) (*Explanation, error) {
	x := record.Values()
	attr, err := a.engine.Explain(x)
	if err != nil {
		return nil, err
	}

	c := pred.ClassIndex
	if c < 0 || c >= len(attr.Values) || c >= len(attr.Baselines) {
		return nil, fmt.Errorf("engine returned no attribution for class %d", c)
	}
	values := attr.Values[c]
	if len(values) != len(x) {
		return nil, fmt.Errorf("engine returned %d attributions for %d features", len(values), len(x))
	}

	baseline := attr.Baselines[c]
	if !isFinite(baseline) {
		return nil, fmt.Errorf("baseline is not finite")
	}

	names := record.Names()
	contributions := make([]FeatureContribution, len(values))
	sum := baseline
	for i, v := range values {
		if !isFinite(v) {
			return nil, fmt.Errorf("attribution for %s is not finite", names[i])
		}
		contributions[i] = FeatureContribution{Name: names[i], Value: x[i], Contribution: v}
		sum += v
	}

	expl := &Explanation{
		ClassIndex:    c,
		Baseline:      baseline,
		Score:         sum,
		Contributions: contributions,
	}

	if c < len(attr.Scores) {
		expl.Score = attr.Scores[c]
		if gap := math.Abs(sum - expl.Score); gap > a.tolerance*math.Max(1, math.Abs(expl.Score)) && a.logger != nil {
			a.logger.Warn("Attribution not additive",
				"class_index", c,
				"score", expl.Score,
				"reconstructed", sum,
				"gap", gap,
			)
		}
	}

	return expl, nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
