package analysis

import (
	"fmt"
	"math"

	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/model"
	"github.com/ZanzyTHEbar/loan-decision/internal/schema"
)

const probabilityTolerance = 1e-6

// Predictor runs the classifier on a normalised record
type Predictor struct {
	classifier model.Classifier
}

// NewPredictor wraps a classifier; a nil classifier makes every call fail with model_unavailable
func NewPredictor(classifier model.Classifier) *Predictor {
	return &Predictor{classifier: classifier}
}

// Predict returns the predicted class with its own probability as confidence
func (p *Predictor) Predict(record schema.FeatureRecord) (Prediction, error) {
	if p.classifier == nil {
		return Prediction{}, apperrors.NewModelUnavailableError("no model loaded", nil)
	}

	var (
		class int
		proba []float64
		err   error
	)
	if r := apperrors.SafeExecute(func() {
		x := record.Values()
		class, err = p.classifier.Predict(x)
		if err == nil {
			proba, err = p.classifier.PredictProba(x)
		}
	}); r != nil {
		return Prediction{}, apperrors.NewInferenceError("prediction failed", fmt.Errorf("model panicked: %v", r))
	}
	if err != nil {
		return Prediction{}, apperrors.NewInferenceError("prediction failed", err)
	}

	classes := p.classifier.Classes()
	if err := checkProbabilities(proba, len(classes)); err != nil {
		return Prediction{}, apperrors.NewInferenceError("prediction failed", err)
	}
	if class < 0 || class >= len(classes) {
		return Prediction{}, apperrors.NewInferenceError("prediction failed",
			fmt.Errorf("class index %d outside the %d declared classes", class, len(classes)))
	}

	return Prediction{
		ClassIndex:    class,
		Outcome:       classes[class].Outcome,
		Label:         classes[class].Label,
		Confidence:    proba[class],
		Probabilities: proba,
	}, nil
}

func checkProbabilities(proba []float64, nClass int) error {
	if len(proba) != nClass {
		return fmt.Errorf("model returned %d probabilities for %d classes", len(proba), nClass)
	}
	total := 0.0
	for i, p := range proba {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("probability %d is %v", i, p)
		}
		total += p
	}
	if math.Abs(total-1) > probabilityTolerance {
		return fmt.Errorf("probabilities sum to %v", total)
	}
	return nil
}
