package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/model"
)

func TestPredict_ShippedLogisticScenario(t *testing.T) {
	p := NewPredictor(loadShippedModel(t, "loan_logistic.json"))

	pred, err := p.Predict(scenarioRecord(t))
	require.NoError(t, err)

	assert.Equal(t, 0, pred.ClassIndex)
	assert.Equal(t, model.OutcomeApprove, pred.Outcome)
	assert.Equal(t, "Approved", pred.Label)
	assert.InDelta(t, 0.97786, pred.Confidence, 1e-5)
	assert.Equal(t, pred.Probabilities[pred.ClassIndex], pred.Confidence)
}

func TestPredict_ConfidenceIsPredictedClassProbability(t *testing.T) {
	tests := []struct {
		name       string
		class      int
		proba      []float64
		wantLabel  string
		wantConf   float64
		wantResult model.Outcome
	}{
		{"approve at index 0", 0, []float64{0.8, 0.2}, "Approved", 0.8, model.OutcomeApprove},
		{"reject at index 1", 1, []float64{0.3, 0.7}, "Rejected", 0.7, model.OutcomeReject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPredictor(&fakeModel{class: tt.class, proba: tt.proba})
			pred, err := p.Predict(scenarioRecord(t))
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, pred.Label)
			assert.Equal(t, tt.wantConf, pred.Confidence)
			assert.Equal(t, tt.wantResult, pred.Outcome)
		})
	}
}

func TestPredict_ClassTableDrivesOutcome(t *testing.T) {
	swapped := []model.Class{
		{Label: "Rejected", Outcome: model.OutcomeReject},
		{Label: "Approved", Outcome: model.OutcomeApprove},
	}
	p := NewPredictor(&fakeModel{class: 0, proba: []float64{0.9, 0.1}, classes: swapped})

	pred, err := p.Predict(scenarioRecord(t))
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeReject, pred.Outcome)
	assert.Equal(t, 0.9, pred.Confidence)
}

func TestPredict_Idempotent(t *testing.T) {
	p := NewPredictor(loadShippedModel(t, "loan_forest.json"))
	record := scenarioRecord(t)

	first, err := p.Predict(record)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := p.Predict(record)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestPredict_Failures(t *testing.T) {
	tests := []struct {
		name     string
		model    model.Classifier
		category apperrors.ErrorCategory
	}{
		{"no model", nil, apperrors.CategoryModelUnavailable},
		{"model error", &fakeModel{err: model.ErrWidthMismatch}, apperrors.CategoryInference},
		{"model panic", &fakeModel{panics: true}, apperrors.CategoryInference},
		{"short probability vector", &fakeModel{proba: []float64{1}}, apperrors.CategoryInference},
		{"probabilities do not sum to one", &fakeModel{proba: []float64{0.6, 0.6}}, apperrors.CategoryInference},
		{"NaN probability", &fakeModel{proba: []float64{math.NaN(), 1}}, apperrors.CategoryInference},
		{"class index out of range", &fakeModel{class: 2, proba: []float64{0.5, 0.5}}, apperrors.CategoryInference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPredictor(tt.model).Predict(scenarioRecord(t))
			require.Error(t, err)
			assert.Equal(t, tt.category, apperrors.CategoryOf(err))
		})
	}
}
