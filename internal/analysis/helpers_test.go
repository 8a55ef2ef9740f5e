package analysis

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/loan-decision/internal/model"
	"github.com/ZanzyTHEbar/loan-decision/internal/schema"
)

var binaryClasses = []model.Class{
	{Label: "Approved", Outcome: model.OutcomeApprove},
	{Label: "Rejected", Outcome: model.OutcomeReject},
}

// scenarioInput is an applicant the shipped logistic model approves
func scenarioInput() map[string]any {
	return map[string]any{
		"no_of_dependents":         2,
		"education":                "Graduate",
		"self_employed":            "No",
		"income_annum":             500000,
		"loan_amount":              200000,
		"loan_term":                10,
		"cibil_score":              750,
		"residential_assets_value": 100000,
		"commercial_assets_value":  100000,
		"luxury_assets_value":      100000,
		"bank_asset_value":         100000,
	}
}

func withField(raw map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	out[key] = value
	return out
}

func loadShippedModel(t *testing.T, name string) *model.Model {
	t.Helper()
	m, err := model.Load(filepath.Join("..", "..", "models", name))
	require.NoError(t, err)
	return m
}

func scenarioRecord(t *testing.T) schema.FeatureRecord {
	t.Helper()
	r, err := NewNormalizer(schema.Default()).Normalize(scenarioInput())
	require.NoError(t, err)
	return r
}

// fakeModel is a scripted classifier and attribution engine that counts calls
type fakeModel struct {
	mu sync.Mutex

	class   int
	proba   []float64
	classes []model.Class
	err     error
	panics  bool

	attr       model.Attribution
	explainErr error
	explPanics bool

	predictCalls int
	explainCalls int
}

func (f *fakeModel) Predict(x []float64) (int, error) {
	f.mu.Lock()
	f.predictCalls++
	f.mu.Unlock()
	if f.panics {
		panic("model exploded")
	}
	return f.class, f.err
}

func (f *fakeModel) PredictProba(x []float64) ([]float64, error) {
	return append([]float64(nil), f.proba...), f.err
}

func (f *fakeModel) Classes() []model.Class {
	if f.classes != nil {
		return f.classes
	}
	return binaryClasses
}

func (f *fakeModel) Signature() model.Signature {
	return model.Signature{Width: schema.Default().Len()}
}

func (f *fakeModel) Explain(x []float64) (model.Attribution, error) {
	f.mu.Lock()
	f.explainCalls++
	f.mu.Unlock()
	if f.explPanics {
		panic("engine exploded")
	}
	return f.attr, f.explainErr
}

func (f *fakeModel) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.predictCalls, f.explainCalls
}

var errEngine = errors.New("engine failure")

// uniformAttribution gives every feature the same contribution for both classes
func uniformAttribution(n int, c float64) model.Attribution {
	vals := func(sign float64) []float64 {
		v := make([]float64, n)
		for i := range v {
			v[i] = sign * c
		}
		return v
	}
	return model.Attribution{
		Baselines: []float64{0.5, 0.5},
		Values:    [][]float64{vals(1), vals(-1)},
	}
}
