// Package model loads pre-trained classifier artifacts and exposes them as
// opaque capabilities: class prediction, class probabilities and per-class
// additive attributions over a fixed-width numeric vector.
package model

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrWidthMismatch is returned when an input vector does not have the artifact's width
	ErrWidthMismatch = errors.New("input width does not match model")
	// ErrNonFiniteInput is returned when an input vector holds NaN or Inf
	ErrNonFiniteInput = errors.New("input contains non-finite values")
	// ErrInvalidArtifact is returned when an artifact fails structural validation
	ErrInvalidArtifact = errors.New("invalid model artifact")
)

// Outcome is the business meaning of a class index
type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeReject  Outcome = "reject"
)

// Class describes one output class of the model
type Class struct {
	Label   string  `json:"label"`
	Outcome Outcome `json:"outcome"`
}

// Signature describes the input contract an artifact was trained against.
// FeatureNames and SchemaFingerprint are empty when the artifact does not carry them.
type Signature struct {
	Width             int
	FeatureNames      []string
	SchemaFingerprint string
}

// Classifier is the inference capability of a loaded artifact
type Classifier interface {
	Predict(x []float64) (int, error)
	PredictProba(x []float64) ([]float64, error)
	Classes() []Class
	Signature() Signature
}

// Attribution holds per-class additive attributions for one input.
// For every class c: Baselines[c] + sum(Values[c]) == Scores[c].
type Attribution struct {
	Baselines []float64
	Values    [][]float64
	Scores    []float64
}

// Explainer is the attribution capability of a loaded artifact
type Explainer interface {
	Explain(x []float64) (Attribution, error)
}

// estimator is implemented by each supported artifact kind
type estimator interface {
	width() int
	proba(x []float64) []float64
	attribute(x []float64) Attribution
}

// Model is a loaded artifact. It is immutable and safe for concurrent use.
type Model struct {
	kind      string
	version   string
	classes   []Class
	signature Signature
	est       estimator
}

// Kind returns the artifact kind, e.g. "logistic"
func (m *Model) Kind() string { return m.kind }

// Version returns the artifact version string
func (m *Model) Version() string { return m.version }

// Classes returns the class table in index order
func (m *Model) Classes() []Class {
	out := make([]Class, len(m.classes))
	copy(out, m.classes)
	return out
}

// Signature returns the input contract of the artifact
func (m *Model) Signature() Signature {
	sig := m.signature
	sig.FeatureNames = append([]string(nil), m.signature.FeatureNames...)
	return sig
}

// PredictProba returns one probability per class
func (m *Model) PredictProba(x []float64) ([]float64, error) {
	if err := m.checkInput(x); err != nil {
		return nil, err
	}
	return m.est.proba(x), nil
}

// Predict returns the index of the most probable class; ties go to the lower index
func (m *Model) Predict(x []float64) (int, error) {
	p, err := m.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return argmax(p), nil
}

// Explain returns per-class attributions for x
func (m *Model) Explain(x []float64) (Attribution, error) {
	if err := m.checkInput(x); err != nil {
		return Attribution{}, err
	}
	return m.est.attribute(x), nil
}

func (m *Model) checkInput(x []float64) error {
	if len(x) != m.est.width() {
		return fmt.Errorf("%w: got %d values, want %d", ErrWidthMismatch, len(x), m.est.width())
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: position %d", ErrNonFiniteInput, i)
		}
	}
	return nil
}

func argmax(p []float64) int {
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return best
}
