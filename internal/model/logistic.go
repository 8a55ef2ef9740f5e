package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LogisticParams is a binary logistic regression.
// The decision function is the log-odds of class index 1.
type LogisticParams struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	// Background is the reference input (typically the training mean) attributions are measured against.
	Background []float64 `json:"background"`
}

type logistic struct {
	coef       *mat.VecDense
	intercept  float64
	background *mat.VecDense
	baseScore  float64
}

func newLogistic(p LogisticParams) (*logistic, error) {
	n := len(p.Coefficients)
	if n == 0 {
		return nil, fmt.Errorf("%w: logistic model has no coefficients", ErrInvalidArtifact)
	}
	if !allFinite(p.Coefficients) || math.IsNaN(p.Intercept) || math.IsInf(p.Intercept, 0) {
		return nil, fmt.Errorf("%w: logistic parameters must be finite", ErrInvalidArtifact)
	}

	background := p.Background
	if len(background) == 0 {
		background = make([]float64, n)
	}
	if len(background) != n {
		return nil, fmt.Errorf("%w: background has %d values, want %d", ErrInvalidArtifact, len(background), n)
	}
	if !allFinite(background) {
		return nil, fmt.Errorf("%w: background must be finite", ErrInvalidArtifact)
	}

	l := &logistic{
		coef:       mat.NewVecDense(n, append([]float64(nil), p.Coefficients...)),
		intercept:  p.Intercept,
		background: mat.NewVecDense(n, append([]float64(nil), background...)),
	}
	l.baseScore = mat.Dot(l.coef, l.background) + l.intercept
	return l, nil
}

func (l *logistic) width() int { return l.coef.Len() }

func (l *logistic) decision(x []float64) float64 {
	return mat.Dot(l.coef, mat.NewVecDense(len(x), x)) + l.intercept
}

func (l *logistic) proba(x []float64) []float64 {
	p1 := sigmoid(l.decision(x))
	return []float64{1 - p1, p1}
}

// attribute returns the exact linear decomposition coef_i * (x_i - background_i)
// in log-odds space. Class 0's log-odds are the negation of class 1's.
func (l *logistic) attribute(x []float64) Attribution {
	n := l.width()
	pos := make([]float64, n)
	floats.SubTo(pos, x, l.background.RawVector().Data)
	floats.Mul(pos, l.coef.RawVector().Data)

	neg := make([]float64, n)
	floats.ScaleTo(neg, -1, pos)

	score := l.decision(x)
	return Attribution{
		Baselines: []float64{-l.baseScore, l.baseScore},
		Values:    [][]float64{neg, pos},
		Scores:    []float64{-score, score},
	}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func allFinite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
