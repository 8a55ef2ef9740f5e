package model

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

const (
	KindLogistic = "logistic"
	KindForest   = "forest"
)

// Artifact is the on-disk form of a trained model
type Artifact struct {
	Kind              string          `json:"kind"`
	Version           string          `json:"version,omitempty"`
	NFeatures         int             `json:"n_features,omitempty"`
	FeatureNames      []string        `json:"feature_names,omitempty"`
	SchemaFingerprint string          `json:"schema_fingerprint,omitempty"`
	Classes           []Class         `json:"classes"`
	Logistic          *LogisticParams `json:"logistic,omitempty"`
	Forest            *ForestParams   `json:"forest,omitempty"`
}

// Load reads and builds a model artifact from a JSON file
func Load(path string) (*Model, error) {
	// #nosec G304 -- path is operator-provided model path.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}
	return m, nil
}

// Decode parses artifact JSON and builds the model. Unknown fields are rejected.
func Decode(data []byte) (*Model, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var a Artifact
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	return a.Build()
}

// Build validates the artifact and returns a ready model
func (a Artifact) Build() (*Model, error) {
	if err := validateClasses(a.Classes); err != nil {
		return nil, err
	}

	var (
		est estimator
		err error
	)
	switch strings.ToLower(a.Kind) {
	case KindLogistic:
		if a.Logistic == nil {
			return nil, fmt.Errorf("%w: kind %q without logistic parameters", ErrInvalidArtifact, a.Kind)
		}
		est, err = newLogistic(*a.Logistic)
	case KindForest:
		if a.Forest == nil {
			return nil, fmt.Errorf("%w: kind %q without forest parameters", ErrInvalidArtifact, a.Kind)
		}
		width := a.NFeatures
		if width == 0 {
			width = len(a.FeatureNames)
		}
		est, err = newForest(*a.Forest, width, len(a.Classes))
	default:
		return nil, fmt.Errorf("%w: unsupported kind %q", ErrInvalidArtifact, a.Kind)
	}
	if err != nil {
		return nil, err
	}

	if a.NFeatures != 0 && a.NFeatures != est.width() {
		return nil, fmt.Errorf("%w: n_features %d but parameters describe %d", ErrInvalidArtifact, a.NFeatures, est.width())
	}
	if len(a.FeatureNames) != 0 && len(a.FeatureNames) != est.width() {
		return nil, fmt.Errorf("%w: %d feature names for width %d", ErrInvalidArtifact, len(a.FeatureNames), est.width())
	}

	return &Model{
		kind:    strings.ToLower(a.Kind),
		version: a.Version,
		classes: append([]Class(nil), a.Classes...),
		signature: Signature{
			Width:             est.width(),
			FeatureNames:      append([]string(nil), a.FeatureNames...),
			SchemaFingerprint: a.SchemaFingerprint,
		},
		est: est,
	}, nil
}

// validateClasses requires a binary table with exactly one approve and one reject class
func validateClasses(classes []Class) error {
	if len(classes) != 2 {
		return fmt.Errorf("%w: expected 2 classes, got %d", ErrInvalidArtifact, len(classes))
	}
	seen := map[Outcome]bool{}
	for i, c := range classes {
		if c.Outcome != OutcomeApprove && c.Outcome != OutcomeReject {
			return fmt.Errorf("%w: class %d has unknown outcome %q", ErrInvalidArtifact, i, c.Outcome)
		}
		if seen[c.Outcome] {
			return fmt.Errorf("%w: outcome %q declared twice", ErrInvalidArtifact, c.Outcome)
		}
		seen[c.Outcome] = true
	}
	return nil
}
