package schema

import (
	"fmt"
	"strings"

	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/model"
)

// CheckModel verifies that an artifact was trained against this schema.
// Width must always agree. Names and fingerprint are compared when the
// artifact carries them; with strict set, an artifact carrying neither is rejected.
func (s *Schema) CheckModel(sig model.Signature, strict bool) error {
	if sig.Width != s.Len() {
		return apperrors.NewSchemaMismatchError(
			fmt.Sprintf("model expects %d features, schema %q declares %d", sig.Width, s.Version, s.Len()))
	}

	if sig.SchemaFingerprint != "" {
		if fp := s.Fingerprint(); sig.SchemaFingerprint != fp {
			return apperrors.NewSchemaMismatchError(
				fmt.Sprintf("model fingerprint %s does not match schema fingerprint %s", sig.SchemaFingerprint, fp))
		}
	}

	if len(sig.FeatureNames) > 0 {
		names := s.Names()
		for i, n := range sig.FeatureNames {
			if n != names[i] {
				return apperrors.NewSchemaMismatchError(
					fmt.Sprintf("feature %d is %q in the model but %q in the schema (model order: %s)",
						i, n, names[i], strings.Join(sig.FeatureNames, ", ")))
			}
		}
	}

	if strict && sig.SchemaFingerprint == "" && len(sig.FeatureNames) == 0 {
		return apperrors.NewSchemaMismatchError("model carries neither feature names nor a schema fingerprint")
	}
	return nil
}
