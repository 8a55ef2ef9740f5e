package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/schema"
)

// Normalizer turns raw applicant input into a model-ready FeatureRecord
type Normalizer struct {
	schema *schema.Schema
}

// NewNormalizer creates a normalizer bound to a schema
func NewNormalizer(s *schema.Schema) *Normalizer {
	return &Normalizer{schema: s}
}

// Normalize validates and encodes raw values keyed by feature name or alias.
// Unknown keys are ignored. Every field error is collected; the first one, in
// schema order, decides the category of the returned error.
func (n *Normalizer) Normalize(raw map[string]any) (schema.FeatureRecord, error) {
	byPos := make(map[int]any, n.schema.Len())
	var fieldErrs []*apperrors.AppError

	for key, v := range raw {
		entry, pos, ok := n.schema.Lookup(key)
		if !ok {
			continue
		}
		if _, dup := byPos[pos]; dup {
			fieldErrs = append(fieldErrs, apperrors.NewValidationError(entry.Name, "value supplied more than once"))
			continue
		}
		byPos[pos] = v
	}

	values := make([]float64, n.schema.Len())
	for pos, entry := range n.schema.Features {
		v, ok := byPos[pos]
		if !ok || isBlank(v) {
			fieldErrs = append(fieldErrs, apperrors.NewValidationError(entry.Name, "missing required field"))
			continue
		}

		var (
			x      float64
			appErr *apperrors.AppError
		)
		switch entry.Kind {
		case schema.KindCategorical:
			x, appErr = encodeCategorical(entry, v)
		default:
			x, appErr = parseContinuous(entry, v)
		}
		if appErr != nil {
			fieldErrs = append(fieldErrs, appErr)
			continue
		}
		values[pos] = x
	}

	if len(fieldErrs) > 0 {
		sortBySchemaOrder(n.schema, fieldErrs)
		return schema.FeatureRecord{}, apperrors.NewFieldErrors(fieldErrs)
	}

	record, err := schema.NewRecord(n.schema, values)
	if err != nil {
		return schema.FeatureRecord{}, apperrors.NewInternalError("failed to build feature record", err)
	}
	return record, nil
}

// FromForm flattens submitted form values, keeping the first value per key
func FromForm(form map[string][]string) map[string]any {
	raw := make(map[string]any, len(form))
	for k, vs := range form {
		if len(vs) > 0 {
			raw[k] = vs[0]
		}
	}
	return raw
}

func parseContinuous(entry schema.Entry, v any) (float64, *apperrors.AppError) {
	x, ok := toFloat(v)
	if !ok {
		return 0, apperrors.NewValidationError(entry.Name, fmt.Sprintf("%q is not a number", fmt.Sprint(v)))
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, apperrors.NewRangeError(entry.Name, x, "must be a finite number")
	}

	lower, hasLower := entry.LowerBound()
	switch {
	case hasLower && entry.Max != nil && (x < lower || x > *entry.Max):
		return 0, apperrors.NewRangeError(entry.Name, x, fmt.Sprintf("must be between %s and %s", formatBound(lower), formatBound(*entry.Max)))
	case hasLower && x < lower:
		if lower == 0 {
			return 0, apperrors.NewRangeError(entry.Name, x, "must not be negative")
		}
		return 0, apperrors.NewRangeError(entry.Name, x, fmt.Sprintf("must be at least %s", formatBound(lower)))
	case entry.Max != nil && x > *entry.Max:
		return 0, apperrors.NewRangeError(entry.Name, x, fmt.Sprintf("must be at most %s", formatBound(*entry.Max)))
	}

	if entry.Integer && x != math.Trunc(x) {
		return 0, apperrors.NewRangeError(entry.Name, x, "must be a whole number")
	}
	return x, nil
}

func encodeCategorical(entry schema.Entry, v any) (float64, *apperrors.AppError) {
	var label string
	switch t := v.(type) {
	case string:
		label = t
	case bool:
		label = "No"
		if t {
			label = "Yes"
		}
	default:
		// A numeric value is accepted when it is already a trained code.
		if x, ok := toFloat(v); ok && x == math.Trunc(x) && !math.IsInf(x, 0) {
			if c, found := entry.CategoryForCode(int(x)); found {
				return float64(c.Code), nil
			}
		}
		return 0, apperrors.NewUnknownCategoryError(entry.Name, fmt.Sprint(v), entry.Labels())
	}

	if c, found := entry.MatchCategory(label); found {
		return float64(c.Code), nil
	}
	if code, err := strconv.Atoi(strings.TrimSpace(label)); err == nil {
		if c, found := entry.CategoryForCode(code); found {
			return float64(c.Code), nil
		}
	}
	return 0, apperrors.NewUnknownCategoryError(entry.Name, label, entry.Labels())
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return x, err == nil
	case interface{ Float64() (float64, error) }:
		x, err := t.Float64()
		return x, err == nil
	default:
		return 0, false
	}
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func formatBound(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func sortBySchemaOrder(s *schema.Schema, errs []*apperrors.AppError) {
	pos := func(e *apperrors.AppError) int {
		_, p, _ := s.Lookup(e.Field)
		return p
	}
	sort.SliceStable(errs, func(i, j int) bool {
		return pos(errs[i]) < pos(errs[j])
	})
}
