package analysis

import (
	"math"
	"sort"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/model"
	"github.com/ZanzyTHEbar/loan-decision/internal/schema"
)

// FormatterConfig controls rounding, truncation and locale of results
type FormatterConfig struct {
	// Decimals is the number of decimals kept on the confidence fraction; 4 gives 97.83%.
	Decimals int
	// TopFeatures truncates the ranked list; 0 keeps every feature.
	TopFeatures int
	Language    language.Tag
}

// DefaultFormatterConfig returns the settings used by the form UI
func DefaultFormatterConfig() FormatterConfig {
	return FormatterConfig{
		Decimals:    4,
		TopFeatures: 0,
		Language:    language.English,
	}
}

// Formatter turns a prediction and optional explanation into a DisplayResult
type Formatter struct {
	schema  *schema.Schema
	cfg     FormatterConfig
	printer *message.Printer
}

// NewFormatter creates a formatter for the given schema
func NewFormatter(s *schema.Schema, cfg FormatterConfig) *Formatter {
	// zero decimals would round every confidence to 0 or 1
	if cfg.Decimals <= 0 {
		cfg.Decimals = DefaultFormatterConfig().Decimals
	}
	if cfg.TopFeatures < 0 {
		cfg.TopFeatures = 0
	}
	if cfg.Language == language.Und {
		cfg.Language = language.English
	}
	return &Formatter{
		schema:  s,
		cfg:     cfg,
		printer: message.NewPrinter(cfg.Language),
	}
}

// Format builds the display result. explErr is reported as the explanation
// status; a nil explanation with a nil explErr means explanations are disabled.
func (f *Formatter) Format(requestID string, pred Prediction, expl *Explanation, explErr error) DisplayResult {
	result := DisplayResult{
		RequestID:      requestID,
		Outcome:        pred.Outcome,
		Label:          pred.Label,
		Confidence:     roundTo(pred.Confidence, f.cfg.Decimals),
		ConfidenceText: f.percent(pred.Confidence),
	}

	switch {
	case explErr != nil:
		result.ExplanationStatus = ExplanationUnavailable
		result.ExplanationMessage = explanationMessage(explErr)
	case expl == nil:
		result.ExplanationStatus = ExplanationDisabled
	default:
		result.ExplanationStatus = ExplanationAvailable
		result.Features = f.rank(pred, expl)
	}
	return result
}

func (f *Formatter) percent(p float64) string {
	digits := f.cfg.Decimals - 2
	if digits < 0 {
		digits = 0
	}
	return f.printer.Sprintf("%."+strconv.Itoa(digits)+"f%%", roundTo(p, f.cfg.Decimals)*100)
}

// rank orders contributions by magnitude; ties keep schema order
func (f *Formatter) rank(pred Prediction, expl *Explanation) []RankedFeature {
	ranked := make([]RankedFeature, len(expl.Contributions))
	for i, c := range expl.Contributions {
		ranked[i] = RankedFeature{
			Name:         c.Name,
			Label:        c.Name,
			Value:        c.Value,
			DisplayValue: f.displayValue(c.Name, c.Value),
			Contribution: c.Contribution,
			Polarity:     polarity(pred.Outcome, c.Contribution),
		}
		if entry, _, ok := f.schema.Lookup(c.Name); ok {
			ranked[i].Label = entry.DisplayLabel()
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Contribution) > math.Abs(ranked[j].Contribution)
	})

	if f.cfg.TopFeatures > 0 && len(ranked) > f.cfg.TopFeatures {
		ranked = ranked[:f.cfg.TopFeatures]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func (f *Formatter) displayValue(name string, v float64) string {
	entry, _, ok := f.schema.Lookup(name)
	if ok && entry.Kind == schema.KindCategorical {
		if c, found := entry.CategoryForCode(int(v)); found {
			return c.Label
		}
	}
	if v == math.Trunc(v) {
		return f.printer.Sprintf("%.0f", v)
	}
	return f.printer.Sprintf("%.2f", v)
}

// polarity maps an attribution of the predicted class onto the approval axis.
// A non-negative contribution supports the predicted outcome.
func polarity(predicted model.Outcome, contribution float64) Polarity {
	supports := contribution >= 0
	if (predicted == model.OutcomeApprove) == supports {
		return TowardApproval
	}
	return TowardRejection
}

func explanationMessage(err error) string {
	if appErr := apperrors.ToAppError(err); appErr != nil && appErr.Category == apperrors.CategoryExplanationUnavailable {
		return appErr.Message()
	}
	return "explanation could not be computed"
}

func roundTo(x float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(x*scale) / scale
}
