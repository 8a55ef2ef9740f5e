package analysis

import "github.com/ZanzyTHEbar/loan-decision/internal/model"

// Polarity tells which decision a contribution pushes toward
type Polarity string

const (
	TowardApproval  Polarity = "toward_approval"
	TowardRejection Polarity = "toward_rejection"
)

// ExplanationStatus reports whether a result carries feature attributions
type ExplanationStatus string

const (
	ExplanationAvailable   ExplanationStatus = "available"
	ExplanationUnavailable ExplanationStatus = "unavailable"
	ExplanationDisabled    ExplanationStatus = "disabled"
)

// Prediction is the classifier's verdict on one record
type Prediction struct {
	ClassIndex    int           `json:"class_index"`
	Outcome       model.Outcome `json:"outcome"`
	Label         string        `json:"label"`
	Confidence    float64       `json:"confidence"`
	Probabilities []float64     `json:"probabilities"`
}

// FeatureContribution is one feature's attribution toward the explained class
type FeatureContribution struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// Explanation holds additive attributions for the predicted class, in schema order.
// Baseline plus the sum of contributions approximates Score.
type Explanation struct {
	ClassIndex    int                   `json:"class_index"`
	Baseline      float64               `json:"baseline"`
	Score         float64               `json:"score"`
	Contributions []FeatureContribution `json:"contributions"`
}

// RankedFeature is a contribution placed for display
type RankedFeature struct {
	Rank         int      `json:"rank"`
	Name         string   `json:"name"`
	Label        string   `json:"label"`
	Value        float64  `json:"value"`
	DisplayValue string   `json:"display_value"`
	Contribution float64  `json:"contribution"`
	Polarity     Polarity `json:"polarity"`
}

// DisplayResult is everything the UI renders for one submission
type DisplayResult struct {
	RequestID          string            `json:"request_id"`
	Outcome            model.Outcome     `json:"outcome"`
	Label              string            `json:"label"`
	Confidence         float64           `json:"confidence"`
	ConfidenceText     string            `json:"confidence_text"`
	Features           []RankedFeature   `json:"features,omitempty"`
	ExplanationStatus  ExplanationStatus `json:"explanation_status"`
	ExplanationMessage string            `json:"explanation_message,omitempty"`
	ModelVersion       string            `json:"model_version,omitempty"`
	Cached             bool              `json:"cached"`
}
