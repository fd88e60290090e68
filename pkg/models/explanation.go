package models

// FactorStrength is the qualitative label for a factor's contribution.
type FactorStrength string

const (
	// StrengthWeak marks a factor contributing little to the score.
	StrengthWeak FactorStrength = "weak"
	// StrengthModerate marks a factor with a mid-range contribution.
	StrengthModerate FactorStrength = "moderate"
	// StrengthStrong marks a dominant factor.
	StrengthStrong FactorStrength = "strong"
)

// FactorDetail describes one confidence factor inside an explanation.
type FactorDetail struct {
	Value       float64        `json:"value"`
	Description string         `json:"description"`
	Strength    FactorStrength `json:"strength"`
}

// Explanation is a human-readable decomposition of why a link received
// its score. Derived and read-only; recomputed on demand, never cached
// across vocabulary changes.
type Explanation struct {
	FromID          string                  `json:"from_id"`
	ToID            string                  `json:"to_id"`
	OverallScore    float64                 `json:"overall_score"`
	ConfidenceLevel ConfidenceLevel         `json:"confidence_level"`
	TopReasons      []string                `json:"top_reasons"`
	Factors         map[string]FactorDetail `json:"factors"`
}

// FeatureImportance is a normalized measure of how much one feature
// contributed to a classifier's decisions. Importances across all
// features of a model (or an ensemble) sum to 1.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}
