package ensemble

import (
	"time"

	"github.com/ecorisk/causelink/pkg/models"
)

// Member is one trained classifier plus its normalized ensemble weight.
type Member struct {
	Kind       Kind
	Weight     float64
	Classifier Classifier
}

// Model is a trained, weighted classifier ensemble. It is immutable once
// trained and safe to share across concurrent prediction calls; retraining
// produces a new Model swapped in by the caller, never mutated in place.
type Model struct {
	ID            string
	CreatedAt     time.Time
	FeatureSchema []string
	Members       []Member
}

// Predict returns the weighted-average probability for one feature vector.
// A vector whose length disagrees with the trained schema yields a
// FeatureSchemaMismatchError; callers degrade to the heuristic score.
func (m *Model) Predict(features []float64) (float64, error) {
	if len(features) != len(m.FeatureSchema) {
		return 0, &models.FeatureSchemaMismatchError{
			Expected: len(m.FeatureSchema),
			Got:      len(features),
		}
	}

	sum := 0.0
	for _, member := range m.Members {
		sum += member.Weight * member.Classifier.PredictProba(features)
	}
	return clampProb(sum), nil
}

// Weights returns the member weights keyed by classifier kind.
func (m *Model) Weights() map[Kind]float64 {
	weights := make(map[Kind]float64, len(m.Members))
	for _, member := range m.Members {
		weights[member.Kind] = member.Weight
	}
	return weights
}

func clampProb(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
