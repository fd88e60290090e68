// Package scoring aggregates multi-factor confidence for candidate links.
package scoring

import (
	"math"

	"github.com/ecorisk/causelink/pkg/models"
)

// Aggregator combines a candidate's evidence into one confidence value.
type Aggregator struct {
	config *models.ConfidenceConfig
}

// NewAggregator creates a confidence aggregator.
// If config is nil, uses the default configuration.
func NewAggregator(config *models.ConfidenceConfig) *Aggregator {
	if config == nil {
		config = models.DefaultConfidenceConfig()
	}
	return &Aggregator{config: config}
}

// Components contains the breakdown of a confidence calculation: the raw
// factor values alongside their weighted contributions.
type Components struct {
	Similarity        float64 `json:"similarity"`
	MethodScore       float64 `json:"method_score"`
	ConnectionCount   float64 `json:"connection_count"`
	ConnectionBoost   float64 `json:"connection_boost"`
	ThematicOverlap   float64 `json:"thematic_overlap"`
	TierScore         float64 `json:"tier_score"`
	SimilarityContrib float64 `json:"similarity_contrib"`
	MethodContrib     float64 `json:"method_contrib"`
	ConnectionContrib float64 `json:"connection_contrib"`
	ThematicContrib   float64 `json:"thematic_contrib"`
	TierContrib       float64 `json:"tier_contrib"`
	Confidence        float64 `json:"confidence"`
}

// Score returns a copy of the candidate enriched with confidence, level and
// the full factor map. The input is never mutated.
//
// The confidence formula:
//
//	Confidence = Wsim×similarity + Wmethod×reliability + Wconn×boost(count)
//	           + Wtheme×overlap + Wtier×appropriateness
//
// clamped to [0,1], where boost(count) = log2(count+1)/2 capped at 1 —
// monotone in the number of agreeing paths with diminishing returns.
func (a *Aggregator) Score(candidate models.LinkCandidate) models.LinkCandidate {
	comp := a.Components(candidate)

	scored := candidate
	scored.Confidence = comp.Confidence
	scored.ConfidenceLevel = a.config.LevelFor(comp.Confidence)
	scored.ConfidenceFactors = map[string]float64{
		models.FactorSimilarity:      comp.Similarity,
		models.FactorMethod:          comp.MethodScore,
		models.FactorConnectionCount: comp.ConnectionCount,
		models.FactorThematicOverlap: comp.ThematicOverlap,
		models.FactorTierPair:        comp.TierScore,
	}
	return scored
}

// ScoreBatch scores a slice of candidates, returning new values.
func (a *Aggregator) ScoreBatch(candidates []models.LinkCandidate) []models.LinkCandidate {
	scored := make([]models.LinkCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = a.Score(c)
	}
	return scored
}

// Components returns the individual factor values and contributions.
// Useful for explaining scores to users; Score delegates to this.
func (a *Aggregator) Components(candidate models.LinkCandidate) Components {
	sim := sanitize(candidate.Similarity)

	methodScore := sanitize(a.config.MethodReliability[candidate.Method])

	connCount := 1.0
	themeOverlap := 0.0
	if candidate.ConfidenceFactors != nil {
		if v, ok := candidate.ConfidenceFactors[models.FactorConnectionCount]; ok && !math.IsNaN(v) && v >= 1 {
			connCount = v
		}
		if v, ok := candidate.ConfidenceFactors[models.FactorThematicOverlap]; ok {
			themeOverlap = sanitize(v)
		}
	}
	connBoost := connectionBoost(connCount)

	tierScore := sanitize(a.config.TierPairScores[models.TierPair{From: candidate.FromTier, To: candidate.ToTier}])

	comp := Components{
		Similarity:        sim,
		MethodScore:       methodScore,
		ConnectionCount:   connCount,
		ConnectionBoost:   connBoost,
		ThematicOverlap:   themeOverlap,
		TierScore:         tierScore,
		SimilarityContrib: a.config.SimilarityWeight * sim,
		MethodContrib:     a.config.MethodWeight * methodScore,
		ConnectionContrib: a.config.ConnectionWeight * connBoost,
		ThematicContrib:   a.config.ThematicWeight * themeOverlap,
		TierContrib:       a.config.TierPairWeight * tierScore,
	}

	confidence := comp.SimilarityContrib + comp.MethodContrib + comp.ConnectionContrib +
		comp.ThematicContrib + comp.TierContrib
	comp.Confidence = clamp01(confidence)

	return comp
}

// GetConfig returns the current confidence configuration.
func (a *Aggregator) GetConfig() *models.ConfidenceConfig {
	return a.config
}

// connectionBoost maps an agreeing-path count to [0,1] with diminishing
// returns: 1 path → 0.5, 2 → ~0.79, 3 → 1.0.
func connectionBoost(count float64) float64 {
	boost := math.Log2(count+1) / 2
	if boost > 1 {
		return 1
	}
	return boost
}

// sanitize maps NaN or infinite factor values to a zero contribution.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
