package models

// MethodReliability contains the default reliability weight per detection
// method. Multi-hop confirmation outranks thematic matching, which outranks
// plain word overlap; manual assertions are trusted fully.
var MethodReliability = map[LinkMethod]float64{
	MethodManual:          1.0,
	MethodCausalChain:     0.9,
	MethodThematicKeyword: 0.6,
	MethodWordOverlap:     0.5,
}

// TierPairAppropriateness scores how intrinsically plausible each valid
// tier-pair is. These constants are empirically chosen and tunable, not
// fixed physics; override them through ConfidenceConfig.
var TierPairAppropriateness = map[TierPair]float64{
	{TierActivity, TierPressure}:    1.0,
	{TierPressure, TierConsequence}: 0.9,
	{TierPressure, TierControl}:     0.85,
	{TierActivity, TierControl}:     0.8,
	{TierControl, TierConsequence}:  0.6, // mitigating edge, weakest prior
}

// ConfidenceConfig contains all confidence aggregation weights and
// thresholds.
type ConfidenceConfig struct {
	// SimilarityWeight scales the base similarity contribution.
	SimilarityWeight float64 `json:"similarity_weight" yaml:"similarity_weight"`
	// MethodWeight scales the detection method reliability contribution.
	MethodWeight float64 `json:"method_weight" yaml:"method_weight"`
	// ConnectionWeight scales the multi-path confirmation boost.
	ConnectionWeight float64 `json:"connection_weight" yaml:"connection_weight"`
	// ThematicWeight scales the shared category/theme contribution.
	ThematicWeight float64 `json:"thematic_weight" yaml:"thematic_weight"`
	// TierPairWeight scales the tier-pair appropriateness contribution.
	TierPairWeight float64 `json:"tier_pair_weight" yaml:"tier_pair_weight"`

	// MethodReliability maps detection methods to reliability in [0,1].
	MethodReliability map[LinkMethod]float64 `json:"method_reliability" yaml:"method_reliability"`
	// TierPairScores maps valid tier-pairs to plausibility in [0,1].
	TierPairScores map[TierPair]float64 `json:"-" yaml:"-"`

	// MediumThreshold and friends bucket confidence into levels:
	// below Medium → low, below High → medium, below VeryHigh → high,
	// otherwise very_high.
	MediumThreshold   float64 `json:"medium_threshold" yaml:"medium_threshold"`
	HighThreshold     float64 `json:"high_threshold" yaml:"high_threshold"`
	VeryHighThreshold float64 `json:"very_high_threshold" yaml:"very_high_threshold"`
}

// DefaultConfidenceConfig returns the default aggregation configuration.
func DefaultConfidenceConfig() *ConfidenceConfig {
	reliability := make(map[LinkMethod]float64, len(MethodReliability))
	for k, v := range MethodReliability {
		reliability[k] = v
	}
	tierScores := make(map[TierPair]float64, len(TierPairAppropriateness))
	for k, v := range TierPairAppropriateness {
		tierScores[k] = v
	}

	return &ConfidenceConfig{
		SimilarityWeight:  0.35,
		MethodWeight:      0.20,
		ConnectionWeight:  0.15,
		ThematicWeight:    0.15,
		TierPairWeight:    0.15,
		MethodReliability: reliability,
		TierPairScores:    tierScores,
		MediumThreshold:   0.4,
		HighThreshold:     0.6,
		VeryHighThreshold: 0.8,
	}
}

// LevelFor buckets a confidence value into its categorical level.
func (c *ConfidenceConfig) LevelFor(confidence float64) ConfidenceLevel {
	switch {
	case confidence < c.MediumThreshold:
		return LevelLow
	case confidence < c.HighThreshold:
		return LevelMedium
	case confidence < c.VeryHighThreshold:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}
