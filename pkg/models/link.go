package models

// LinkMethod indicates how a candidate link was detected.
type LinkMethod string

const (
	// MethodWordOverlap means the link was detected via shared name tokens.
	MethodWordOverlap LinkMethod = "word_overlap"
	// MethodCausalChain means a multi-hop path independently confirms the link.
	MethodCausalChain LinkMethod = "causal_chain"
	// MethodThematicKeyword means the items share a category or domain theme.
	MethodThematicKeyword LinkMethod = "thematic_keyword"
	// MethodManual means the link was asserted by a user.
	MethodManual LinkMethod = "manual"
)

// AllLinkMethods is the list of all valid detection methods.
var AllLinkMethods = []LinkMethod{
	MethodWordOverlap,
	MethodCausalChain,
	MethodThematicKeyword,
	MethodManual,
}

// ConfidenceLevel is the categorical bucket for an aggregated confidence value.
type ConfidenceLevel string

const (
	// LevelLow indicates weak support for the link.
	LevelLow ConfidenceLevel = "low"
	// LevelMedium indicates moderate support.
	LevelMedium ConfidenceLevel = "medium"
	// LevelHigh indicates strong support.
	LevelHigh ConfidenceLevel = "high"
	// LevelVeryHigh indicates very strong, multiply-confirmed support.
	LevelVeryHigh ConfidenceLevel = "very_high"
)

// Confidence factor names, used as keys in LinkCandidate.ConfidenceFactors
// and in explanations.
const (
	FactorSimilarity      = "similarity"
	FactorMethod          = "method_reliability"
	FactorConnectionCount = "connection_count"
	FactorThematicOverlap = "thematic_overlap"
	FactorTierPair        = "tier_appropriateness"
	FactorEnsemble        = "ensemble_probability"
)

// LinkCandidate is a proposed causal connection between two vocabulary items.
//
// The generator populates identity, similarity and method. The aggregator
// enriches confidence, level and factors. The ensemble predictor may replace
// Confidence with its probability estimate; Similarity is retained untouched
// so explanations can still reference the symbolic evidence. Candidates are
// never mutated after construction; re-scoring produces a new value.
type LinkCandidate struct {
	FromID   string `json:"from_id"`
	FromName string `json:"from_name"`
	FromTier Tier   `json:"from_tier"`
	ToID     string `json:"to_id"`
	ToName   string `json:"to_name"`
	ToTier   Tier   `json:"to_tier"`

	Similarity float64    `json:"similarity"`
	Method     LinkMethod `json:"method"`

	Confidence        float64            `json:"confidence,omitempty"`
	ConfidenceLevel   ConfidenceLevel    `json:"confidence_level,omitempty"`
	ConfidenceFactors map[string]float64 `json:"confidence_factors,omitempty"`
}

// PairKey returns the (from_id,to_id) identity of the candidate.
func (c *LinkCandidate) PairKey() string {
	return c.FromID + "->" + c.ToID
}
