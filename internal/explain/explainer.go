// Package explain renders scored links as human-readable explanations and
// extracts normalized feature importance from trained models.
package explain

import (
	"fmt"
	"math"
	"sort"

	"github.com/ecorisk/causelink/internal/config"
	"github.com/ecorisk/causelink/pkg/models"
)

// Explainer decomposes a scored link's factors into ranked reasons.
type Explainer struct {
	cfg        config.ExplainConfig
	confidence *models.ConfidenceConfig
}

// NewExplainer creates an explanation generator. The confidence config
// supplies the factor weights used to rank contributions.
func NewExplainer(cfg config.ExplainConfig, confidence *models.ConfidenceConfig) *Explainer {
	if confidence == nil {
		confidence = models.DefaultConfidenceConfig()
	}
	if cfg.MaxReasons <= 0 {
		cfg.MaxReasons = 4
	}
	return &Explainer{cfg: cfg, confidence: confidence}
}

// factorEntry pairs a factor with its raw value and weighted contribution.
type factorEntry struct {
	name         string
	value        float64
	contribution float64
	description  string
}

// Explain produces the explanation for one scored candidate. It functions
// with only similarity and method populated; additional factors simply
// produce a richer explanation.
func (e *Explainer) Explain(c models.LinkCandidate) models.Explanation {
	entries := e.collectFactors(c)

	sort.Slice(entries, func(i, j int) bool {
		return math.Abs(entries[i].contribution) > math.Abs(entries[j].contribution)
	})

	reasons := make([]string, 0, e.cfg.MaxReasons)
	for _, entry := range entries {
		if len(reasons) >= e.cfg.MaxReasons {
			break
		}
		if entry.contribution <= 0 {
			continue
		}
		reasons = append(reasons, entry.description)
	}

	factors := make(map[string]models.FactorDetail, len(entries))
	for _, entry := range entries {
		factors[entry.name] = models.FactorDetail{
			Value:       entry.value,
			Description: entry.description,
			Strength:    e.strength(entry.value),
		}
	}

	level := c.ConfidenceLevel
	if level == "" {
		level = e.confidence.LevelFor(c.Confidence)
	}

	return models.Explanation{
		FromID:          c.FromID,
		ToID:            c.ToID,
		OverallScore:    c.Confidence,
		ConfidenceLevel: level,
		TopReasons:      reasons,
		Factors:         factors,
	}
}

// ExplainBatch explains a slice of candidates.
func (e *Explainer) ExplainBatch(candidates []models.LinkCandidate) []models.Explanation {
	out := make([]models.Explanation, len(candidates))
	for i, c := range candidates {
		out[i] = e.Explain(c)
	}
	return out
}

// collectFactors gathers whatever evidence the candidate carries. The
// minimal set is similarity plus method; the full set adds connection
// multiplicity, thematic overlap, the tier-pair prior and the ensemble
// probability when present.
func (e *Explainer) collectFactors(c models.LinkCandidate) []factorEntry {
	entries := make([]factorEntry, 0, 6)

	sim := c.Similarity
	if v, ok := c.ConfidenceFactors[models.FactorSimilarity]; ok {
		sim = v
	}
	entries = append(entries, factorEntry{
		name:         models.FactorSimilarity,
		value:        sim,
		contribution: e.confidence.SimilarityWeight * sim,
		description:  fmt.Sprintf("the names share significant terms (similarity %.2f)", sim),
	})

	if c.Method != "" {
		reliability := e.confidence.MethodReliability[c.Method]
		entries = append(entries, factorEntry{
			name:         models.FactorMethod,
			value:        reliability,
			contribution: e.confidence.MethodWeight * reliability,
			description:  methodDescription(c.Method),
		})
	}

	if count, ok := c.ConfidenceFactors[models.FactorConnectionCount]; ok && count >= 2 {
		boost := math.Log2(count+1) / 2
		if boost > 1 {
			boost = 1
		}
		entries = append(entries, factorEntry{
			name:         models.FactorConnectionCount,
			value:        count,
			contribution: e.confidence.ConnectionWeight * boost,
			description:  fmt.Sprintf("%d independent detection paths agree on this link", int(count)),
		})
	}

	if overlap, ok := c.ConfidenceFactors[models.FactorThematicOverlap]; ok && overlap > 0 {
		entries = append(entries, factorEntry{
			name:         models.FactorThematicOverlap,
			value:        overlap,
			contribution: e.confidence.ThematicWeight * overlap,
			description:  fmt.Sprintf("both items belong to a shared domain theme (overlap %.2f)", overlap),
		})
	}

	tierScore, ok := c.ConfidenceFactors[models.FactorTierPair]
	if !ok {
		tierScore = e.confidence.TierPairScores[models.TierPair{From: c.FromTier, To: c.ToTier}]
	}
	if tierScore > 0 {
		entries = append(entries, factorEntry{
			name:         models.FactorTierPair,
			value:        tierScore,
			contribution: e.confidence.TierPairWeight * tierScore,
			description:  fmt.Sprintf("%s to %s links are intrinsically plausible (prior %.2f)", c.FromTier, c.ToTier, tierScore),
		})
	}

	if prob, ok := c.ConfidenceFactors[models.FactorEnsemble]; ok {
		entries = append(entries, factorEntry{
			name:         models.FactorEnsemble,
			value:        prob,
			contribution: prob,
			description:  fmt.Sprintf("the feedback-trained ensemble estimates %.0f%% acceptance likelihood", prob*100),
		})
	}

	return entries
}

// strength buckets a factor value into its qualitative label. Connection
// counts above 1 always read as at least moderate.
func (e *Explainer) strength(value float64) models.FactorStrength {
	switch {
	case value >= e.cfg.StrongThreshold:
		return models.StrengthStrong
	case value >= e.cfg.ModerateThreshold:
		return models.StrengthModerate
	default:
		return models.StrengthWeak
	}
}

func methodDescription(method models.LinkMethod) string {
	switch method {
	case models.MethodCausalChain:
		return "an independent multi-hop causal chain confirms the connection"
	case models.MethodThematicKeyword:
		return "the items were matched through shared domain keywords"
	case models.MethodManual:
		return "the link was asserted manually by a user"
	default:
		return "the link was detected through word overlap between the names"
	}
}
