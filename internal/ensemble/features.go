// Package ensemble trains and applies a weighted ensemble of classifiers
// that refines heuristic link confidence using historical user feedback.
package ensemble

import (
	"github.com/ecorisk/causelink/pkg/models"
	"github.com/ecorisk/causelink/pkg/similarity"
)

// FeatureVector engineers the fixed 18-dimension vector for a candidate,
// in models.FeatureSchema order. The vocabulary is used to look up
// hierarchy levels; pass nil when no snapshot is available and those two
// features default to zero.
func FeatureVector(c models.LinkCandidate, vocab *models.Vocabulary) []float64 {
	v := make([]float64, models.FeatureCount)

	v[0] = c.Similarity
	v[1] = oneHot(c.Method == models.MethodWordOverlap)
	v[2] = oneHot(c.Method == models.MethodCausalChain)
	v[3] = oneHot(c.Method == models.MethodThematicKeyword)
	v[4] = oneHot(c.Method == models.MethodManual)

	pair := models.TierPair{From: c.FromTier, To: c.ToTier}
	for i, p := range models.ValidTierPairs {
		if pair == p {
			v[5+i] = 1
			break
		}
	}

	v[10] = 1
	if c.ConfidenceFactors != nil {
		if n, ok := c.ConfidenceFactors[models.FactorConnectionCount]; ok && n >= 1 {
			v[10] = n
		}
		v[11] = c.ConfidenceFactors[models.FactorThematicOverlap]
		v[12] = c.ConfidenceFactors[models.FactorTierPair]
	}
	if v[12] == 0 {
		v[12] = models.TierPairAppropriateness[pair]
	}

	fromTerms := similarity.ExtractTerms(c.FromName)
	toTerms := similarity.ExtractTerms(c.ToName)
	v[13] = float64(len(fromTerms))
	v[14] = float64(len(toTerms))
	v[15] = float64(similarity.SharedTermCount(fromTerms, toTerms))

	if vocab != nil {
		if item, ok := findItem(vocab, c.FromTier, c.FromID); ok {
			v[16] = float64(item.HierarchyLevel)
		}
		if item, ok := findItem(vocab, c.ToTier, c.ToID); ok {
			v[17] = float64(item.HierarchyLevel)
		}
	}

	return v
}

func findItem(vocab *models.Vocabulary, tier models.Tier, id string) (models.VocabularyItem, bool) {
	for _, item := range vocab.TierItems(tier) {
		if item.ID == id {
			return item, true
		}
	}
	return models.VocabularyItem{}, false
}

func oneHot(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
