// Package generator enumerates plausible cross-tier link candidates and
// assigns each a base similarity score and detection method.
package generator

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ecorisk/causelink/internal/config"
	"github.com/ecorisk/causelink/pkg/models"
	"github.com/ecorisk/causelink/pkg/similarity"
)

// Generator produces candidate links for a vocabulary snapshot.
type Generator struct {
	cfg    config.GeneratorConfig
	logger zerolog.Logger
}

// New creates a candidate link generator.
func New(cfg config.GeneratorConfig, logger zerolog.Logger) *Generator {
	return &Generator{
		cfg:    cfg,
		logger: logger.With().Str("component", "generator").Logger(),
	}
}

// Result contains the generated candidates plus per-run bookkeeping.
type Result struct {
	Candidates []models.LinkCandidate
	// SkippedItems counts malformed vocabulary rows (missing id or name)
	// that were dropped rather than propagated as errors.
	SkippedItems int
}

// indexedItem pairs a vocabulary item with its precomputed term set so the
// cross-product scoring pass never re-tokenizes a name.
type indexedItem struct {
	item  models.VocabularyItem
	terms map[string]bool
}

// Generate enumerates candidates for every valid tier-pair whose base
// similarity meets the configured threshold. Tier-pairs are scored
// concurrently; output order is unspecified. An empty tier yields no
// candidates for pairs involving it; that is not an error.
func (g *Generator) Generate(ctx context.Context, vocab *models.Vocabulary) (*Result, error) {
	if vocab == nil {
		return nil, &models.ValidationError{Reason: "nil vocabulary snapshot"}
	}

	index, skipped := g.buildIndex(vocab)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		merged  []models.LinkCandidate
		seen    = make(map[string]bool)
		pairErr error
	)

	for _, pair := range models.ValidTierPairs {
		from := index[pair.From]
		to := index[pair.To]
		if len(from) == 0 || len(to) == 0 {
			continue
		}

		wg.Add(1)
		go func(pair models.TierPair, from, to []indexedItem) {
			defer wg.Done()

			if ctx.Err() != nil {
				mu.Lock()
				pairErr = ctx.Err()
				mu.Unlock()
				return
			}

			candidates := g.scorePair(pair, from, to, index)

			mu.Lock()
			defer mu.Unlock()
			for _, c := range candidates {
				key := c.FromID + "|" + c.ToID + "|" + string(c.Method)
				if seen[key] {
					continue
				}
				seen[key] = true
				merged = append(merged, c)
			}
		}(pair, from, to)
	}

	wg.Wait()
	if pairErr != nil {
		return nil, pairErr
	}

	g.logger.Info().
		Int("items", vocab.TotalItems()).
		Int("skipped_items", skipped).
		Int("candidates", len(merged)).
		Float64("threshold", g.cfg.SimilarityThreshold).
		Msg("Candidate generation complete")

	return &Result{Candidates: merged, SkippedItems: skipped}, nil
}

// buildIndex tokenizes every well-formed item once. Malformed rows are
// skipped and counted.
func (g *Generator) buildIndex(vocab *models.Vocabulary) (map[models.Tier][]indexedItem, int) {
	index := make(map[models.Tier][]indexedItem, len(models.AllTiers))
	skipped := 0

	for _, tier := range models.AllTiers {
		items := vocab.TierItems(tier)
		indexed := make([]indexedItem, 0, len(items))
		for _, item := range items {
			if item.ID == "" || item.Name == "" {
				skipped++
				g.logger.Debug().
					Str("tier", string(tier)).
					Str("id", item.ID).
					Msg("Skipping malformed vocabulary item")
				continue
			}
			indexed = append(indexed, indexedItem{
				item:  item,
				terms: similarity.ExtractTerms(item.Name),
			})
		}
		index[tier] = indexed
	}

	return index, skipped
}

// scorePair scores the full cross-product of two tiers in one batch pass
// over a preallocated slice.
func (g *Generator) scorePair(pair models.TierPair, from, to []indexedItem, index map[models.Tier][]indexedItem) []models.LinkCandidate {
	candidates := make([]models.LinkCandidate, 0, len(from)*len(to)/4+1)

	for i := range from {
		for j := range to {
			if c, ok := g.scoreItems(&from[i], &to[j], index); ok {
				candidates = append(candidates, c)
			}
		}
	}

	return candidates
}

// scoreItems evaluates a single cross-tier item pair. Word overlap is the
// base signal; a two-hop corroboration upgrades the method to causal_chain,
// and a shared category or domain theme rescues pairs with no literal
// token overlap as thematic_keyword.
func (g *Generator) scoreItems(from, to *indexedItem, index map[models.Tier][]indexedItem) (models.LinkCandidate, bool) {
	sim := similarity.NameSimilarity(from.terms, to.terms)
	themeOverlap := thematicOverlap(&from.item, &to.item)

	var method models.LinkMethod
	connections := 1

	switch {
	case sim >= g.cfg.SimilarityThreshold:
		method = models.MethodWordOverlap
		if confirmations := g.chainConfirmations(from, to, index); confirmations > 0 {
			// A confirmed multi-hop path outranks plain word overlap.
			method = models.MethodCausalChain
			connections += confirmations
		}
	case themeOverlap >= g.cfg.SimilarityThreshold:
		method = models.MethodThematicKeyword
		sim = themeOverlap
	default:
		return models.LinkCandidate{}, false
	}

	return models.LinkCandidate{
		FromID:     from.item.ID,
		FromName:   from.item.Name,
		FromTier:   from.item.Tier,
		ToID:       to.item.ID,
		ToName:     to.item.Name,
		ToTier:     to.item.Tier,
		Similarity: sim,
		Method:     method,
		ConfidenceFactors: map[string]float64{
			models.FactorConnectionCount: float64(connections),
			models.FactorThematicOverlap: themeOverlap,
		},
	}, true
}

// chainConfirmations counts downstream items Z such that to→Z is a valid
// tier-pair and both hops (to,Z) and the closing edge (from,Z) clear the
// chain threshold. Each distinct Z is one independent path agreeing on the
// pair, feeding connection multiplicity.
func (g *Generator) chainConfirmations(from, to *indexedItem, index map[models.Tier][]indexedItem) int {
	count := 0
	for _, midTier := range models.DownstreamTiers(to.item.Tier) {
		for k := range index[midTier] {
			mid := &index[midTier][k]
			if mid.item.ID == from.item.ID || mid.item.ID == to.item.ID {
				continue
			}
			if similarity.NameSimilarity(to.terms, mid.terms) < g.cfg.ChainThreshold {
				continue
			}
			if similarity.NameSimilarity(from.terms, mid.terms) < g.cfg.ChainThreshold {
				continue
			}
			count++
		}
	}
	return count
}

// thematicOverlap scores shared category plus shared domain themes.
func thematicOverlap(from, to *models.VocabularyItem) float64 {
	overlap := similarity.ThemeOverlap(from.Name, to.Name)
	if from.Category != "" && from.Category == to.Category {
		// An explicit shared category is stronger evidence than keyword themes.
		if overlap < 0.5 {
			overlap = 0.5
		}
	}
	return overlap
}
