// Package engine wires generation, scoring, ensemble learning, explanation
// and caching into the single caller-facing API of the library.
package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ecorisk/causelink/internal/config"
	"github.com/ecorisk/causelink/internal/ensemble"
	"github.com/ecorisk/causelink/internal/explain"
	"github.com/ecorisk/causelink/internal/generator"
	"github.com/ecorisk/causelink/internal/linkcache"
	"github.com/ecorisk/causelink/internal/scoring"
	"github.com/ecorisk/causelink/pkg/models"
)

// Engine is the facade over the link-inference pipeline. It is safe for
// concurrent use; the active ensemble model is swapped atomically under a
// lock and every trained model is immutable once published.
type Engine struct {
	cfg        *config.Config
	logger     zerolog.Logger
	generator  *generator.Generator
	aggregator *scoring.Aggregator
	trainer    *ensemble.Trainer
	explainer  *explain.Explainer
	cache      *linkcache.Cache

	mu    sync.RWMutex
	model *ensemble.Model
}

// New creates an engine. A nil config means defaults.
func New(cfg *config.Config, logger zerolog.Logger) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger = logger.With().Str("component", "engine").Logger()

	return &Engine{
		cfg:        cfg,
		logger:     logger,
		generator:  generator.New(cfg.Generator, logger),
		aggregator: scoring.NewAggregator(cfg.Confidence),
		trainer:    ensemble.NewTrainer(cfg.Ensemble, logger),
		explainer:  explain.NewExplainer(cfg.Explain, cfg.Confidence),
		cache:      linkcache.New(cfg.Cache.MaxEntries, logger),
	}
}

// GenerateLinks produces heuristically scored candidate links for the
// vocabulary snapshot. Results are memoized by snapshot content hash, and
// concurrent calls for the same snapshot share one computation. When an
// ensemble model is active the cached heuristic candidates are re-scored
// with it; the cache itself only ever holds heuristic results, so loading
// a new model never serves stale probabilities.
func (e *Engine) GenerateLinks(ctx context.Context, vocab *models.Vocabulary) ([]models.LinkCandidate, error) {
	if vocab == nil {
		return nil, &models.ValidationError{Reason: "nil vocabulary snapshot"}
	}

	result, key, err := e.cache.GetOrCompute(ctx, vocab, func(ctx context.Context) (*generator.Result, error) {
		generated, err := e.generator.Generate(ctx, vocab)
		if err != nil {
			return nil, err
		}
		generated.Candidates = e.aggregator.ScoreBatch(generated.Candidates)
		return generated, nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Uint64("snapshot_key", key).
		Int("candidates", len(result.Candidates)).
		Msg("Served candidate links")

	return e.ScoreLinks(ctx, result.Candidates, vocab), nil
}

// ScoreLinks re-scores candidates with the active ensemble model when one
// is loaded; without a model the heuristic confidences pass through
// unchanged, so a failed or absent training run never blocks suggestions.
// Returned candidates never share factor maps with the cache, so callers
// may mutate them freely.
func (e *Engine) ScoreLinks(_ context.Context, candidates []models.LinkCandidate, vocab *models.Vocabulary) []models.LinkCandidate {
	model := e.activeModel()
	if model == nil {
		out := make([]models.LinkCandidate, len(candidates))
		for i, c := range candidates {
			if c.ConfidenceFactors != nil {
				factors := make(map[string]float64, len(c.ConfidenceFactors))
				for k, v := range c.ConfidenceFactors {
					factors[k] = v
				}
				c.ConfidenceFactors = factors
			}
			out[i] = c
		}
		return out
	}

	predictor := ensemble.NewPredictor(model, e.cfg.Confidence, e.logger)
	return predictor.Rescore(candidates, vocab)
}

// Explain renders the explanation for one scored candidate.
func (e *Engine) Explain(candidate models.LinkCandidate) models.Explanation {
	return e.explainer.Explain(candidate)
}

// ExplainBatch renders explanations for a slice of scored candidates.
func (e *Engine) ExplainBatch(candidates []models.LinkCandidate) []models.Explanation {
	return e.explainer.ExplainBatch(candidates)
}

// TrainEnsemble trains a new ensemble from feedback and activates it. An
// empty kinds slice trains every registered classifier kind. The previous
// model stays active if training fails.
func (e *Engine) TrainEnsemble(ctx context.Context, feedback []models.FeedbackRecord, kinds []ensemble.Kind) (*ensemble.Model, error) {
	model, err := e.trainer.Train(ctx, feedback, kinds)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.model = model
	e.mu.Unlock()

	return model, nil
}

// ActiveModel returns the currently loaded ensemble model, or nil when
// scoring is heuristic-only.
func (e *Engine) ActiveModel() *ensemble.Model {
	return e.activeModel()
}

// SaveEnsemble persists the active model to path.
func (e *Engine) SaveEnsemble(path string) error {
	return ensemble.Save(e.activeModel(), path)
}

// LoadEnsemble restores a persisted model from path and activates it.
func (e *Engine) LoadEnsemble(path string) (*ensemble.Model, error) {
	model, err := ensemble.Load(path)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.model = model
	e.mu.Unlock()

	e.logger.Info().
		Str("model_id", model.ID).
		Int("members", len(model.Members)).
		Msg("Activated persisted ensemble model")

	return model, nil
}

// FeatureImportance reports the active model's normalized feature
// importances, highest first. Returns nil when no model is active.
func (e *Engine) FeatureImportance(topN int) []models.FeatureImportance {
	return explain.FeatureImportance(e.activeModel(), topN)
}

// CacheStats exposes the link cache counters.
func (e *Engine) CacheStats() map[string]int64 {
	return e.cache.Stats()
}

func (e *Engine) activeModel() *ensemble.Model {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model
}
