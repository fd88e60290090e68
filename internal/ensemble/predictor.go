package ensemble

import (
	"github.com/rs/zerolog"

	"github.com/ecorisk/causelink/pkg/models"
)

// Predictor applies a trained model to candidate links.
type Predictor struct {
	model  *Model
	levels *models.ConfidenceConfig
	logger zerolog.Logger
}

// NewPredictor creates a predictor around an immutable trained model.
// The confidence config supplies the level bucketing thresholds.
func NewPredictor(model *Model, levels *models.ConfidenceConfig, logger zerolog.Logger) *Predictor {
	if levels == nil {
		levels = models.DefaultConfidenceConfig()
	}
	return &Predictor{
		model:  model,
		levels: levels,
		logger: logger.With().Str("component", "predictor").Logger(),
	}
}

// Rescore replaces each candidate's confidence with the ensemble
// probability, retaining the original similarity for explainability. A
// candidate whose engineered features disagree with the trained schema
// keeps its heuristic confidence; the degradation is logged, never fatal
// to the batch.
func (p *Predictor) Rescore(candidates []models.LinkCandidate, vocab *models.Vocabulary) []models.LinkCandidate {
	rescored := make([]models.LinkCandidate, len(candidates))
	degraded := 0

	for i, c := range candidates {
		prob, err := p.model.Predict(FeatureVector(c, vocab))
		if err != nil {
			degraded++
			p.logger.Warn().Err(err).
				Str("from_id", c.FromID).
				Str("to_id", c.ToID).
				Msg("Falling back to heuristic confidence")
			fallback := c
			if c.ConfidenceFactors != nil {
				factors := make(map[string]float64, len(c.ConfidenceFactors))
				for k, v := range c.ConfidenceFactors {
					factors[k] = v
				}
				fallback.ConfidenceFactors = factors
			}
			rescored[i] = fallback
			continue
		}

		updated := c
		updated.Confidence = prob
		updated.ConfidenceLevel = p.levels.LevelFor(prob)
		factors := make(map[string]float64, len(c.ConfidenceFactors)+1)
		for k, v := range c.ConfidenceFactors {
			factors[k] = v
		}
		factors[models.FactorEnsemble] = prob
		updated.ConfidenceFactors = factors
		rescored[i] = updated
	}

	if degraded > 0 {
		p.logger.Info().
			Int("candidates", len(candidates)).
			Int("degraded", degraded).
			Msg("Some candidates kept heuristic scores")
	}

	return rescored
}
