// Package engine wires generation, scoring, ensemble learning, explanation
// and caching into the single caller-facing API of the library.
package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/ecorisk/causelink/internal/config"
	"github.com/ecorisk/causelink/internal/ensemble"
	"github.com/ecorisk/causelink/pkg/models"
)

// EngineSuite exercises the full pipeline through the facade.
type EngineSuite struct {
	suite.Suite
	engine *Engine
	vocab  *models.Vocabulary
	ctx    context.Context
}

func (s *EngineSuite) SetupTest() {
	cfg := config.DefaultConfig()
	cfg.Ensemble.Seed = 19

	s.engine = New(cfg, zerolog.Nop())
	s.ctx = context.Background()
	s.vocab = &models.Vocabulary{
		Activities: []models.VocabularyItem{
			{ID: "a1", Name: "Commercial fishing", Tier: models.TierActivity},
			{ID: "a2", Name: "Bottom trawling", Tier: models.TierActivity},
		},
		Pressures: []models.VocabularyItem{
			{ID: "p1", Name: "Overfishing pressure", Tier: models.TierPressure},
			{ID: "p2", Name: "Seabed abrasion", Tier: models.TierPressure},
		},
		Consequences: []models.VocabularyItem{
			{ID: "c1", Name: "Fishing stock collapse", Tier: models.TierConsequence},
			{ID: "c2", Name: "Benthic habitat degradation", Tier: models.TierConsequence},
		},
		Controls: []models.VocabularyItem{
			{ID: "ct1", Name: "Fishing quota limits", Tier: models.TierControl},
			{ID: "ct2", Name: "Trawling gear restriction", Tier: models.TierControl},
		},
	}
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

// trainingFeedback derives a plausible feedback history from generated
// candidates: high-confidence suggestions accepted, the rest rejected, with
// enough duplication to clear the training minimum.
func (s *EngineSuite) trainingFeedback() []models.FeedbackRecord {
	candidates, err := s.engine.GenerateLinks(s.ctx, s.vocab)
	s.Require().NoError(err)
	s.Require().NotEmpty(candidates)

	records := make([]models.FeedbackRecord, 0, 60)
	for len(records) < 60 {
		for _, c := range candidates {
			action := models.FeedbackRejected
			if c.Confidence >= 0.5 {
				action = models.FeedbackAccepted
			}
			records = append(records, models.FeedbackRecord{
				FromID:   c.FromID,
				ToID:     c.ToID,
				Features: ensemble.FeatureVector(c, s.vocab),
				Action:   action,
			})
		}
	}
	return records
}

// =============================================================================
// GOOD SCENARIOS - Expected normal operations
// =============================================================================

func (s *EngineSuite) TestGenerateLinks_GoodScenarios_HeuristicPipeline() {
	candidates, err := s.engine.GenerateLinks(s.ctx, s.vocab)
	s.Require().NoError(err)
	s.Require().NotEmpty(candidates)

	seen := make(map[string]bool)
	for _, c := range candidates {
		s.True(models.IsValidTierPair(c.FromTier, c.ToTier))

		key := c.FromID + "|" + c.ToID + "|" + string(c.Method)
		s.False(seen[key], "duplicate candidate %s", key)
		seen[key] = true

		s.GreaterOrEqual(c.Confidence, 0.0)
		s.LessOrEqual(c.Confidence, 1.0)
		s.NotEmpty(c.ConfidenceLevel)
		s.NotEmpty(c.ConfidenceFactors)
	}
}

func (s *EngineSuite) TestGenerateLinks_GoodScenarios_CachedSecondCall() {
	first, err := s.engine.GenerateLinks(s.ctx, s.vocab)
	s.Require().NoError(err)
	second, err := s.engine.GenerateLinks(s.ctx, s.vocab)
	s.Require().NoError(err)

	s.ElementsMatch(first, second)

	stats := s.engine.CacheStats()
	s.Equal(int64(1), stats["misses"])
	s.GreaterOrEqual(stats["hits"], int64(1))
}

func (s *EngineSuite) TestGenerateLinks_GoodScenarios_EditedSnapshotRecomputes() {
	_, err := s.engine.GenerateLinks(s.ctx, s.vocab)
	s.Require().NoError(err)

	edited := *s.vocab
	edited.Pressures = append([]models.VocabularyItem(nil), s.vocab.Pressures...)
	edited.Pressures[0].Name = "Stock depletion pressure"

	_, err = s.engine.GenerateLinks(s.ctx, &edited)
	s.Require().NoError(err)

	stats := s.engine.CacheStats()
	s.Equal(int64(2), stats["misses"], "an edited snapshot is a new cache key")
}

func (s *EngineSuite) TestGenerateLinks_GoodScenarios_CallerMutationCannotCorruptCache() {
	first, err := s.engine.GenerateLinks(s.ctx, s.vocab)
	s.Require().NoError(err)
	s.Require().NotEmpty(first)

	// Tamper with everything the first call handed out.
	for i := range first {
		for k := range first[i].ConfidenceFactors {
			first[i].ConfidenceFactors[k] = -99
		}
	}

	second, err := s.engine.GenerateLinks(s.ctx, s.vocab)
	s.Require().NoError(err)

	for _, c := range second {
		for name, v := range c.ConfidenceFactors {
			s.NotEqual(-99.0, v, "cached factor %s leaked a caller mutation", name)
		}
	}
}

func (s *EngineSuite) TestTrainAndScore_GoodScenarios_EnsembleRescoring() {
	feedback := s.trainingFeedback()

	model, err := s.engine.TrainEnsemble(s.ctx, feedback, nil)
	s.Require().NoError(err)
	s.Require().NotNil(model)
	s.Equal(model, s.engine.ActiveModel())

	candidates, err := s.engine.GenerateLinks(s.ctx, s.vocab)
	s.Require().NoError(err)
	s.Require().NotEmpty(candidates)

	for _, c := range candidates {
		s.Contains(c.ConfidenceFactors, models.FactorEnsemble,
			"an active model must rescore every candidate")
		s.GreaterOrEqual(c.Confidence, 0.0)
		s.LessOrEqual(c.Confidence, 1.0)
	}
}

func (s *EngineSuite) TestSaveLoad_GoodScenarios_RoundTrip() {
	_, err := s.engine.TrainEnsemble(s.ctx, s.trainingFeedback(), nil)
	s.Require().NoError(err)

	path := filepath.Join(s.T().TempDir(), "ensemble.json")
	s.Require().NoError(s.engine.SaveEnsemble(path))

	// A fresh engine starts heuristic-only and picks up the persisted model.
	restored := New(config.DefaultConfig(), zerolog.Nop())
	s.Nil(restored.ActiveModel())

	model, err := restored.LoadEnsemble(path)
	s.Require().NoError(err)
	s.Equal(s.engine.ActiveModel().ID, model.ID)

	mine, err := s.engine.GenerateLinks(s.ctx, s.vocab)
	s.Require().NoError(err)
	theirs, err := restored.GenerateLinks(s.ctx, s.vocab)
	s.Require().NoError(err)

	byKey := make(map[string]float64, len(mine))
	for _, c := range mine {
		byKey[c.FromID+"|"+c.ToID+"|"+string(c.Method)] = c.Confidence
	}
	for _, c := range theirs {
		s.InDelta(byKey[c.FromID+"|"+c.ToID+"|"+string(c.Method)], c.Confidence, 1e-9,
			"restored model must score identically")
	}
}

func (s *EngineSuite) TestExplain_GoodScenarios() {
	candidates, err := s.engine.GenerateLinks(s.ctx, s.vocab)
	s.Require().NoError(err)
	s.Require().NotEmpty(candidates)

	explanations := s.engine.ExplainBatch(candidates)
	s.Require().Len(explanations, len(candidates))

	for i, exp := range explanations {
		s.Equal(candidates[i].FromID, exp.FromID)
		s.Equal(candidates[i].Confidence, exp.OverallScore)
		s.NotEmpty(exp.TopReasons)
		s.NotEmpty(exp.Factors)
	}
}

func (s *EngineSuite) TestFeatureImportance_GoodScenarios() {
	s.Nil(s.engine.FeatureImportance(5), "no model, no importances")

	_, err := s.engine.TrainEnsemble(s.ctx, s.trainingFeedback(), nil)
	s.Require().NoError(err)

	importances := s.engine.FeatureImportance(5)
	s.Require().Len(importances, 5)
	for _, fi := range importances {
		s.GreaterOrEqual(fi.Importance, 0.0)
		s.NotEmpty(fi.Feature)
	}
}

// =============================================================================
// BAD SCENARIOS - Error handling
// =============================================================================

func (s *EngineSuite) TestGenerateLinks_BadScenarios_NilVocabulary() {
	_, err := s.engine.GenerateLinks(s.ctx, nil)

	var validation *models.ValidationError
	s.True(errors.As(err, &validation))
}

func (s *EngineSuite) TestTrainEnsemble_BadScenarios_InsufficientFeedback() {
	feedback := s.trainingFeedback()[:10]

	_, err := s.engine.TrainEnsemble(s.ctx, feedback, nil)

	var insufficient *models.InsufficientDataError
	s.Require().True(errors.As(err, &insufficient))
	s.Nil(s.engine.ActiveModel(), "a failed training run must not activate a model")
}

func (s *EngineSuite) TestTrainEnsemble_BadScenarios_PreviousModelSurvivesFailure() {
	model, err := s.engine.TrainEnsemble(s.ctx, s.trainingFeedback(), nil)
	s.Require().NoError(err)

	_, err = s.engine.TrainEnsemble(s.ctx, nil, nil)
	s.Require().Error(err)

	s.Equal(model, s.engine.ActiveModel())
}

func (s *EngineSuite) TestSaveEnsemble_BadScenarios_NoActiveModel() {
	err := s.engine.SaveEnsemble(filepath.Join(s.T().TempDir(), "none.json"))

	var persistence *models.PersistenceError
	s.True(errors.As(err, &persistence))
}
