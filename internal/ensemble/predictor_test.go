package ensemble

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecorisk/causelink/internal/config"
	"github.com/ecorisk/causelink/pkg/models"
)

func chainCandidate() models.LinkCandidate {
	return models.LinkCandidate{
		FromID: "a1", FromName: "Commercial fishing", FromTier: models.TierActivity,
		ToID: "p1", ToName: "Overfishing pressure", ToTier: models.TierPressure,
		Similarity:      0.85,
		Method:          models.MethodCausalChain,
		Confidence:      0.77,
		ConfidenceLevel: models.LevelHigh,
		ConfidenceFactors: map[string]float64{
			models.FactorConnectionCount: 2,
			models.FactorThematicOverlap: 1.0,
		},
	}
}

func TestPredictorRescore(t *testing.T) {
	trainer := NewTrainer(config.EnsembleConfig{
		MinSamples:      50,
		HoldoutFraction: 0.2,
		Seed:            3,
		TrainTimeout:    time.Minute,
	}, zerolog.Nop())
	model, err := trainer.Train(context.Background(), syntheticFeedback(80), nil)
	require.NoError(t, err)

	predictor := NewPredictor(model, models.DefaultConfidenceConfig(), zerolog.Nop())
	original := chainCandidate()

	rescored := predictor.Rescore([]models.LinkCandidate{original}, nil)
	require.Len(t, rescored, 1)

	got := rescored[0]
	assert.Equal(t, original.Similarity, got.Similarity, "symbolic evidence survives rescoring")
	assert.Contains(t, got.ConfidenceFactors, models.FactorEnsemble)
	assert.Equal(t, got.Confidence, got.ConfidenceFactors[models.FactorEnsemble])
	assert.NotEmpty(t, got.ConfidenceLevel)

	// The input candidate is untouched.
	assert.NotContains(t, original.ConfidenceFactors, models.FactorEnsemble)
}

func TestPredictorRescoreSchemaMismatchDegrades(t *testing.T) {
	// A model trained against a different schema length cannot score the
	// engineered vectors; candidates keep their heuristic confidence.
	model := &Model{FeatureSchema: []string{"similarity"}}
	predictor := NewPredictor(model, nil, zerolog.Nop())
	original := chainCandidate()

	rescored := predictor.Rescore([]models.LinkCandidate{original}, nil)
	require.Len(t, rescored, 1)

	assert.Equal(t, original.Confidence, rescored[0].Confidence)
	assert.NotContains(t, rescored[0].ConfidenceFactors, models.FactorEnsemble)
}
