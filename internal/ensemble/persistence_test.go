package ensemble

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/ecorisk/causelink/internal/config"
	"github.com/ecorisk/causelink/pkg/models"
)

// PersistenceSuite tests model save/load round-tripping.
type PersistenceSuite struct {
	suite.Suite
	model *Model
	dir   string
}

func (s *PersistenceSuite) SetupTest() {
	trainer := NewTrainer(config.EnsembleConfig{
		MinSamples:      50,
		HoldoutFraction: 0.2,
		Seed:            7,
		TrainTimeout:    time.Minute,
	}, zerolog.Nop())

	model, err := trainer.Train(context.Background(), syntheticFeedback(80), nil)
	s.Require().NoError(err)
	s.model = model
	s.dir = s.T().TempDir()
}

func TestPersistenceSuite(t *testing.T) {
	suite.Run(t, new(PersistenceSuite))
}

func (s *PersistenceSuite) TestSaveLoad_RoundTripPredictions() {
	path := filepath.Join(s.dir, "model.json")
	s.Require().NoError(Save(s.model, path))

	restored, err := Load(path)
	s.Require().NoError(err)

	s.Equal(s.model.ID, restored.ID)
	s.Equal(s.model.FeatureSchema, restored.FeatureSchema)
	s.Equal(s.model.Weights(), restored.Weights())

	// Identical probabilities on both class archetypes and a mid-range probe.
	midProbe := make([]float64, models.FeatureCount)
	midProbe[0] = 0.45
	midProbe[1] = 1
	midProbe[5] = 1
	midProbe[10] = 1
	midProbe[12] = 1

	for _, probe := range [][]float64{acceptLike(), rejectLike(), midProbe} {
		want, err := s.model.Predict(probe)
		s.Require().NoError(err)
		got, err := restored.Predict(probe)
		s.Require().NoError(err)
		s.InDelta(want, got, 1e-9)
	}
}

func (s *PersistenceSuite) TestSave_NilModel() {
	err := Save(nil, filepath.Join(s.dir, "model.json"))

	var persistence *models.PersistenceError
	s.Require().True(errors.As(err, &persistence))
	s.Equal("save", persistence.Op)
}

func (s *PersistenceSuite) TestLoad_MissingFile() {
	_, err := Load(filepath.Join(s.dir, "does-not-exist.json"))

	var persistence *models.PersistenceError
	s.True(errors.As(err, &persistence))
}

func (s *PersistenceSuite) TestLoad_CorruptPayload() {
	path := filepath.Join(s.dir, "corrupt.json")
	s.Require().NoError(os.WriteFile(path, []byte("{not json"), 0600))

	_, err := Load(path)

	var persistence *models.PersistenceError
	s.True(errors.As(err, &persistence))
}

func (s *PersistenceSuite) TestLoad_SchemaLengthMismatch() {
	payload, err := json.Marshal(map[string]any{
		"id":             "m1",
		"created_at":     time.Now().UTC(),
		"feature_schema": []string{"similarity", "extra"},
		"members":        []any{},
	})
	s.Require().NoError(err)

	path := filepath.Join(s.dir, "short-schema.json")
	s.Require().NoError(os.WriteFile(path, payload, 0600))

	_, err = Load(path)

	var persistence *models.PersistenceError
	s.Require().True(errors.As(err, &persistence))
	s.Contains(err.Error(), "expected 18")
}

func (s *PersistenceSuite) TestLoad_FewerThanTwoMembers() {
	payload, err := json.Marshal(map[string]any{
		"id":             "m1",
		"created_at":     time.Now().UTC(),
		"feature_schema": models.FeatureSchema,
		"members": []map[string]any{
			{"kind": "forest", "weight": 1.0, "state": map[string]any{}},
		},
	})
	s.Require().NoError(err)

	path := filepath.Join(s.dir, "single-member.json")
	s.Require().NoError(os.WriteFile(path, payload, 0600))

	_, err = Load(path)

	var persistence *models.PersistenceError
	s.Require().True(errors.As(err, &persistence))
	s.Contains(err.Error(), "need at least 2")
}

func (s *PersistenceSuite) TestLoad_BrokenTreeStructure() {
	// An interior node with no children would panic at prediction time;
	// loading must reject it instead.
	payload, err := json.Marshal(map[string]any{
		"id":             "m1",
		"created_at":     time.Now().UTC(),
		"feature_schema": models.FeatureSchema,
		"members": []map[string]any{
			{
				"kind":   "forest",
				"weight": 0.5,
				"state": map[string]any{
					"trees":       []map[string]any{{"f": 0, "t": 0.5, "v": 0.0}},
					"importances": []float64{},
					"accuracy":    0.9,
				},
			},
			{"kind": "gbm", "weight": 0.5, "state": map[string]any{}},
		},
	})
	s.Require().NoError(err)

	path := filepath.Join(s.dir, "broken-tree.json")
	s.Require().NoError(os.WriteFile(path, payload, 0600))

	_, err = Load(path)

	var persistence *models.PersistenceError
	s.Require().True(errors.As(err, &persistence))
	s.Contains(err.Error(), "missing a child")
}

func (s *PersistenceSuite) TestLoad_TreeFeatureOutsideSchema() {
	leaf := map[string]any{"f": 0, "t": 0.0, "v": 1.0, "leaf": true}
	payload, err := json.Marshal(map[string]any{
		"id":             "m1",
		"created_at":     time.Now().UTC(),
		"feature_schema": models.FeatureSchema,
		"members": []map[string]any{
			{
				"kind":   "forest",
				"weight": 0.5,
				"state": map[string]any{
					"trees": []map[string]any{
						{"f": 99, "t": 0.5, "v": 0.0, "l": leaf, "r": leaf},
					},
					"importances": []float64{},
					"accuracy":    0.9,
				},
			},
			{"kind": "gbm", "weight": 0.5, "state": map[string]any{}},
		},
	})
	s.Require().NoError(err)

	path := filepath.Join(s.dir, "bad-feature.json")
	s.Require().NoError(os.WriteFile(path, payload, 0600))

	_, err = Load(path)

	var persistence *models.PersistenceError
	s.Require().True(errors.As(err, &persistence))
	s.Contains(err.Error(), "outside schema")
}

func (s *PersistenceSuite) TestLoad_CorruptWeights() {
	payload, err := json.Marshal(map[string]any{
		"id":             "m1",
		"created_at":     time.Now().UTC(),
		"feature_schema": models.FeatureSchema,
		"members": []map[string]any{
			{"kind": "forest", "weight": 0.3, "state": map[string]any{}},
			{"kind": "gbm", "weight": 0.2, "state": map[string]any{}},
		},
	})
	s.Require().NoError(err)

	path := filepath.Join(s.dir, "bad-weights.json")
	s.Require().NoError(os.WriteFile(path, payload, 0600))

	_, err = Load(path)

	var persistence *models.PersistenceError
	s.Require().True(errors.As(err, &persistence))
	s.Contains(err.Error(), "weights sum")
}

func (s *PersistenceSuite) TestLoad_UnknownMemberKind() {
	payload, err := json.Marshal(map[string]any{
		"id":             "m1",
		"created_at":     time.Now().UTC(),
		"feature_schema": models.FeatureSchema,
		"members": []map[string]any{
			{"kind": "neural", "weight": 0.5, "state": map[string]any{}},
			{"kind": "forest", "weight": 0.5, "state": map[string]any{}},
		},
	})
	s.Require().NoError(err)

	path := filepath.Join(s.dir, "unknown-kind.json")
	s.Require().NoError(os.WriteFile(path, payload, 0600))

	_, err = Load(path)

	var persistence *models.PersistenceError
	s.Require().True(errors.As(err, &persistence))
	s.Contains(err.Error(), "neural")
}
