package ensemble

import (
	"fmt"
	"math"
	"os"
	"time"

	json "github.com/goccy/go-json"

	"github.com/ecorisk/causelink/pkg/models"
)

// persistedModel is the on-disk layout of a trained ensemble: one JSON
// blob carrying every member's kind, weight and serialized state plus the
// feature schema for dimension-mismatch detection on load.
type persistedModel struct {
	ID            string            `json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	FeatureSchema []string          `json:"feature_schema"`
	Members       []persistedMember `json:"members"`
}

type persistedMember struct {
	Kind   Kind            `json:"kind"`
	Weight float64         `json:"weight"`
	State  json.RawMessage `json:"state"`
}

// Save writes the model to path as a single JSON blob.
func Save(model *Model, path string) error {
	if model == nil {
		return &models.PersistenceError{Op: "save", Path: path, Err: fmt.Errorf("nil model")}
	}

	persisted := persistedModel{
		ID:            model.ID,
		CreatedAt:     model.CreatedAt,
		FeatureSchema: model.FeatureSchema,
		Members:       make([]persistedMember, 0, len(model.Members)),
	}

	for _, member := range model.Members {
		state, err := member.Classifier.MarshalState()
		if err != nil {
			return &models.PersistenceError{Op: "save", Path: path, Err: fmt.Errorf("marshal %s state: %w", member.Kind, err)}
		}
		persisted.Members = append(persisted.Members, persistedMember{
			Kind:   member.Kind,
			Weight: member.Weight,
			State:  state,
		})
	}

	data, err := json.Marshal(persisted)
	if err != nil {
		return &models.PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return &models.PersistenceError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// Load restores a model saved by Save. Prediction behavior round-trips
// exactly: same weights, same member configuration. A blob that Save could
// not have produced fails the load rather than producing a model that
// panics or silently predicts nothing: unknown member kinds, a schema of
// unexpected length, fewer than two members, malformed weights and broken
// tree structure are all rejected.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path supplied by the operator
	if err != nil {
		return nil, &models.PersistenceError{Op: "load", Path: path, Err: err}
	}

	var persisted persistedModel
	if err := json.Unmarshal(data, &persisted); err != nil {
		return nil, &models.PersistenceError{Op: "load", Path: path, Err: err}
	}

	if len(persisted.FeatureSchema) != models.FeatureCount {
		return nil, &models.PersistenceError{
			Op:   "load",
			Path: path,
			Err:  fmt.Errorf("persisted schema has %d features, expected %d", len(persisted.FeatureSchema), models.FeatureCount),
		}
	}

	if len(persisted.Members) < 2 {
		return nil, &models.PersistenceError{
			Op:   "load",
			Path: path,
			Err:  fmt.Errorf("persisted ensemble has %d members, need at least 2", len(persisted.Members)),
		}
	}

	total := 0.0
	for _, pm := range persisted.Members {
		if pm.Weight < 0 {
			return nil, &models.PersistenceError{
				Op:   "load",
				Path: path,
				Err:  fmt.Errorf("member %s has negative weight %v", pm.Kind, pm.Weight),
			}
		}
		total += pm.Weight
	}
	if math.Abs(total-1) > 1e-6 {
		return nil, &models.PersistenceError{
			Op:   "load",
			Path: path,
			Err:  fmt.Errorf("member weights sum to %v, expected 1", total),
		}
	}

	model := &Model{
		ID:            persisted.ID,
		CreatedAt:     persisted.CreatedAt,
		FeatureSchema: persisted.FeatureSchema,
		Members:       make([]Member, 0, len(persisted.Members)),
	}

	for _, pm := range persisted.Members {
		classifier, ok := newClassifier(pm.Kind, 0)
		if !ok {
			return nil, &models.PersistenceError{Op: "load", Path: path, Err: fmt.Errorf("unknown classifier kind %q", pm.Kind)}
		}
		if err := classifier.UnmarshalState(pm.State); err != nil {
			return nil, &models.PersistenceError{Op: "load", Path: path, Err: fmt.Errorf("restore %s state: %w", pm.Kind, err)}
		}
		model.Members = append(model.Members, Member{
			Kind:       pm.Kind,
			Weight:     pm.Weight,
			Classifier: classifier,
		})
	}

	return model, nil
}
