package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ecorisk/causelink/internal/config"
	"github.com/ecorisk/causelink/pkg/models"
)

// minAccuracyFloor keeps a barely-better-than-chance member from being
// weighted to zero outright; normalization still shrinks it heavily.
const minAccuracyFloor = 0.05

// Trainer builds ensemble models from accumulated user feedback.
type Trainer struct {
	cfg    config.EnsembleConfig
	logger zerolog.Logger
}

// NewTrainer creates an ensemble trainer.
func NewTrainer(cfg config.EnsembleConfig, logger zerolog.Logger) *Trainer {
	return &Trainer{
		cfg:    cfg,
		logger: logger.With().Str("component", "trainer").Logger(),
	}
}

// Train fits each requested classifier kind independently on the feedback
// dataset and returns a weighted ensemble. Kinds not present in the
// registry are skipped without failing the operation; fewer than two
// successfully trained members is an EnsembleTrainingError, and a feedback
// set below the configured minimum is an InsufficientDataError.
func (t *Trainer) Train(ctx context.Context, feedback []models.FeedbackRecord, kinds []Kind) (*Model, error) {
	dataset, skipped := buildDataset(feedback)
	if skipped > 0 {
		t.logger.Warn().
			Int("skipped_records", skipped).
			Msg("Dropped feedback records with malformed feature vectors")
	}

	if dataset.Len() < t.cfg.MinSamples {
		return nil, &models.InsufficientDataError{Samples: dataset.Len(), MinSamples: t.cfg.MinSamples}
	}

	if len(kinds) == 0 {
		kinds = Available()
	}
	kinds = dedupeKinds(kinds)

	seed := t.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	train, val := split(dataset, t.cfg.HoldoutFraction, seed)

	if t.cfg.TrainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.TrainTimeout)
		defer cancel()
	}

	type outcome struct {
		classifier Classifier
		err        error
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = make(map[Kind]outcome, len(kinds))
	)

	requested := 0
	for i, kind := range kinds {
		classifier, ok := newClassifier(kind, seed+int64(i))
		if !ok {
			t.logger.Warn().Str("kind", string(kind)).Msg("Classifier kind not available, skipping")
			continue
		}
		requested++

		wg.Add(1)
		go func(kind Kind, classifier Classifier) {
			defer wg.Done()
			err := classifier.Fit(ctx, train, val)

			mu.Lock()
			outcomes[kind] = outcome{classifier: classifier, err: err}
			mu.Unlock()
		}(kind, classifier)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("ensemble training timed out after %s: %w", t.cfg.TrainTimeout, err)
		}
		return nil, fmt.Errorf("ensemble training aborted: %w", err)
	}

	members := make([]Member, 0, len(outcomes))
	for _, kind := range kinds {
		o, ok := outcomes[kind]
		if !ok {
			continue
		}
		if o.err != nil {
			t.logger.Warn().Err(o.err).Str("kind", string(kind)).Msg("Classifier failed to train")
			continue
		}

		accuracy := o.classifier.ValidationAccuracy()
		if accuracy < minAccuracyFloor {
			accuracy = minAccuracyFloor
		}
		members = append(members, Member{
			Kind:       kind,
			Weight:     accuracy, // normalized below
			Classifier: o.classifier,
		})
	}

	if len(members) < 2 {
		return nil, &models.EnsembleTrainingError{
			Requested: requested,
			Trained:   len(members),
			Reason:    "need at least 2 trained classifiers for a meaningful ensemble",
		}
	}

	normalizeWeights(members)

	model := &Model{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		FeatureSchema: append([]string(nil), models.FeatureSchema...),
		Members:       members,
	}

	event := t.logger.Info().
		Str("model_id", model.ID).
		Int("samples", dataset.Len()).
		Int("members", len(members))
	for _, m := range members {
		event = event.Float64("weight_"+string(m.Kind), m.Weight)
	}
	event.Msg("Ensemble training complete")

	return model, nil
}

// dedupeKinds drops repeated kinds, keeping first-request order. A kind
// requested twice trains once; without this, one classifier would appear
// as two members and defeat the two-distinct-members requirement.
func dedupeKinds(kinds []Kind) []Kind {
	seen := make(map[Kind]bool, len(kinds))
	unique := make([]Kind, 0, len(kinds))
	for _, kind := range kinds {
		if seen[kind] {
			continue
		}
		seen[kind] = true
		unique = append(unique, kind)
	}
	return unique
}

// buildDataset converts feedback records into a feature matrix, skipping
// and counting records whose vectors disagree with the fixed schema.
func buildDataset(feedback []models.FeedbackRecord) (*Dataset, int) {
	x := make([][]float64, 0, len(feedback))
	y := make([]float64, 0, len(feedback))
	skipped := 0

	for _, record := range feedback {
		if len(record.Features) != models.FeatureCount {
			skipped++
			continue
		}
		x = append(x, record.Features)
		y = append(y, record.Label())
	}

	return &Dataset{X: x, Y: y}, skipped
}

// split shuffles deterministically and carves off the holdout fraction.
func split(d *Dataset, holdout float64, seed int64) (train, val *Dataset) {
	n := d.Len()
	rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- reproducible shuffling, not security
	perm := rng.Perm(n)

	valSize := int(float64(n) * holdout)
	if valSize >= n {
		valSize = n / 5
	}

	val = &Dataset{X: make([][]float64, 0, valSize), Y: make([]float64, 0, valSize)}
	train = &Dataset{X: make([][]float64, 0, n-valSize), Y: make([]float64, 0, n-valSize)}

	for i, j := range perm {
		if i < valSize {
			val.X = append(val.X, d.X[j])
			val.Y = append(val.Y, d.Y[j])
		} else {
			train.X = append(train.X, d.X[j])
			train.Y = append(train.Y, d.Y[j])
		}
	}
	return train, val
}

// normalizeWeights scales member weights to sum to 1.
func normalizeWeights(members []Member) {
	total := 0.0
	for _, m := range members {
		total += m.Weight
	}
	if total <= 0 {
		for i := range members {
			members[i].Weight = 1 / float64(len(members))
		}
		return
	}
	for i := range members {
		members[i].Weight /= total
	}
}
