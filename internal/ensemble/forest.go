package ensemble

import (
	"context"
	"errors"
	"math"
	"math/rand"

	json "github.com/goccy/go-json"

	"github.com/ecorisk/causelink/pkg/models"
)

// Forest hyperparameters. Tuned for feedback datasets in the
// tens-to-thousands range; not exposed as configuration.
const (
	forestTrees    = 100
	forestMaxDepth = 8
	forestMinLeaf  = 2
)

// forest is a bagged ensemble of CART trees. Its ensemble weight comes
// from out-of-bag accuracy, so it needs no held-out split.
type forest struct {
	seed  int64
	state forestState
}

type forestState struct {
	Trees       []*treeNode `json:"trees"`
	Importances []float64   `json:"importances"`
	Accuracy    float64     `json:"accuracy"`
}

func newForest(seed int64) *forest {
	return &forest{seed: seed}
}

func (f *forest) Kind() Kind { return KindForest }

func (f *forest) Fit(ctx context.Context, train, _ *Dataset) error {
	n := train.Len()
	if n == 0 {
		return errors.New("empty training set")
	}

	rng := rand.New(rand.NewSource(f.seed)) // #nosec G404 -- statistical sampling, not security
	numFeatures := len(train.X[0])
	mtry := int(math.Ceil(math.Sqrt(float64(numFeatures))))
	gain := make([]float64, numFeatures)

	params := treeParams{
		maxDepth: forestMaxDepth,
		minLeaf:  forestMinLeaf,
		mtry:     mtry,
		mode:     modeGini,
	}

	oobSum := make([]float64, n)
	oobCount := make([]int, n)
	trees := make([]*treeNode, 0, forestTrees)

	for t := 0; t < forestTrees; t++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		inBag := make([]bool, n)
		sample := make([]int, n)
		for i := range sample {
			j := rng.Intn(n)
			sample[i] = j
			inBag[j] = true
		}

		tree := growTree(train.X, train.Y, sample, 0, params, rng, gain)
		trees = append(trees, tree)

		for i := 0; i < n; i++ {
			if !inBag[i] {
				oobSum[i] += tree.predict(train.X[i])
				oobCount[i]++
			}
		}
	}

	correct, counted := 0, 0
	for i := 0; i < n; i++ {
		if oobCount[i] == 0 {
			continue
		}
		counted++
		predicted := oobSum[i]/float64(oobCount[i]) > 0.5
		if predicted == (train.Y[i] > 0.5) {
			correct++
		}
	}

	accuracy := 0.5
	if counted > 0 {
		accuracy = float64(correct) / float64(counted)
	}

	f.state = forestState{
		Trees:       trees,
		Importances: normalizeGains(gain),
		Accuracy:    accuracy,
	}
	return nil
}

func (f *forest) PredictProba(features []float64) float64 {
	if len(f.state.Trees) == 0 {
		return 0.5
	}
	sum := 0.0
	for _, t := range f.state.Trees {
		sum += t.predict(features)
	}
	return sum / float64(len(f.state.Trees))
}

func (f *forest) ValidationAccuracy() float64 { return f.state.Accuracy }

func (f *forest) Importance() []float64 { return f.state.Importances }

func (f *forest) MarshalState() ([]byte, error) {
	return json.Marshal(f.state)
}

func (f *forest) UnmarshalState(data []byte) error {
	var state forestState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	if err := validateTrees(state.Trees, models.FeatureCount); err != nil {
		return err
	}
	f.state = state
	return nil
}
