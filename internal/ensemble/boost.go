package ensemble

import (
	"context"
	"errors"
	"math"
	"math/rand"

	json "github.com/goccy/go-json"

	"github.com/ecorisk/causelink/pkg/models"
)

const (
	gbmRounds       = 100
	gbmMaxDepth     = 3
	gbmMinLeaf      = 5
	gbmLearningRate = 0.1
)

// gbm is a gradient-boosted stage of shallow regression trees fit to
// logistic-loss residuals. Each round fits the residual y - sigmoid(F)
// and the stage output is squashed back through the sigmoid.
type gbm struct {
	seed  int64
	state gbmState
}

type gbmState struct {
	Bias         float64     `json:"bias"`
	LearningRate float64     `json:"learning_rate"`
	Trees        []*treeNode `json:"trees"`
	Importances  []float64   `json:"importances"`
	Accuracy     float64     `json:"accuracy"`
}

func newGBM(seed int64) *gbm {
	return &gbm{seed: seed}
}

func (g *gbm) Kind() Kind { return KindGBM }

func (g *gbm) Fit(ctx context.Context, train, val *Dataset) error {
	n := train.Len()
	if n == 0 {
		return errors.New("empty training set")
	}

	rng := rand.New(rand.NewSource(g.seed)) // #nosec G404 -- statistical sampling, not security
	numFeatures := len(train.X[0])
	gain := make([]float64, numFeatures)

	params := treeParams{
		maxDepth: gbmMaxDepth,
		minLeaf:  gbmMinLeaf,
		mode:     modeVariance,
	}

	// Prior log-odds of the acceptance rate, clamped away from the
	// degenerate all-one-class case.
	base := meanAt(train.Y, rangeIdx(n))
	base = math.Min(math.Max(base, 0.01), 0.99)
	bias := math.Log(base / (1 - base))

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = bias
	}

	residuals := make([]float64, n)
	all := rangeIdx(n)
	trees := make([]*treeNode, 0, gbmRounds)

	for round := 0; round < gbmRounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for i := 0; i < n; i++ {
			residuals[i] = train.Y[i] - sigmoid(scores[i])
		}

		tree := growTree(train.X, residuals, all, 0, params, rng, gain)
		trees = append(trees, tree)

		for i := 0; i < n; i++ {
			scores[i] += gbmLearningRate * tree.predict(train.X[i])
		}
	}

	g.state = gbmState{
		Bias:         bias,
		LearningRate: gbmLearningRate,
		Trees:        trees,
		Importances:  normalizeGains(gain),
	}
	if val != nil && val.Len() > 0 {
		g.state.Accuracy = g.accuracyOn(val)
	} else {
		g.state.Accuracy = g.accuracyOn(train)
	}
	return nil
}

func (g *gbm) accuracyOn(d *Dataset) float64 {
	if d == nil || d.Len() == 0 {
		return 0.5
	}
	correct := 0
	for i := range d.Y {
		if (g.PredictProba(d.X[i]) > 0.5) == (d.Y[i] > 0.5) {
			correct++
		}
	}
	return float64(correct) / float64(d.Len())
}

func (g *gbm) PredictProba(features []float64) float64 {
	score := g.state.Bias
	for _, t := range g.state.Trees {
		score += g.state.LearningRate * t.predict(features)
	}
	return sigmoid(score)
}

func (g *gbm) ValidationAccuracy() float64 { return g.state.Accuracy }

func (g *gbm) Importance() []float64 { return g.state.Importances }

func (g *gbm) MarshalState() ([]byte, error) {
	return json.Marshal(g.state)
}

func (g *gbm) UnmarshalState(data []byte) error {
	var state gbmState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	if err := validateTrees(state.Trees, models.FeatureCount); err != nil {
		return err
	}
	g.state = state
	return nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func rangeIdx(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
