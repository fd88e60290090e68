package ensemble

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// splitMode selects the impurity criterion for tree growth.
type splitMode int

const (
	// modeGini grows classification trees on binary labels.
	modeGini splitMode = iota
	// modeVariance grows regression trees, used for boosting residuals.
	modeVariance
)

// treeNode is one node of a binary decision tree. Leaves carry the
// prediction value (class probability or regression output).
type treeNode struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      *treeNode `json:"l,omitempty"`
	Right     *treeNode `json:"r,omitempty"`
	Value     float64   `json:"v"`
	Leaf      bool      `json:"leaf,omitempty"`
}

// predict walks the tree for one sample.
func (n *treeNode) predict(x []float64) float64 {
	node := n
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// validate checks a deserialized tree: every interior node needs both
// children and a feature index inside the schema. Trees grown in process
// always satisfy this; only untrusted persisted state can violate it.
func (n *treeNode) validate(numFeatures int) error {
	if n == nil {
		return errors.New("nil tree node")
	}
	if n.Leaf {
		return nil
	}
	if n.Feature < 0 || n.Feature >= numFeatures {
		return fmt.Errorf("feature index %d outside schema of %d", n.Feature, numFeatures)
	}
	if n.Left == nil || n.Right == nil {
		return errors.New("interior node missing a child")
	}
	if err := n.Left.validate(numFeatures); err != nil {
		return err
	}
	return n.Right.validate(numFeatures)
}

// validateTrees checks every tree of a deserialized model state.
func validateTrees(trees []*treeNode, numFeatures int) error {
	for i, t := range trees {
		if err := t.validate(numFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// treeParams controls CART growth.
type treeParams struct {
	maxDepth         int
	minLeaf          int
	mtry             int // features considered per split; 0 means all
	randomThresholds bool
	mode             splitMode
}

// growTree builds a tree on the samples selected by idx. Split gains are
// accumulated into gain per feature, weighted by node size, which feeds
// feature importance.
func growTree(x [][]float64, y []float64, idx []int, depth int, p treeParams, rng *rand.Rand, gain []float64) *treeNode {
	mean := meanAt(y, idx)
	imp := impurity(y, idx, mean, p.mode)

	if depth >= p.maxDepth || len(idx) < 2*p.minLeaf || imp == 0 {
		return &treeNode{Leaf: true, Value: mean}
	}

	numFeatures := len(x[0])
	mtry := p.mtry
	if mtry <= 0 || mtry > numFeatures {
		mtry = numFeatures
	}

	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0
	var bestLeft, bestRight []int

	for _, f := range rng.Perm(numFeatures)[:mtry] {
		for _, thr := range candidateThresholds(x, idx, f, p.randomThresholds, rng) {
			left, right := partition(x, idx, f, thr)
			if len(left) < p.minLeaf || len(right) < p.minLeaf {
				continue
			}

			impLeft := impurity(y, left, meanAt(y, left), p.mode)
			impRight := impurity(y, right, meanAt(y, right), p.mode)
			weighted := (float64(len(left))*impLeft + float64(len(right))*impRight) / float64(len(idx))

			if g := imp - weighted; g > bestGain {
				bestGain = g
				bestFeature = f
				bestThreshold = thr
				bestLeft = left
				bestRight = right
			}
		}
	}

	if bestFeature < 0 {
		return &treeNode{Leaf: true, Value: mean}
	}

	gain[bestFeature] += float64(len(idx)) * bestGain

	return &treeNode{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Left:      growTree(x, y, bestLeft, depth+1, p, rng, gain),
		Right:     growTree(x, y, bestRight, depth+1, p, rng, gain),
		Value:     mean,
	}
}

// candidateThresholds returns the split points to evaluate for a feature:
// midpoints between sorted unique values, or a single random cut for
// extremely randomized trees.
func candidateThresholds(x [][]float64, idx []int, f int, random bool, rng *rand.Rand) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range idx {
		v := x[i][f]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo >= hi {
		return nil
	}

	if random {
		return []float64{lo + rng.Float64()*(hi-lo)}
	}

	seen := make(map[float64]bool, len(idx))
	values := make([]float64, 0, len(idx))
	for _, i := range idx {
		v := x[i][f]
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Float64s(values)

	thresholds := make([]float64, 0, len(values)-1)
	for i := 0; i+1 < len(values); i++ {
		thresholds = append(thresholds, (values[i]+values[i+1])/2)
	}
	return thresholds
}

// partition splits idx by x[i][f] <= thr.
func partition(x [][]float64, idx []int, f int, thr float64) (left, right []int) {
	left = make([]int, 0, len(idx))
	right = make([]int, 0, len(idx))
	for _, i := range idx {
		if x[i][f] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

// impurity computes gini for classification or variance for regression.
func impurity(y []float64, idx []int, mean float64, mode splitMode) float64 {
	if len(idx) == 0 {
		return 0
	}
	if mode == modeGini {
		return 2 * mean * (1 - mean)
	}
	sum := 0.0
	for _, i := range idx {
		d := y[i] - mean
		sum += d * d
	}
	return sum / float64(len(idx))
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

// normalizeGains converts accumulated split gains into importances that
// sum to 1. A model that never split returns a uniform distribution so
// downstream aggregation still has a valid probability vector.
func normalizeGains(gain []float64) []float64 {
	total := 0.0
	for _, g := range gain {
		total += g
	}
	out := make([]float64, len(gain))
	if total <= 0 {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out
	}
	for i, g := range gain {
		out[i] = g / total
	}
	return out
}
