package ensemble

import (
	"context"
	"sort"
	"sync"
)

// Kind identifies a classifier implementation.
type Kind string

const (
	// KindForest is a bagged forest of CART trees, weighted by out-of-bag accuracy.
	KindForest Kind = "forest"
	// KindGBM is a gradient-boosted stage of shallow regression trees.
	KindGBM Kind = "gbm"
	// KindExtra is a forest of extremely randomized trees.
	KindExtra Kind = "extra"
)

// Dataset is a feature matrix with binary labels (1 accepted, 0 rejected).
type Dataset struct {
	X [][]float64
	Y []float64
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Y) }

// Classifier is the common capability surface every ensemble member
// implements. Implementations are immutable after Fit and safe for
// concurrent prediction.
type Classifier interface {
	// Kind returns the classifier's registry identity.
	Kind() Kind
	// Fit trains on train and evaluates on val. Implementations with a
	// native self-estimate (out-of-bag) may ignore val.
	Fit(ctx context.Context, train, val *Dataset) error
	// PredictProba returns the probability estimate in [0,1] for one sample.
	PredictProba(features []float64) float64
	// ValidationAccuracy returns the held-out or out-of-bag accuracy used
	// to derive this member's ensemble weight.
	ValidationAccuracy() float64
	// Importance returns per-feature importance, normalized to sum to 1.
	Importance() []float64
	// MarshalState serializes the trained state.
	MarshalState() ([]byte, error)
	// UnmarshalState restores trained state produced by MarshalState.
	UnmarshalState(data []byte) error
}

// Factory constructs an untrained classifier with the given seed.
type Factory func(seed int64) Classifier

var (
	registryMu sync.RWMutex
	registry   = map[Kind]Factory{}
)

// Register adds a classifier kind to the capability set. The built-in kinds
// register at init; external implementations may add their own before any
// training runs.
func Register(kind Kind, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = factory
}

// Available returns the sorted set of registered classifier kinds.
func Available() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// newClassifier builds an untrained classifier for the kind, if registered.
func newClassifier(kind Kind, seed int64) (Classifier, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[kind]
	if !ok {
		return nil, false
	}
	return factory(seed), true
}

func init() {
	Register(KindForest, func(seed int64) Classifier { return newForest(seed) })
	Register(KindGBM, func(seed int64) Classifier { return newGBM(seed) })
	Register(KindExtra, func(seed int64) Classifier { return newExtraTrees(seed) })
}
