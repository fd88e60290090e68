package models

import "fmt"

// ValidationError indicates structurally invalid input, such as a missing
// tier table. Per-row issues (missing id or name) are skip-and-count at the
// generator, not validation errors.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Reason
}

// InsufficientDataError indicates the feedback dataset is below the minimum
// sample count required for ensemble training.
type InsufficientDataError struct {
	Samples    int
	MinSamples int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient feedback for training: %d samples, need at least %d", e.Samples, e.MinSamples)
}

// EnsembleTrainingError indicates fewer than two classifiers trained
// successfully, so no meaningful ensemble can be formed. Callers fall back
// to heuristic scoring.
type EnsembleTrainingError struct {
	Requested int
	Trained   int
	Reason    string
}

func (e *EnsembleTrainingError) Error() string {
	msg := fmt.Sprintf("ensemble training failed: %d of %d classifiers trained", e.Trained, e.Requested)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// FeatureSchemaMismatchError indicates a prediction-time feature vector
// length disagrees with the model's trained schema. The predictor degrades
// that candidate to the heuristic score rather than aborting the batch.
type FeatureSchemaMismatchError struct {
	Expected int
	Got      int
}

func (e *FeatureSchemaMismatchError) Error() string {
	return fmt.Sprintf("feature vector length %d does not match trained schema length %d", e.Got, e.Expected)
}

// PersistenceError indicates a model save/load I/O or deserialization failure.
type PersistenceError struct {
	Op   string // "save" or "load"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ensemble %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
