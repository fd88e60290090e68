package explain

import (
	"sort"

	"github.com/ecorisk/causelink/internal/ensemble"
	"github.com/ecorisk/causelink/pkg/models"
)

// FeatureImportance aggregates per-member feature importance across an
// ensemble: each member's native importances are already normalized to sum
// to 1, so they are averaged and the result re-normalized. The full list
// sums to 1; topN > 0 truncates it after normalization, keeping the
// highest-ranked features.
func FeatureImportance(model *ensemble.Model, topN int) []models.FeatureImportance {
	if model == nil || len(model.Members) == 0 {
		return nil
	}

	schema := model.FeatureSchema
	averaged := make([]float64, len(schema))
	counted := 0

	for _, member := range model.Members {
		imp := member.Classifier.Importance()
		if len(imp) != len(schema) {
			continue
		}
		for i, v := range imp {
			averaged[i] += v
		}
		counted++
	}
	if counted == 0 {
		return nil
	}

	total := 0.0
	for i := range averaged {
		averaged[i] /= float64(counted)
		total += averaged[i]
	}
	if total > 0 {
		for i := range averaged {
			averaged[i] /= total
		}
	}

	out := make([]models.FeatureImportance, len(schema))
	for i, name := range schema {
		out[i] = models.FeatureImportance{Feature: name, Importance: averaged[i]}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})

	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out
}
