// Package models contains domain models for causelink.
package models

// Tier identifies one of the four vocabulary categories.
type Tier string

const (
	// TierActivity is a human activity that may exert pressure on the environment.
	TierActivity Tier = "activity"
	// TierPressure is a mechanism through which an activity affects the environment.
	TierPressure Tier = "pressure"
	// TierConsequence is an environmental outcome of one or more pressures.
	TierConsequence Tier = "consequence"
	// TierControl is a measure that mitigates pressures or consequences.
	TierControl Tier = "control"
)

// AllTiers is the list of all valid tiers.
var AllTiers = []Tier{TierActivity, TierPressure, TierConsequence, TierControl}

// TierPair is a directed pairing of two vocabulary tiers.
type TierPair struct {
	From Tier `json:"from"`
	To   Tier `json:"to"`
}

// ValidTierPairs enumerates the five semantically meaningful link directions.
// Control→Consequence is a mitigating edge; all others are causal.
var ValidTierPairs = []TierPair{
	{TierActivity, TierPressure},
	{TierPressure, TierConsequence},
	{TierActivity, TierControl},
	{TierPressure, TierControl},
	{TierControl, TierConsequence},
}

// IsValidTierPair reports whether links are ever generated from one tier to another.
func IsValidTierPair(from, to Tier) bool {
	for _, p := range ValidTierPairs {
		if p.From == from && p.To == to {
			return true
		}
	}
	return false
}

// DownstreamTiers returns the tiers reachable in one hop from the given tier.
func DownstreamTiers(from Tier) []Tier {
	var out []Tier
	for _, p := range ValidTierPairs {
		if p.From == from {
			out = append(out, p.To)
		}
	}
	return out
}

// VocabularyItem is a single concept in one of the four tiers.
// Items are immutable once loaded; identity is ID, unique within a tier.
type VocabularyItem struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Tier           Tier   `json:"tier" yaml:"tier"`
	HierarchyLevel int    `json:"hierarchy_level,omitempty" yaml:"hierarchy_level,omitempty"`
	Category       string `json:"category,omitempty" yaml:"category,omitempty"`
}

// Vocabulary is an in-memory snapshot of the four concept tables.
// The engine never mutates a snapshot; edits produce a new snapshot
// with a different content hash.
type Vocabulary struct {
	Activities   []VocabularyItem `json:"activities" yaml:"activities"`
	Pressures    []VocabularyItem `json:"pressures" yaml:"pressures"`
	Consequences []VocabularyItem `json:"consequences" yaml:"consequences"`
	Controls     []VocabularyItem `json:"controls" yaml:"controls"`
}

// TierItems returns the table for the given tier.
func (v *Vocabulary) TierItems(t Tier) []VocabularyItem {
	switch t {
	case TierActivity:
		return v.Activities
	case TierPressure:
		return v.Pressures
	case TierConsequence:
		return v.Consequences
	case TierControl:
		return v.Controls
	}
	return nil
}

// TotalItems returns the item count across all four tiers.
func (v *Vocabulary) TotalItems() int {
	return len(v.Activities) + len(v.Pressures) + len(v.Consequences) + len(v.Controls)
}
