package models

// FeedbackAction is a user's verdict on a suggested link.
type FeedbackAction string

const (
	// FeedbackAccepted means the user kept the suggested link.
	FeedbackAccepted FeedbackAction = "accepted"
	// FeedbackRejected means the user discarded the suggested link.
	FeedbackRejected FeedbackAction = "rejected"
)

// FeatureSchema is the fixed, ordered list of engineered features the
// ensemble trains on. Feedback vectors and prediction inputs must match
// this length exactly; a mismatch is an error, never a silent truncation.
var FeatureSchema = []string{
	"similarity",
	"method_word_overlap",
	"method_causal_chain",
	"method_thematic_keyword",
	"method_manual",
	"pair_activity_pressure",
	"pair_pressure_consequence",
	"pair_activity_control",
	"pair_pressure_control",
	"pair_control_consequence",
	"connection_count",
	"thematic_overlap",
	"tier_appropriateness",
	"from_token_count",
	"to_token_count",
	"shared_token_count",
	"from_hierarchy_level",
	"to_hierarchy_level",
}

// FeatureCount is the dimensionality of the feature schema.
const FeatureCount = 18

// FeedbackRecord is one accept/reject decision on a past suggestion.
// Records are append-only; multiple records per link pair are allowed
// (most-recent-wins is caller policy, not enforced here).
type FeedbackRecord struct {
	FromID   string         `json:"from_id"`
	ToID     string         `json:"to_id"`
	Features []float64      `json:"features"`
	Action   FeedbackAction `json:"action"`
}

// Label returns the training label for the record: 1 for accepted, 0 otherwise.
func (r *FeedbackRecord) Label() float64 {
	if r.Action == FeedbackAccepted {
		return 1
	}
	return 0
}
