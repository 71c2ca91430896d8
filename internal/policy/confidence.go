// Package policy maps AI confidence scores to routing decisions.
package policy

const (
	// AutoApproveThreshold is the inclusive lower bound for skipping human review.
	AutoApproveThreshold = 0.85
	// HighConfidenceThreshold marks entities worth surfacing to reviewers.
	HighConfidenceThreshold = 0.70
	// LowConfidenceThreshold marks analyses that deserve extra scrutiny.
	LowConfidenceThreshold = 0.40
)

// ShouldAutoApprove reports whether score skips human review. Scores are not clamped.
func ShouldAutoApprove(score float64) bool {
	return score >= AutoApproveThreshold
}

// RequiresReview is the negation of ShouldAutoApprove.
func RequiresReview(score float64) bool {
	return !ShouldAutoApprove(score)
}

// IsHighConfidence reports whether score reaches HighConfidenceThreshold.
func IsHighConfidence(score float64) bool {
	return score >= HighConfidenceThreshold
}

// IsLowConfidence reports whether score falls below LowConfidenceThreshold.
func IsLowConfidence(score float64) bool {
	return score < LowConfidenceThreshold
}
