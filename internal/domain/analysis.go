package domain

import (
	"strings"

	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
)

// Summary is the AI-written digest of an email.
type Summary struct {
	Text      string   `json:"text"`
	KeyPoints []string `json:"key_points"`
}

// NewSummary builds a validated Summary.
func NewSummary(text string, keyPoints []string) (Summary, error) {
	if strings.TrimSpace(text) == "" {
		return Summary{}, apperrors.Validation("Summary text cannot be empty")
	}
	if keyPoints == nil {
		keyPoints = []string{}
	}
	return Summary{Text: text, KeyPoints: keyPoints}, nil
}

// ExtractedEntity is a typed value the AI found in the email.
type ExtractedEntity struct {
	EntityType string  `json:"entity_type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// NewExtractedEntity builds a validated ExtractedEntity.
func NewExtractedEntity(entityType, value string, confidence float64) (ExtractedEntity, error) {
	if strings.TrimSpace(entityType) == "" {
		return ExtractedEntity{}, apperrors.Validation("Entity type cannot be empty")
	}
	if strings.TrimSpace(value) == "" {
		return ExtractedEntity{}, apperrors.Validation("Entity value cannot be empty")
	}
	if confidence < 0 || confidence > 1 {
		return ExtractedEntity{}, apperrors.Validation("Entity confidence must be between 0 and 1, got %v", confidence)
	}
	return ExtractedEntity{EntityType: entityType, Value: value, Confidence: confidence}, nil
}

// Confidence is the AI's overall certainty in its analysis.
type Confidence struct {
	OverallScore float64 `json:"overall_score"`
	Reasoning    string  `json:"reasoning"`
}

// NewConfidence builds a validated Confidence.
func NewConfidence(score float64, reasoning string) (Confidence, error) {
	if score < 0 || score > 1 {
		return Confidence{}, apperrors.Validation("Confidence score must be between 0 and 1, got %v", score)
	}
	if strings.TrimSpace(reasoning) == "" {
		return Confidence{}, apperrors.Validation("Confidence reasoning cannot be empty")
	}
	return Confidence{OverallScore: score, Reasoning: reasoning}, nil
}

// Intent classifies why the sender wrote.
type Intent string

const (
	IntentInquiry   Intent = "inquiry"
	IntentComplaint Intent = "complaint"
	IntentRequest   Intent = "request"
	IntentFollowUp  Intent = "follow_up"
	IntentOther     Intent = "other"
)

// ParseIntent maps a free-form label to an Intent; unknown labels become IntentOther.
func ParseIntent(label string) Intent {
	switch i := Intent(strings.ToLower(strings.TrimSpace(label))); i {
	case IntentInquiry, IntentComplaint, IntentRequest, IntentFollowUp:
		return i
	default:
		return IntentOther
	}
}

// AIIntakeResult is the structured analysis of one email.
type AIIntakeResult struct {
	Summary    Summary           `json:"summary"`
	Intent     Intent            `json:"intent"`
	Entities   []ExtractedEntity `json:"entities"`
	Confidence Confidence        `json:"confidence"`
}

// HighConfidenceEntities returns entities at or above threshold.
func (r *AIIntakeResult) HighConfidenceEntities(threshold float64) []ExtractedEntity {
	out := make([]ExtractedEntity, 0, len(r.Entities))
	for _, e := range r.Entities {
		if e.Confidence >= threshold {
			out = append(out, e)
		}
	}
	return out
}
