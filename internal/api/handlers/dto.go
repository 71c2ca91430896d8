package handlers

import (
	"time"
	"unicode/utf8"

	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	"github.com/welldanyogia/webrana-crm-intake/internal/policy"
)

const bodyPreviewLength = 200

// ProcessEmailRequest is the body of POST /api/email-intakes/process
type ProcessEmailRequest struct {
	RawEmail map[string]any `json:"raw_email"`
}

// SubmitDecisionRequest is the body of POST /api/email-intakes/:id/decision
type SubmitDecisionRequest struct {
	ApprovedTaskIndices []int  `json:"approved_task_indices"`
	ApprovedDealIndices []int  `json:"approved_deal_indices"`
	DecidedBy           string `json:"decided_by"`
	Notes               string `json:"notes"`
}

// IntakeListItem is one row of the pending review queue
type IntakeListItem struct {
	ID              uint          `json:"id"`
	Status          domain.Status `json:"status"`
	SenderEmail     string        `json:"sender_email"`
	Subject         string        `json:"subject"`
	ConfidenceScore float64       `json:"confidence_score"`
	Intent          domain.Intent `json:"intent"`
	Summary         string        `json:"summary"`
	TaskCount       int           `json:"task_count"`
	DealCount       int           `json:"deal_count"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// IntakeDetail is the full view of an intake record
type IntakeDetail struct {
	ID                  uint                        `json:"id"`
	Status              domain.Status               `json:"status"`
	SenderEmail         string                      `json:"sender_email"`
	SenderName          string                      `json:"sender_name"`
	Subject             string                      `json:"subject"`
	ThreadID            string                      `json:"thread_id"`
	IsReply             bool                        `json:"is_reply"`
	BodyPreview         string                      `json:"body_preview"`
	Summary             string                      `json:"summary"`
	KeyPoints           []string                    `json:"key_points"`
	Intent              domain.Intent               `json:"intent"`
	Entities            []domain.ExtractedEntity    `json:"entities"`
	KeyEntities         []domain.ExtractedEntity    `json:"key_entities"`
	ConfidenceScore     float64                     `json:"confidence_score"`
	HighConfidence      bool                        `json:"high_confidence"`
	LowConfidence       bool                        `json:"low_confidence"`
	ConfidenceReasoning string                      `json:"confidence_reasoning"`
	TaskRecommendations []domain.TaskRecommendation `json:"task_recommendations"`
	DealRecommendations []domain.DealRecommendation `json:"deal_recommendations"`
	Decision            *domain.IntakeDecision      `json:"decision,omitempty"`
	CreatedAt           time.Time                   `json:"created_at"`
	UpdatedAt           time.Time                   `json:"updated_at"`
}

func toListItem(r *domain.IntakeRecord) IntakeListItem {
	return IntakeListItem{
		ID:              r.ID,
		Status:          r.Status,
		SenderEmail:     r.SenderEmail(),
		Subject:         r.Subject(),
		ConfidenceScore: r.ConfidenceScore(),
		Intent:          r.AIResult.Intent,
		Summary:         r.AIResult.Summary.Text,
		TaskCount:       len(r.Recommendations.Tasks),
		DealCount:       len(r.Recommendations.Deals),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func toDetail(r *domain.IntakeRecord) IntakeDetail {
	entities := r.AIResult.Entities
	if entities == nil {
		entities = []domain.ExtractedEntity{}
	}
	tasks := r.Recommendations.Tasks
	if tasks == nil {
		tasks = []domain.TaskRecommendation{}
	}
	deals := r.Recommendations.Deals
	if deals == nil {
		deals = []domain.DealRecommendation{}
	}
	keyPoints := r.AIResult.Summary.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}
	keyEntities := r.AIResult.HighConfidenceEntities(policy.HighConfidenceThreshold)
	score := r.ConfidenceScore()

	return IntakeDetail{
		ID:                  r.ID,
		Status:              r.Status,
		SenderEmail:         r.SenderEmail(),
		SenderName:          r.NormalizedEmail.SenderName(),
		Subject:             r.Subject(),
		ThreadID:            r.NormalizedEmail.ThreadID(),
		IsReply:             r.NormalizedEmail.IsReply(),
		BodyPreview:         preview(r.NormalizedEmail.Body.NormalizedText, bodyPreviewLength),
		Summary:             r.AIResult.Summary.Text,
		KeyPoints:           keyPoints,
		Intent:              r.AIResult.Intent,
		Entities:            entities,
		KeyEntities:         keyEntities,
		ConfidenceScore:     score,
		HighConfidence:      policy.IsHighConfidence(score),
		LowConfidence:       policy.IsLowConfidence(score),
		ConfidenceReasoning: r.AIResult.Confidence.Reasoning,
		TaskRecommendations: tasks,
		DealRecommendations: deals,
		Decision:            r.Decision,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

// preview cuts s to n runes, appending "..." when truncated.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
