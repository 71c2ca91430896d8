package ai

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
)

// Defaults applied when the LLM omits a field.
const (
	defaultSummary          = "No summary provided"
	defaultReasoning        = "No reasoning provided"
	defaultScore            = 0.5
	defaultEntityType       = "UNKNOWN"
	defaultEntityConfidence = 0.5
	defaultPriority         = domain.PriorityMedium
	defaultDealStage        = "qualification"
)

// number accepts both JSON numbers and numeric strings.
type number struct {
	value float64
	set   bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return err
		}
		n.value, n.set = f, true
		return nil
	}
	if err := json.Unmarshal(b, &n.value); err != nil {
		return err
	}
	n.set = true
	return nil
}

func (n number) or(fallback float64) float64 {
	if n.set {
		return n.value
	}
	return fallback
}

type llmEntity struct {
	Type       string `json:"type"`
	Value      string `json:"value"`
	Confidence number `json:"confidence"`
}

type llmTask struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"due_date"`
}

type llmDeal struct {
	ContactEmail string `json:"contact_email"`
	DealStage    string `json:"deal_stage"`
	Value        number `json:"value"`
	Notes        string `json:"notes"`
}

type llmResponse struct {
	Summary    string         `json:"summary"`
	KeyPoints  []string       `json:"key_points"`
	Intent     string         `json:"intent"`
	Entities   []llmEntity    `json:"entities"`
	Tasks      []llmTask      `json:"task_recommendations"`
	Deals      []llmDeal      `json:"deal_recommendations"`
	Confidence *llmConfidence `json:"confidence"`
}

type llmConfidence struct {
	OverallScore number `json:"overall_score"`
	Reasoning    string `json:"reasoning"`
}

// extractJSON returns the text between the first '{' and the last '}'.
func extractJSON(content string) (string, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}

// parseResponse maps an LLM reply onto the domain. Invalid entities, tasks
// and deals are dropped one by one and counted in skipped; an invalid
// summary or overall confidence rejects the whole reply.
func parseResponse(content string, email *domain.NormalizedEmail) (*domain.AIIntakeResult, *domain.Recommendations, int, error) {
	raw, ok := extractJSON(content)
	if !ok {
		return nil, nil, 0, apperrors.Validation("LLM did not return valid JSON")
	}
	var resp llmResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, nil, 0, apperrors.Validation("LLM did not return valid JSON: %v", err)
	}

	summaryText := resp.Summary
	if strings.TrimSpace(summaryText) == "" {
		summaryText = defaultSummary
	}
	summary, err := domain.NewSummary(summaryText, resp.KeyPoints)
	if err != nil {
		return nil, nil, 0, err
	}

	score, reasoning := defaultScore, defaultReasoning
	if resp.Confidence != nil {
		score = resp.Confidence.OverallScore.or(defaultScore)
		if strings.TrimSpace(resp.Confidence.Reasoning) != "" {
			reasoning = resp.Confidence.Reasoning
		}
	}
	confidence, err := domain.NewConfidence(score, reasoning)
	if err != nil {
		return nil, nil, 0, err
	}

	skipped := 0

	entities := make([]domain.ExtractedEntity, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		entityType := e.Type
		if entityType == "" {
			entityType = defaultEntityType
		}
		entity, err := domain.NewExtractedEntity(entityType, e.Value, e.Confidence.or(defaultEntityConfidence))
		if err != nil {
			skipped++
			continue
		}
		entities = append(entities, entity)
	}

	recs := domain.EmptyRecommendations()
	for _, t := range resp.Tasks {
		priority := domain.Priority(strings.ToLower(strings.TrimSpace(t.Priority)))
		if priority == "" {
			priority = defaultPriority
		}
		task := domain.TaskRecommendation{
			Title:       t.Title,
			Description: t.Description,
			Priority:    priority,
		}
		if t.DueDate != nil {
			task.DueDate = *t.DueDate
		}
		if err := task.Validate(); err != nil {
			skipped++
			continue
		}
		recs.Tasks = append(recs.Tasks, task)
	}

	for _, d := range resp.Deals {
		deal := domain.DealRecommendation{
			ContactEmail: d.ContactEmail,
			DealStage:    d.DealStage,
			Value:        d.Value.or(0),
			Notes:        d.Notes,
		}
		if deal.ContactEmail == "" {
			deal.ContactEmail = email.SenderEmail()
		}
		if deal.DealStage == "" {
			deal.DealStage = defaultDealStage
		}
		if err := deal.Validate(); err != nil {
			skipped++
			continue
		}
		recs.Deals = append(recs.Deals, deal)
	}

	return &domain.AIIntakeResult{
		Summary:    summary,
		Intent:     domain.ParseIntent(resp.Intent),
		Entities:   entities,
		Confidence: confidence,
	}, recs, skipped, nil
}
