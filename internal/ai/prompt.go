package ai

import (
	"fmt"
	"strings"

	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
)

// promptInteractionLimit caps the interactions quoted in the prompt.
const promptInteractionLimit = 3

func buildPrompt(email *domain.NormalizedEmail, crm domain.CRMContext) string {
	sender := email.SenderEmail()

	var ctx strings.Builder
	if crm.IsExistingContact {
		ctx.WriteString("\n**Existing Contact:**\n")
		fmt.Fprintf(&ctx, "- Name: %s\n", valueOr(crm.Contact["name"], email.SenderName()))
		fmt.Fprintf(&ctx, "- Company: %s\n", valueOr(crm.Contact["company"], "Unknown"))

		if n := len(crm.RecentInteractions); n > 0 {
			fmt.Fprintf(&ctx, "\n**Recent Interactions:** (%d total)\n", n)
			for i, interaction := range crm.RecentInteractions {
				if i == promptInteractionLimit {
					break
				}
				fmt.Fprintf(&ctx, "- %s: %s (%s)\n",
					valueOr(interaction["type"], "interaction"),
					valueOr(interaction["title"], "N/A"),
					valueOr(interaction["occurred_at"], "unknown date"),
				)
			}
		}
	} else {
		ctx.WriteString("\n**New Contact:** No previous history in CRM.\n")
	}

	thread := "New conversation"
	if email.IsReply() {
		thread = "Reply in thread " + valueOr(email.ThreadID(), "unknown")
	}

	return fmt.Sprintf(promptTemplate,
		sender,
		valueOr(email.PrimaryRecipient().Email, "unknown"),
		email.Subject(),
		thread,
		email.Body.Text(),
		ctx.String(),
		sender,
	)
}

func valueOr(v any, fallback string) string {
	if v == nil {
		return fallback
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return fallback
	}
	return s
}

const promptTemplate = `Analyze this customer email and provide structured output.

**Email:**
From: %s
To: %s
Subject: %s
Thread: %s

Body:
%s

**CRM Context:**%s

**Analysis Required:**

1. **Summary**: Provide a concise 1-2 sentence summary of the email.

2. **Key Points**: List 2-4 key points or requests.

3. **Intent**: Classify the primary intent as one of:
   - inquiry (asking for information)
   - complaint (expressing dissatisfaction)
   - request (requesting action/service)
   - follow_up (following up on previous communication)
   - other

4. **Entities**: Extract important entities (PERSON, DATE, MONEY, ORGANIZATION).
   For each entity, provide: type, value, confidence (0.0-1.0)

5. **Task Recommendations**: Suggest 0-3 tasks: title, description,
   priority (low/medium/high), due_date (ISO date like "2026-01-20", or null)

6. **Deal Recommendations**: Suggest 0-1 deals: contact_email (use the sender's email),
   deal_stage (qualification/proposal/negotiation), value (estimated amount), notes

7. **Confidence**: Provide an overall confidence score (0.0-1.0) and reasoning.
   - Above 0.85: very clear, actionable email
   - 0.70-0.84: clear intent, minor ambiguity
   - Below 0.70: unclear or complex, needs human review

**Output Format (JSON):**
{
  "summary": "...",
  "key_points": ["point1", "point2"],
  "intent": "inquiry|complaint|request|follow_up|other",
  "entities": [{"type": "PERSON", "value": "John Doe", "confidence": 0.9}],
  "task_recommendations": [{"title": "...", "description": "...", "priority": "high", "due_date": "2026-01-20"}],
  "deal_recommendations": [{"contact_email": "%s", "deal_stage": "qualification", "value": 5000.0, "notes": "..."}],
  "confidence": {"overall_score": 0.85, "reasoning": "..."}
}

Respond with ONLY valid JSON, no additional text.
`
