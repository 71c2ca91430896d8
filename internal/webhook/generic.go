package webhook

import (
	"crypto/subtle"
	"net/http"

	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
)

// TokenHeader authenticates generic webhook deliveries.
const TokenHeader = "X-Webhook-Token"

// Generic accepts payloads already in the standard raw email shape.
type Generic struct{}

func (Generic) Name() string { return "generic" }

func (Generic) Parse(payload map[string]any, _ http.Header) (domain.RawEmail, error) {
	from := payload["from"]
	if !present(from) {
		return nil, missing("from")
	}
	to := payload["to"]
	if !present(to) {
		return nil, missing("to")
	}

	date := str(payload, "date")
	if date == "" {
		date = nowISO()
	}

	raw := domain.RawEmail{
		"from":        from,
		"to":          Recipients(to),
		"subject":     subjectOrDefault(str(payload, "subject")),
		"text":        str(payload, "text", "body_text"),
		"html":        str(payload, "html", "body_html"),
		"date":        date,
		"message_id":  str(payload, "message_id"),
		"in_reply_to": str(payload, "in_reply_to"),
		"references":  payload["references"],
	}
	if cc, ok := payload["cc"]; ok {
		raw["cc"] = Recipients(cc)
	}
	if bcc, ok := payload["bcc"]; ok {
		raw["bcc"] = Recipients(bcc)
	}
	return raw, nil
}

// Validate compares X-Webhook-Token with secret. An empty secret accepts everything.
func (Generic) Validate(_ map[string]any, header http.Header, secret string) bool {
	if secret == "" {
		return true
	}
	token := header.Get(TokenHeader)
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
