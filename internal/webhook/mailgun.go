package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
)

// Mailgun parses Mailgun Routes form posts.
type Mailgun struct{}

func (Mailgun) Name() string { return "mailgun" }

func (Mailgun) Parse(payload map[string]any, _ http.Header) (domain.RawEmail, error) {
	from := str(payload, "sender", "from")
	to := str(payload, "recipient", "To")
	if from == "" || to == "" {
		return nil, apperrors.Validation("Missing required fields: 'sender'/'from' or 'recipient'/'To'")
	}

	date := nowISO()
	if ts := str(payload, "timestamp"); ts != "" {
		if secs, err := strconv.ParseInt(ts, 10, 64); err == nil {
			date = time.Unix(secs, 0).UTC().Format(time.RFC3339)
		}
	}

	raw := domain.RawEmail{
		"from":    from,
		"to":      Recipients(to),
		"subject": subjectOrDefault(str(payload, "subject", "Subject")),
		// stripped variants already drop quoted replies
		"text":        str(payload, "stripped-text", "body-plain", "body-text"),
		"html":        str(payload, "stripped-html", "body-html"),
		"date":        date,
		"message_id":  str(payload, "Message-Id", "message-id"),
		"in_reply_to": str(payload, "In-Reply-To", "in-reply-to"),
		"references":  References(str(payload, "References", "references")),
	}
	if cc := str(payload, "Cc"); cc != "" {
		raw["cc"] = Recipients(cc)
	}
	return raw, nil
}

// Validate checks signature = HMAC-SHA256(timestamp+token) keyed by the signing key.
func (Mailgun) Validate(payload map[string]any, _ http.Header, secret string) bool {
	if secret == "" {
		return true
	}
	timestamp := str(payload, "timestamp")
	token := str(payload, "token")
	signature := str(payload, "signature")
	if timestamp == "" || token == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(MailgunSignature(secret, timestamp, token)))
}

// MailgunSignature computes the hex signature Mailgun sends with each post.
func MailgunSignature(key, timestamp, token string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(timestamp + token))
	return hex.EncodeToString(mac.Sum(nil))
}
