package webhook

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
)

// SendGridValidationHeader carries the optional shared secret for Inbound Parse.
const SendGridValidationHeader = "X-SendGrid-Validation"

// SendGrid parses SendGrid Inbound Parse form posts.
type SendGrid struct{}

func (SendGrid) Name() string { return "sendgrid" }

func (SendGrid) Parse(payload map[string]any, _ http.Header) (domain.RawEmail, error) {
	from := str(payload, "from")
	to := str(payload, "to")
	if from == "" || to == "" {
		return nil, apperrors.Validation("Missing required fields: 'from' or 'to'")
	}

	headers := map[string]any{}
	if h := str(payload, "headers"); h != "" {
		// non JSON headers are ignored
		_ = json.Unmarshal([]byte(h), &headers)
	}

	messageID := str(headers, "Message-ID", "Message-Id")
	if messageID == "" {
		messageID = contentMessageID(payload, str(headers, "Date"))
	}

	date := str(headers, "Date")
	if date == "" {
		date = nowISO()
	}

	raw := domain.RawEmail{
		"from":        from,
		"to":          Recipients(to),
		"subject":     subjectOrDefault(str(payload, "subject")),
		"text":        str(payload, "text"),
		"html":        str(payload, "html"),
		"date":        date,
		"message_id":  messageID,
		"in_reply_to": str(headers, "In-Reply-To"),
		"references":  References(str(headers, "References")),
	}
	if cc := str(payload, "cc"); cc != "" {
		raw["cc"] = Recipients(cc)
	}
	return raw, nil
}

// contentMessageID derives a stand-in Message-ID from the envelope and the
// message content. A redelivery of the same post hashes to the same id while
// two different messages from one sender do not collide.
func contentMessageID(payload map[string]any, date string) string {
	envelopeFrom := str(payload, "from")
	if env := str(payload, "envelope"); env != "" {
		var envelope map[string]any
		if json.Unmarshal([]byte(env), &envelope) == nil {
			if f := str(envelope, "from"); f != "" {
				envelopeFrom = f
			}
		}
	}

	h := sha256.New()
	for _, part := range []string{
		envelopeFrom,
		str(payload, "to"),
		str(payload, "cc"),
		str(payload, "subject"),
		date,
		str(payload, "text"),
		str(payload, "html"),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("<%s@sendgrid>", hex.EncodeToString(h.Sum(nil))[:32])
}

// Validate compares X-SendGrid-Validation with secret. Inbound Parse has no
// signature of its own, so an empty secret accepts everything.
func (SendGrid) Validate(_ map[string]any, header http.Header, secret string) bool {
	if secret == "" {
		return true
	}
	v := header.Get(SendGridValidationHeader)
	if v == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(v), []byte(secret)) == 1
}
