// Package normalizer converts provider-agnostic raw email mappings into
// validated domain emails with a cleaned text body.
package normalizer

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
)

// DefaultSubject replaces a missing or blank subject.
const DefaultSubject = "(No Subject)"

var (
	// "John Doe <john@example.com>" when net/mail rejects the display name
	namedAddressRegex = regexp.MustCompile(`^(.+?)\s*<(.+?)>$`)
	addressSplitRegex = regexp.MustCompile(`[,;]`)

	dateLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
)

// Normalizer implements the intake pipeline's normalization step
type Normalizer struct {
	cleaner *BodyCleaner
	now     func() time.Time
}

// New creates a Normalizer
func New() *Normalizer {
	return &Normalizer{cleaner: NewBodyCleaner(), now: time.Now}
}

// Normalize validates the raw mapping and builds a NormalizedEmail.
// Recognized keys: from, to, cc, bcc, subject, date, message_id, thread_id,
// in_reply_to, references, html/body_html, text/body_text, received_at.
func (n *Normalizer) Normalize(_ context.Context, raw domain.RawEmail) (*domain.NormalizedEmail, error) {
	from, ok, err := parseAddress(raw["from"])
	if err != nil || !ok {
		return nil, apperrors.Validation("Missing or invalid 'from' address")
	}

	to, err := parseAddressList(raw["to"])
	if err != nil {
		return nil, err
	}
	if len(to) == 0 {
		return nil, apperrors.Validation("Missing or invalid 'to' addresses")
	}

	cc, err := parseAddressList(raw["cc"])
	if err != nil {
		return nil, err
	}
	bcc, err := parseAddressList(raw["bcc"])
	if err != nil {
		return nil, err
	}

	now := n.now()
	subject := strings.TrimSpace(stringValue(raw, "subject"))
	if subject == "" {
		subject = DefaultSubject
	}
	headers := domain.EmailHeaders{
		Subject:    subject,
		Date:       parseDate(raw["date"], now),
		MessageID:  stringValue(raw, "message_id"),
		ThreadID:   stringValue(raw, "thread_id"),
		InReplyTo:  stringValue(raw, "in_reply_to"),
		References: parseReferences(raw["references"]),
	}

	rawHTML := stringValue(raw, "html", "body_html")
	rawText := stringValue(raw, "text", "body_text")
	body := domain.EmailBody{
		RawHTML:        rawHTML,
		RawText:        rawText,
		NormalizedText: n.cleaner.Clean(rawHTML, rawText),
	}

	receivedAt := parseDate(raw["received_at"], now)

	email := &domain.NormalizedEmail{
		From:       from,
		To:         to,
		Cc:         cc,
		Bcc:        bcc,
		Headers:    headers,
		Body:       body,
		ReceivedAt: &receivedAt,
	}
	if err := email.Validate(); err != nil {
		return nil, err
	}
	return email, nil
}

// parseAddress accepts "a@x", "Name <a@x>" or {"email": ..., "name": ...}.
// ok is false when the value is absent or blank.
func parseAddress(v any) (domain.EmailAddress, bool, error) {
	switch val := v.(type) {
	case nil:
		return domain.EmailAddress{}, false, nil
	case map[string]any:
		email, _ := val["email"].(string)
		name, _ := val["name"].(string)
		if strings.TrimSpace(email) == "" {
			return domain.EmailAddress{}, false, nil
		}
		addr, err := domain.NewEmailAddress(email, name)
		return addr, err == nil, err
	case map[string]string:
		return parseAddress(map[string]any{"email": val["email"], "name": val["name"]})
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return domain.EmailAddress{}, false, nil
		}
		if parsed, err := mail.ParseAddress(s); err == nil {
			addr, err := domain.NewEmailAddress(parsed.Address, parsed.Name)
			return addr, err == nil, err
		}
		if m := namedAddressRegex.FindStringSubmatch(s); m != nil {
			addr, err := domain.NewEmailAddress(m[2], strings.Trim(m[1], `"' `))
			return addr, err == nil, err
		}
		addr, err := domain.NewEmailAddress(s, "")
		return addr, err == nil, err
	default:
		return domain.EmailAddress{}, false, apperrors.Validation("Unsupported address value: %v", v)
	}
}

// parseAddressList accepts a list of addresses or a comma/semicolon separated string.
func parseAddressList(v any) ([]domain.EmailAddress, error) {
	var items []any
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if list, err := mail.ParseAddressList(val); err == nil {
			for _, a := range list {
				items = append(items, map[string]any{"email": a.Address, "name": a.Name})
			}
		} else {
			for _, part := range addressSplitRegex.Split(val, -1) {
				items = append(items, part)
			}
		}
	case []string:
		for _, s := range val {
			items = append(items, s)
		}
	case []any:
		items = val
	case map[string]any, map[string]string:
		items = []any{val}
	default:
		return nil, apperrors.Validation("Unsupported address list value: %v", v)
	}

	var out []domain.EmailAddress
	for _, item := range items {
		addr, ok, err := parseAddress(item)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, addr)
		}
	}
	return out, nil
}

func parseDate(v any, fallback time.Time) time.Time {
	switch val := v.(type) {
	case time.Time:
		if !val.IsZero() {
			return val
		}
	case *time.Time:
		if val != nil && !val.IsZero() {
			return *val
		}
	case float64:
		return time.Unix(int64(val), 0).UTC()
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			break
		}
		if t, err := mail.ParseDate(s); err == nil {
			return t
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return fallback
}

func parseReferences(v any) []string {
	var refs []string
	switch val := v.(type) {
	case string:
		refs = strings.Fields(val)
	case []string:
		refs = val
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				refs = append(refs, strings.TrimSpace(s))
			}
		}
	}
	if len(refs) == 0 {
		return nil
	}
	return refs
}

// stringValue returns the first non-empty string found under keys.
func stringValue(raw domain.RawEmail, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
