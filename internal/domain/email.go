// Package domain holds the intake pipeline's entities and value objects.
package domain

import (
	"strings"
	"time"
	"unicode"

	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
)

// RawEmail is a provider-agnostic email mapping as produced by webhook parsers,
// the SMTP ingress or direct API callers.
type RawEmail map[string]any

// EmailAddress is an address with an optional display name.
type EmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// NewEmailAddress builds a validated EmailAddress.
func NewEmailAddress(email, name string) (EmailAddress, error) {
	addr := EmailAddress{Email: strings.TrimSpace(email), Name: strings.TrimSpace(name)}
	if err := addr.Validate(); err != nil {
		return EmailAddress{}, err
	}
	return addr, nil
}

// Validate checks the address invariants.
func (a EmailAddress) Validate() error {
	if a.Email == "" || !strings.Contains(a.Email, "@") {
		return apperrors.Validation("Invalid email address: %s", a.Email)
	}
	return nil
}

// String renders the address in "Name <email>" form when a name is present.
func (a EmailAddress) String() string {
	if a.Name != "" {
		return a.Name + " <" + a.Email + ">"
	}
	return a.Email
}

// LocalPart returns the part of the address before '@'.
func (a EmailAddress) LocalPart() string {
	local, _, _ := strings.Cut(a.Email, "@")
	return local
}

// EmailHeaders carries the subset of headers the pipeline uses.
type EmailHeaders struct {
	Subject    string    `json:"subject"`
	Date       time.Time `json:"date"`
	MessageID  string    `json:"message_id,omitempty"`
	ThreadID   string    `json:"thread_id,omitempty"`
	InReplyTo  string    `json:"in_reply_to,omitempty"`
	References []string  `json:"references,omitempty"`
}

// Validate checks the header invariants.
func (h EmailHeaders) Validate() error {
	if strings.TrimSpace(h.Subject) == "" {
		return apperrors.Validation("Email subject cannot be empty")
	}
	return nil
}

// EmailBody holds the original bodies and the cleaned text.
type EmailBody struct {
	RawHTML        string `json:"raw_html,omitempty"`
	RawText        string `json:"raw_text,omitempty"`
	NormalizedText string `json:"normalized_text,omitempty"`
}

// Validate checks that at least one body representation is present.
func (b EmailBody) Validate() error {
	if b.RawHTML == "" && b.RawText == "" && b.NormalizedText == "" {
		return apperrors.Validation("Email body must have at least one content field")
	}
	return nil
}

// Text returns the best available plain-text rendition of the body.
func (b EmailBody) Text() string {
	switch {
	case b.NormalizedText != "":
		return b.NormalizedText
	case b.RawText != "":
		return b.RawText
	default:
		return b.RawHTML
	}
}

// NormalizedEmail is the validated, provider-independent email entity.
type NormalizedEmail struct {
	From       EmailAddress   `json:"from_address"`
	To         []EmailAddress `json:"to_addresses"`
	Cc         []EmailAddress `json:"cc_addresses,omitempty"`
	Bcc        []EmailAddress `json:"bcc_addresses,omitempty"`
	Headers    EmailHeaders   `json:"headers"`
	Body       EmailBody      `json:"body"`
	ReceivedAt *time.Time     `json:"received_at,omitempty"`
}

// Validate checks every invariant of the aggregate.
func (e *NormalizedEmail) Validate() error {
	if err := e.From.Validate(); err != nil {
		return err
	}
	if len(e.To) == 0 {
		return apperrors.Validation("Email must have at least one recipient")
	}
	for _, group := range [][]EmailAddress{e.To, e.Cc, e.Bcc} {
		for _, addr := range group {
			if err := addr.Validate(); err != nil {
				return err
			}
		}
	}
	if err := e.Headers.Validate(); err != nil {
		return err
	}
	return e.Body.Validate()
}

// SenderEmail returns the sender's address.
func (e *NormalizedEmail) SenderEmail() string {
	return e.From.Email
}

// Subject returns the subject header.
func (e *NormalizedEmail) Subject() string {
	return e.Headers.Subject
}

// IsReply reports whether the email answers an earlier message.
func (e *NormalizedEmail) IsReply() bool {
	if strings.HasPrefix(strings.ToLower(e.Headers.Subject), "re:") {
		return true
	}
	return e.Headers.InReplyTo != "" || len(e.Headers.References) > 0
}

// ThreadID resolves the conversation identifier.
// Priority: explicit thread id, first reference, in-reply-to, own message id.
func (e *NormalizedEmail) ThreadID() string {
	switch {
	case e.Headers.ThreadID != "":
		return e.Headers.ThreadID
	case len(e.Headers.References) > 0:
		return e.Headers.References[0]
	case e.Headers.InReplyTo != "":
		return e.Headers.InReplyTo
	default:
		return e.Headers.MessageID
	}
}

// SenderName returns the display name, falling back to the title-cased
// local part of the address.
func (e *NormalizedEmail) SenderName() string {
	if e.From.Name != "" {
		return e.From.Name
	}
	local := strings.NewReplacer(".", " ", "_", " ").Replace(e.From.LocalPart())
	return titleCase(local)
}

// PrimaryRecipient returns the first To address.
func (e *NormalizedEmail) PrimaryRecipient() EmailAddress {
	if len(e.To) == 0 {
		return EmailAddress{}
	}
	return e.To[0]
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
		case isLetter:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return b.String()
}

// CRMContext is what the AI engine learns about the sender.
type CRMContext struct {
	Contact            map[string]any   `json:"contact"`
	RecentInteractions []map[string]any `json:"recent_interactions"`
	IsExistingContact  bool             `json:"is_existing_contact"`
}
