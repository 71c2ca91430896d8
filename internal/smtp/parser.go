package smtp

import (
	"io"
	"net/mail"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
)

var fromHeaderRegex = regexp.MustCompile(`^(?:"?([^"<]*)"?\s*)?<?([^<>]+@[^<>]+)>?$`)

// ParsedEmail is the subset of a MIME message the intake pipeline consumes
type ParsedEmail struct {
	SenderEmail string
	SenderName  string
	To          []*mail.Address
	Cc          []*mail.Address
	Subject     string
	Date        string
	MessageID   string
	InReplyTo   string
	References  []string
	BodyText    string
	BodyHTML    string
	Attachments []ParsedAttachment
}

// ParsedAttachment describes an attachment. Content is not retained;
// the raw message stays in the archive.
type ParsedAttachment struct {
	Filename    string
	ContentType string
	Size        int64
}

// ParseEmail parses a MIME message from an io.Reader
func ParseEmail(r io.Reader) (*ParsedEmail, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedEmail{
		Subject:    strings.TrimSpace(env.GetHeader("Subject")),
		Date:       strings.TrimSpace(env.GetHeader("Date")),
		MessageID:  strings.TrimSpace(env.GetHeader("Message-ID")),
		InReplyTo:  strings.TrimSpace(env.GetHeader("In-Reply-To")),
		References: strings.Fields(env.GetHeader("References")),
		BodyText:   env.Text,
		BodyHTML:   env.HTML,
	}

	if from, err := env.AddressList("From"); err == nil && len(from) > 0 {
		parsed.SenderName, parsed.SenderEmail = from[0].Name, from[0].Address
	} else {
		parsed.SenderName, parsed.SenderEmail = parseFromHeader(env.GetHeader("From"))
	}

	// Malformed recipient headers are tolerated; the envelope fills the gap.
	parsed.To, _ = env.AddressList("To")
	parsed.Cc, _ = env.AddressList("Cc")

	for _, att := range env.Attachments {
		parsed.Attachments = append(parsed.Attachments, ParsedAttachment{
			Filename:    att.FileName,
			ContentType: att.ContentType,
			Size:        int64(len(att.Content)),
		})
	}
	for _, att := range env.Inlines {
		if att.FileName != "" {
			parsed.Attachments = append(parsed.Attachments, ParsedAttachment{
				Filename:    att.FileName,
				ContentType: att.ContentType,
				Size:        int64(len(att.Content)),
			})
		}
	}

	return parsed, nil
}

// RawEmail converts the parsed message into the mapping accepted by the
// intake pipeline. envelopeFrom and recipients stand in for missing headers.
func (p *ParsedEmail) RawEmail(envelopeFrom string, recipients []string) domain.RawEmail {
	raw := domain.RawEmail{
		"subject":    p.Subject,
		"text":       p.BodyText,
		"html":       p.BodyHTML,
		"date":       p.Date,
		"message_id": p.MessageID,
	}

	if p.SenderEmail != "" {
		raw["from"] = map[string]any{"email": p.SenderEmail, "name": p.SenderName}
	} else if envelopeFrom != "" {
		raw["from"] = envelopeFrom
	}

	if len(p.To) > 0 {
		raw["to"] = addressList(p.To)
	} else if len(recipients) > 0 {
		to := make([]any, 0, len(recipients))
		for _, r := range recipients {
			to = append(to, r)
		}
		raw["to"] = to
	}
	if len(p.Cc) > 0 {
		raw["cc"] = addressList(p.Cc)
	}
	if p.InReplyTo != "" {
		raw["in_reply_to"] = p.InReplyTo
	}
	if len(p.References) > 0 {
		raw["references"] = p.References
	}

	return raw
}

func addressList(addrs []*mail.Address) []any {
	out := make([]any, 0, len(addrs))
	for _, a := range addrs {
		if a == nil || a.Address == "" {
			continue
		}
		out = append(out, map[string]any{"email": a.Address, "name": a.Name})
	}
	return out
}

// parseFromHeader extracts name and email from a From header that
// net/mail refuses to parse
func parseFromHeader(from string) (name, email string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	matches := fromHeaderRegex.FindStringSubmatch(from)
	if len(matches) >= 3 {
		name = strings.Trim(strings.TrimSpace(matches[1]), `"`)
		email = strings.TrimSpace(matches[2])
	} else {
		email = from
	}

	return name, email
}
