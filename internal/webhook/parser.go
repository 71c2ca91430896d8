// Package webhook converts provider-specific inbound email payloads into the
// raw email mapping consumed by the intake pipeline.
package webhook

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
)

// DefaultSubject replaces a missing subject.
const DefaultSubject = "(No Subject)"

// Parser turns a provider payload into a raw email and authenticates the delivery.
type Parser interface {
	Name() string
	Parse(payload map[string]any, header http.Header) (domain.RawEmail, error)
	Validate(payload map[string]any, header http.Header, secret string) bool
}

var recipientSplit = regexp.MustCompile(`[,;]\s*`)

// Recipients normalizes a string or list recipient field to a list.
func Recipients(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, 0, len(t))
		for _, s := range t {
			out = append(out, s)
		}
		return out
	case string:
		var out []any
		for _, part := range recipientSplit.Split(t, -1) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return []any{t}
	}
}

// References splits a space separated References header.
func References(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case string:
		fields := strings.Fields(t)
		if len(fields) == 0 {
			return nil
		}
		out := make([]any, 0, len(fields))
		for _, f := range fields {
			out = append(out, f)
		}
		return out
	default:
		return nil
	}
}

// str returns the first non-empty string value among keys.
func str(payload map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := payload[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func subjectOrDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return DefaultSubject
	}
	return s
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func missing(field string) error {
	return apperrors.Validation("Missing required field: '%s'", field)
}
