package normalizer

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	invisibleBlockRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`),
		regexp.MustCompile(`(?is)<title[^>]*>.*?</title>`),
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
	}
	lineBreakTagRegex = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|tr|h[1-6]|blockquote|table)\s*>`)
	quoteHeaderRegex  = regexp.MustCompile(`^On .+ wrote:`)

	signatureRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\n--\s*\n`),
		regexp.MustCompile(`(?i)\n_{3,}\n`),
		regexp.MustCompile(`(?i)\nSent from my`),
		regexp.MustCompile(`(?i)\nGet Outlook for`),
	}
)

// BodyCleaner extracts the author's own text from an email body.
type BodyCleaner struct {
	policy *bluemonday.Policy
}

// NewBodyCleaner creates a cleaner that strips all markup.
func NewBodyCleaner() *BodyCleaner {
	return &BodyCleaner{policy: bluemonday.StrictPolicy()}
}

// Clean prefers HTML over plain text, then drops quoted replies and signatures.
func (c *BodyCleaner) Clean(rawHTML, rawText string) string {
	var text string
	switch {
	case strings.TrimSpace(rawHTML) != "":
		text = c.htmlToText(rawHTML)
	case rawText != "":
		text = strings.ReplaceAll(rawText, "\r\n", "\n")
	default:
		return ""
	}
	text = removeQuotedReplies(text)
	text = removeSignature(text)
	return strings.TrimSpace(text)
}

func (c *BodyCleaner) htmlToText(s string) string {
	for _, re := range invisibleBlockRegexes {
		s = re.ReplaceAllString(s, "")
	}
	s = lineBreakTagRegex.ReplaceAllString(s, "\n")
	s = html.UnescapeString(c.policy.Sanitize(s))

	var chunks []string
	for _, line := range strings.Split(s, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}
	return strings.Join(chunks, "\n")
}

// removeQuotedReplies drops quoted blocks; a blank line ends a quote.
func removeQuotedReplies(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	inQuote := false
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(stripped, ">"),
			quoteHeaderRegex.MatchString(stripped),
			strings.Contains(stripped, "-----Original Message-----"):
			inQuote = true
		case inQuote && stripped == "":
			inQuote = false
		case !inQuote:
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// removeSignature cuts the text at the earliest signature marker.
func removeSignature(text string) string {
	for _, re := range signatureRegexes {
		if loc := re.FindStringIndex(text); loc != nil {
			text = text[:loc[0]]
		}
	}
	return strings.TrimSpace(text)
}
