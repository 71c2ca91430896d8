package smtp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== ParseEmail Tests ====================

// TestParseEmail_SimpleText tests parsing a simple text email
func TestParseEmail_SimpleText(t *testing.T) {
	// Arrange
	emailContent := `From: sender@example.com
To: receiver@test.com
Subject: Simple Text Email
Message-ID: <abc123@example.com>
Date: Mon, 02 Jan 2006 15:04:05 -0700
Content-Type: text/plain; charset=utf-8

Hello, this is a simple text email.`

	// Act
	parsed, err := ParseEmail(strings.NewReader(emailContent))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", parsed.SenderEmail)
	assert.Equal(t, "Simple Text Email", parsed.Subject)
	assert.Equal(t, "<abc123@example.com>", parsed.MessageID)
	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 -0700", parsed.Date)
	assert.Contains(t, parsed.BodyText, "Hello, this is a simple text email")
	assert.Empty(t, parsed.BodyHTML)
	assert.Empty(t, parsed.Attachments)
}

// TestParseEmail_HTMLEmail tests parsing an HTML email
func TestParseEmail_HTMLEmail(t *testing.T) {
	// Arrange
	emailContent := `From: sender@example.com
To: receiver@test.com
Subject: HTML Email
Content-Type: text/html; charset=utf-8

<html><body><h1>Hello World</h1><p>This is an HTML email.</p></body></html>`

	// Act
	parsed, err := ParseEmail(strings.NewReader(emailContent))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "HTML Email", parsed.Subject)
	assert.Contains(t, parsed.BodyHTML, "<h1>Hello World</h1>")
}

// TestParseEmail_MultipartAlternative tests parsing a multipart/alternative email
func TestParseEmail_MultipartAlternative(t *testing.T) {
	// Arrange
	emailContent := `From: sender@example.com
To: receiver@test.com
Subject: Multipart Alternative
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="boundary123"

--boundary123
Content-Type: text/plain; charset=utf-8

Plain text version.

--boundary123
Content-Type: text/html; charset=utf-8

<html><body><p>HTML version.</p></body></html>

--boundary123--`

	// Act
	parsed, err := ParseEmail(strings.NewReader(emailContent))

	// Assert
	require.NoError(t, err)
	assert.Contains(t, parsed.BodyText, "Plain text version")
	assert.Contains(t, parsed.BodyHTML, "HTML version")
}

// TestParseEmail_MultipleAttachments tests attachment metadata extraction
func TestParseEmail_MultipleAttachments(t *testing.T) {
	// Arrange
	emailContent := `From: sender@example.com
To: receiver@test.com
Subject: Multiple Attachments
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="boundary789"

--boundary789
Content-Type: text/plain; charset=utf-8

Email with multiple attachments.

--boundary789
Content-Type: application/pdf; name="doc1.pdf"
Content-Disposition: attachment; filename="doc1.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQ=

--boundary789
Content-Type: image/png; name="image.png"
Content-Disposition: attachment; filename="image.png"
Content-Transfer-Encoding: base64

iVBORw0KGgo=

--boundary789--`

	// Act
	parsed, err := ParseEmail(strings.NewReader(emailContent))

	// Assert
	require.NoError(t, err)
	require.Len(t, parsed.Attachments, 2)
	assert.Equal(t, "doc1.pdf", parsed.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", parsed.Attachments[0].ContentType)
	assert.Greater(t, parsed.Attachments[0].Size, int64(0))
	assert.Equal(t, "image.png", parsed.Attachments[1].Filename)
}

// TestParseEmail_Addresses tests From, To and Cc extraction
func TestParseEmail_Addresses(t *testing.T) {
	// Arrange
	emailContent := `From: "Test Sender" <sender@example.com>
To: Sales <sales@test.com>, support@test.com
Cc: boss@test.com
Subject: Test
Content-Type: text/plain

Body`

	// Act
	parsed, err := ParseEmail(strings.NewReader(emailContent))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sender@example.com", parsed.SenderEmail)
	assert.Equal(t, "Test Sender", parsed.SenderName)
	require.Len(t, parsed.To, 2)
	assert.Equal(t, "sales@test.com", parsed.To[0].Address)
	assert.Equal(t, "Sales", parsed.To[0].Name)
	assert.Equal(t, "support@test.com", parsed.To[1].Address)
	require.Len(t, parsed.Cc, 1)
	assert.Equal(t, "boss@test.com", parsed.Cc[0].Address)
}

// TestParseEmail_ThreadHeaders tests In-Reply-To and References extraction
func TestParseEmail_ThreadHeaders(t *testing.T) {
	// Arrange
	emailContent := `From: sender@example.com
To: receiver@test.com
Subject: Re: Quote
In-Reply-To: <parent@example.com>
References: <root@example.com> <parent@example.com>
Content-Type: text/plain

Sounds good.`

	// Act
	parsed, err := ParseEmail(strings.NewReader(emailContent))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "<parent@example.com>", parsed.InReplyTo)
	assert.Equal(t, []string{"<root@example.com>", "<parent@example.com>"}, parsed.References)
}

// ==================== RawEmail Tests ====================

// TestParsedEmail_RawEmail tests conversion to the pipeline mapping
func TestParsedEmail_RawEmail(t *testing.T) {
	// Arrange
	emailContent := `From: "Test Sender" <sender@example.com>
To: receiver@test.com
Subject: Pricing
Message-ID: <m1@example.com>
In-Reply-To: <m0@example.com>
Content-Type: text/plain

Please send pricing.`

	parsed, err := ParseEmail(strings.NewReader(emailContent))
	require.NoError(t, err)

	// Act
	raw := parsed.RawEmail("bounce@example.com", []string{"other@test.com"})

	// Assert
	assert.Equal(t, map[string]any{"email": "sender@example.com", "name": "Test Sender"}, raw["from"])
	assert.Equal(t, []any{map[string]any{"email": "receiver@test.com", "name": ""}}, raw["to"])
	assert.Equal(t, "Pricing", raw["subject"])
	assert.Equal(t, "<m1@example.com>", raw["message_id"])
	assert.Equal(t, "<m0@example.com>", raw["in_reply_to"])
	assert.Contains(t, raw["text"], "Please send pricing.")
	assert.NotContains(t, raw, "cc")
	assert.NotContains(t, raw, "references")
}

// TestParsedEmail_RawEmail_EnvelopeFallback tests that the envelope fills missing headers
func TestParsedEmail_RawEmail_EnvelopeFallback(t *testing.T) {
	// Arrange
	parsed := &ParsedEmail{Subject: "No headers", BodyText: "hi"}

	// Act
	raw := parsed.RawEmail("envelope@example.com", []string{"a@test.com", "b@test.com"})

	// Assert
	assert.Equal(t, "envelope@example.com", raw["from"])
	assert.Equal(t, []any{"a@test.com", "b@test.com"}, raw["to"])
}

// ==================== parseFromHeader Tests ====================

func TestParseFromHeader(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantName  string
		wantEmail string
	}{
		{"email only", "sender@example.com", "", "sender@example.com"},
		{"name and email", "Test Sender <sender@example.com>", "Test Sender", "sender@example.com"},
		{"quoted name", `"Test Sender" <sender@example.com>`, "Test Sender", "sender@example.com"},
		{"empty", "", "", ""},
		{"surrounding whitespace", "  Test Sender  <sender@example.com>  ", "Test Sender", "sender@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, email := parseFromHeader(tt.header)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantEmail, email)
		})
	}
}

// ==================== normalizeAddress Tests ====================

func TestNormalizeAddress(t *testing.T) {
	addr, err := normalizeAddress("<Sales@Example.COM>")
	require.NoError(t, err)
	assert.Equal(t, "Sales@example.com", addr)

	for _, bad := range []string{"", "no-at-sign", "@example.com", "user@", "a@b@c"} {
		_, err := normalizeAddress(bad)
		assert.Error(t, err, bad)
	}
}
