package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
)

func newTestEmail() *NormalizedEmail {
	return &NormalizedEmail{
		From:    EmailAddress{Email: "sender@example.com", Name: "John Sender"},
		To:      []EmailAddress{{Email: "recipient@example.com"}},
		Headers: EmailHeaders{Subject: "Test Subject", Date: time.Now(), MessageID: "<msg123@example.com>"},
		Body:    EmailBody{RawText: "Test body", NormalizedText: "Test body"},
	}
}

func TestNewEmailAddress(t *testing.T) {
	addr, err := NewEmailAddress(" test@example.com ", "Test User")
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", addr.Email)
	assert.Equal(t, "Test User <test@example.com>", addr.String())

	_, err = NewEmailAddress("invalid", "")
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = NewEmailAddress("", "")
	assert.Error(t, err)
}

func TestEmailHeaders_Validate_RejectsEmptySubject(t *testing.T) {
	err := EmailHeaders{Subject: "  ", Date: time.Now()}.Validate()
	assert.EqualError(t, err, "Email subject cannot be empty")
}

func TestEmailBody_Validate(t *testing.T) {
	assert.NoError(t, EmailBody{RawText: "Plain text"}.Validate())
	assert.NoError(t, EmailBody{RawHTML: "<p>HTML</p>"}.Validate())
	assert.Error(t, EmailBody{}.Validate())
}

func TestNormalizedEmail_Validate(t *testing.T) {
	email := newTestEmail()
	assert.NoError(t, email.Validate())

	email.To = nil
	assert.EqualError(t, email.Validate(), "Email must have at least one recipient")

	email = newTestEmail()
	email.Cc = []EmailAddress{{Email: "broken"}}
	assert.Error(t, email.Validate())
}

func TestNormalizedEmail_IsReply(t *testing.T) {
	tests := []struct {
		name    string
		headers EmailHeaders
		want    bool
	}{
		{"plain subject", EmailHeaders{Subject: "Hello"}, false},
		{"re prefix", EmailHeaders{Subject: "Re: Hello"}, true},
		{"upper RE prefix", EmailHeaders{Subject: "RE: Hello"}, true},
		{"in reply to", EmailHeaders{Subject: "Hello", InReplyTo: "<a@x>"}, true},
		{"references", EmailHeaders{Subject: "Hello", References: []string{"<a@x>"}}, true},
		{"empty references", EmailHeaders{Subject: "Hello", References: []string{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := newTestEmail()
			email.Headers = tt.headers
			assert.Equal(t, tt.want, email.IsReply())
		})
	}
}

func TestNormalizedEmail_ThreadID_Priority(t *testing.T) {
	email := newTestEmail()
	email.Headers = EmailHeaders{
		Subject:    "x",
		MessageID:  "<own@x>",
		InReplyTo:  "<parent@x>",
		References: []string{"<root@x>", "<parent@x>"},
		ThreadID:   "thread-1",
	}
	assert.Equal(t, "thread-1", email.ThreadID())

	email.Headers.ThreadID = ""
	assert.Equal(t, "<root@x>", email.ThreadID())

	email.Headers.References = nil
	assert.Equal(t, "<parent@x>", email.ThreadID())

	email.Headers.InReplyTo = ""
	assert.Equal(t, "<own@x>", email.ThreadID())
}

func TestNormalizedEmail_SenderName(t *testing.T) {
	email := newTestEmail()
	assert.Equal(t, "John Sender", email.SenderName())

	email.From = EmailAddress{Email: "john.doe@example.com"}
	assert.Equal(t, "John Doe", email.SenderName())

	email.From = EmailAddress{Email: "MARY_ann@example.com"}
	assert.Equal(t, "Mary Ann", email.SenderName())
}

func TestNormalizedEmail_PrimaryRecipient(t *testing.T) {
	email := newTestEmail()
	email.To = append(email.To, EmailAddress{Email: "second@example.com"})
	assert.Equal(t, "recipient@example.com", email.PrimaryRecipient().Email)
}
