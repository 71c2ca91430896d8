package smtp

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-smtp"
	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
)

var (
	errNoRecipients = &smtp.SMTPError{
		Code:         503,
		EnhancedCode: smtp.EnhancedCode{5, 5, 1},
		Message:      "No recipients specified",
	}
	errInvalidRecipient = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 1, 3},
		Message:      "Invalid recipient address",
	}
	errUnparsable = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 6, 0},
		Message:      "Failed to parse email",
	}
	errTemporary = &smtp.SMTPError{
		Code:         451,
		EnhancedCode: smtp.EnhancedCode{4, 3, 0},
		Message:      "Temporary error, try again later",
	}
)

// Session implements the go-smtp Session interface
type Session struct {
	backend    *Backend
	remote     string
	from       string
	recipients []string
}

// NewSession creates a new SMTP session
func NewSession(backend *Backend, remote string) *Session {
	return &Session{
		backend:    backend,
		remote:     remote,
		recipients: make([]string, 0),
	}
}

// AuthPlain accepts any credentials; inbound delivery is unauthenticated
func (s *Session) AuthPlain(username, password string) error {
	return nil
}

// Mail handles the MAIL FROM command
func (s *Session) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	s.debug("MAIL FROM", slog.String("from", from))
	return nil
}

// Rcpt handles the RCPT TO command. Every syntactically valid recipient is
// accepted.
func (s *Session) Rcpt(to string, opts *smtp.RcptOptions) error {
	address, err := normalizeAddress(to)
	if err != nil {
		return errInvalidRecipient
	}
	s.recipients = append(s.recipients, address)
	s.debug("RCPT TO", slog.String("to", address))
	return nil
}

// Data receives the message and runs the intake pipeline once for it,
// regardless of the number of recipients.
func (s *Session) Data(r io.Reader) error {
	if len(s.recipients) == 0 {
		return errNoRecipients
	}

	content, err := io.ReadAll(r)
	if err != nil {
		s.logError("failed to read message", err)
		return errTemporary
	}

	parsed, err := ParseEmail(bytes.NewReader(content))
	if err != nil {
		s.logError("failed to parse email", err)
		return errUnparsable
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.backend.processTimeout)
	defer cancel()

	archivePath := s.archive(content)

	messageID := parsed.MessageID
	if s.backend.dedup != nil && messageID != "" {
		isNew, err := s.backend.dedup.IsNew(ctx, messageID)
		switch {
		case err != nil:
			s.logWarn("dedup check failed, processing anyway", err, slog.String("message_id", messageID))
		case !isNew:
			s.backend.sec.DuplicateDelivery("smtp", s.remote, messageID)
			s.discard(archivePath)
			return nil
		}
	}

	record, err := s.backend.processor.Execute(ctx, parsed.RawEmail(s.from, s.recipients))
	if err != nil {
		s.release(messageID)
		return s.reject(err, archivePath)
	}

	if s.backend.logger != nil {
		s.backend.logger.Info("email received",
			slog.String("from", s.from),
			slog.Int("recipients", len(s.recipients)),
			slog.Int("attachments", len(parsed.Attachments)),
			slog.String("message_id", messageID),
			slog.String("archive_path", archivePath),
			slog.Uint64("intake_id", uint64(record.ID)),
			slog.String("status", string(record.Status)))
	}
	return nil
}

// archive stores the raw MIME. Archival is best effort and never fails delivery.
func (s *Session) archive(content []byte) string {
	if s.backend.archive == nil {
		return ""
	}
	path, err := s.backend.archive.Save("inbound.eml", bytes.NewReader(content))
	if err != nil {
		s.logWarn("failed to archive raw message", err)
		return ""
	}
	return path
}

// discard removes the archived copy of a message that will not be processed.
func (s *Session) discard(archivePath string) {
	if s.backend.archive == nil || archivePath == "" {
		return
	}
	if err := s.backend.archive.Delete(archivePath); err != nil {
		s.logWarn("failed to discard archived duplicate", err, slog.String("archive_path", archivePath))
	}
}

// release forgets a Message-ID so the sender's retry is not dropped as a duplicate.
func (s *Session) release(messageID string) {
	if s.backend.dedup == nil || messageID == "" {
		return
	}
	if err := s.backend.dedup.Forget(context.Background(), messageID); err != nil {
		s.logWarn("failed to release dedup key", err, slog.String("message_id", messageID))
	}
}

// reject maps a pipeline error to an SMTP reply.
func (s *Session) reject(err error, archivePath string) error {
	s.logError("failed to process email", err, slog.String("archive_path", archivePath))

	if apperrors.IsInvalidInput(err) {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      apperrors.Message(err),
		}
	}
	return errTemporary
}

// Reset resets the session state
func (s *Session) Reset() {
	s.from = ""
	s.recipients = make([]string, 0)
}

// Logout handles the end of the session
func (s *Session) Logout() error {
	return nil
}

func (s *Session) debug(msg string, attrs ...any) {
	if s.backend.logger != nil {
		s.backend.logger.Debug(msg, attrs...)
	}
}

func (s *Session) logWarn(msg string, err error, attrs ...any) {
	if s.backend.logger != nil {
		s.backend.logger.Warn(msg, append(attrs, slog.Any("error", err))...)
	}
}

func (s *Session) logError(msg string, err error, attrs ...any) {
	if s.backend.logger != nil {
		s.backend.logger.Error(msg, append(attrs, slog.Any("error", err), slog.String("remote_addr", s.remote))...)
	}
}

// normalizeAddress strips angle brackets and lower-cases the domain part
func normalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	address = strings.TrimSuffix(strings.TrimPrefix(address, "<"), ">")

	localPart, domainName, ok := strings.Cut(address, "@")
	if !ok || localPart == "" || domainName == "" || strings.Contains(domainName, "@") {
		return "", apperrors.Validation("invalid email address: %s", address)
	}
	return localPart + "@" + strings.ToLower(domainName), nil
}
