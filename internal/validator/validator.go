// Package validator provides input validation and sanitization for the
// HTTP and SMTP intake boundaries.
package validator

import (
	"errors"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
)

// Validation errors
var (
	ErrInvalidEmail = errors.New("invalid email format")
	ErrInputTooLong = errors.New("input exceeds maximum length")
	ErrEmptyInput   = errors.New("input cannot be empty")
)

// ValidateEmail validates email address format according to RFC 5322.
// Returns nil if valid, or an appropriate error.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if email == "" {
		return ErrEmptyInput
	}

	// RFC 5321 max address length
	if utf8.RuneCountInString(email) > 254 {
		return ErrInputTooLong
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	return nil
}

// Pagination constants
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// ParsePagination reads skip and limit query values. Empty values take the
// defaults; skip must be >= 0 and limit within [1, MaxLimit].
func ParsePagination(skipParam, limitParam string) (skip, limit int, err error) {
	skip, limit = 0, DefaultLimit

	if skipParam != "" {
		skip, err = strconv.Atoi(skipParam)
		if err != nil || skip < 0 {
			return 0, 0, apperrors.Validation("skip must be a non-negative integer")
		}
	}

	if limitParam != "" {
		limit, err = strconv.Atoi(limitParam)
		if err != nil || limit < 1 || limit > MaxLimit {
			return 0, 0, apperrors.Validation("limit must be between 1 and %d", MaxLimit)
		}
	}

	return skip, limit, nil
}

// SanitizeFilename removes dangerous characters from filename.
// Prevents path traversal and removes control characters.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")

	filename = stripControl(filename)
	filename = strings.TrimSpace(filename)

	// common filesystem limit
	if utf8.RuneCountInString(filename) > 255 {
		runes := []rune(filename)
		filename = string(runes[:255])
	}

	if filename == "" {
		return "unnamed"
	}

	return filename
}

// SanitizeString removes control characters, trims whitespace and enforces
// maxLength when it is positive.
func SanitizeString(input string, maxLength int) string {
	input = strings.TrimSpace(stripControl(input))

	if maxLength > 0 && utf8.RuneCountInString(input) > maxLength {
		runes := []rune(input)
		input = string(runes[:maxLength])
	}

	return input
}

// stripControl drops ASCII 0-31 and 127.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
