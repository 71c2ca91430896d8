package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		// Valid emails
		{"valid simple email", "test@example.com", nil},
		{"valid with subdomain", "user@mail.example.com", nil},
		{"valid with plus", "user+tag@example.com", nil},
		{"valid with dots", "first.last@example.com", nil},
		{"valid uppercase normalized", "TEST@EXAMPLE.COM", nil},
		{"valid with whitespace trimmed", "  test@example.com  ", nil},

		// Invalid emails
		{"empty string", "", ErrEmptyInput},
		{"whitespace only", "   ", ErrEmptyInput},
		{"missing @", "testexample.com", ErrInvalidEmail},
		{"missing domain", "test@", ErrInvalidEmail},
		{"missing local part", "@example.com", ErrInvalidEmail},
		{"double @", "test@@example.com", ErrInvalidEmail},
		{"invalid chars", "test<>@example.com", ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail_TooLong(t *testing.T) {
	// Create email longer than 254 characters
	// Need to ensure total length > 254
	longLocal := strings.Repeat("a", 250)
	longEmail := longLocal + "@example.com" // Total: 250 + 12 = 262 chars
	err := ValidateEmail(longEmail)
	assert.ErrorIs(t, err, ErrInputTooLong)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal filename", "document.pdf", "document.pdf"},
		{"with spaces", "my document.pdf", "my document.pdf"},
		{"path traversal dots", "../../../etc/passwd", "______etc_passwd"},
		{"forward slash", "path/to/file.txt", "path_to_file.txt"},
		{"backslash", "path\\to\\file.txt", "path_to_file.txt"},
		{"control chars", "file\x00name.txt", "filename.txt"},
		{"tab character", "file\tname.txt", "filename.txt"},
		{"newline", "file\nname.txt", "filename.txt"},
		{"empty string", "", "unnamed"},
		{"whitespace only", "   ", "unnamed"},
		{"double dots", "file..name", "file_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeFilename(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSanitizeFilename_LongFilename(t *testing.T) {
	// Create filename longer than 255 characters
	longFilename := strings.Repeat("a", 300) + ".txt"
	result := SanitizeFilename(longFilename)
	assert.LessOrEqual(t, len(result), 255)
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		expected  string
	}{
		{"normal string", "hello world", 0, "hello world"},
		{"with control chars", "hello\x00world", 0, "helloworld"},
		{"with tab", "hello\tworld", 0, "helloworld"},
		{"with newline", "hello\nworld", 0, "helloworld"},
		{"trim whitespace", "  hello  ", 0, "hello"},
		{"enforce max length", "hello world", 5, "hello"},
		{"max length zero means no limit", "hello world", 0, "hello world"},
		{"empty string", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeString(tt.input, tt.maxLength)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name      string
		skip      string
		limit     string
		wantSkip  int
		wantLimit int
		wantErr   bool
	}{
		{"defaults", "", "", 0, DefaultLimit, false},
		{"explicit values", "20", "10", 20, 10, false},
		{"max limit", "0", "100", 0, MaxLimit, false},
		{"negative skip", "-1", "", 0, 0, true},
		{"non numeric skip", "abc", "", 0, 0, true},
		{"zero limit", "", "0", 0, 0, true},
		{"limit above max", "", "101", 0, 0, true},
		{"non numeric limit", "", "ten", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skip, limit, err := ParsePagination(tt.skip, tt.limit)
			if tt.wantErr {
				assert.True(t, apperrors.IsInvalidInput(err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantSkip, skip)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}
