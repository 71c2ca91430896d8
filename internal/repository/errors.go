package repository

import (
	"fmt"
	"strings"

	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
)

// Common repository errors
var (
	ErrNotFound       = apperrors.ErrNotFound
	ErrDuplicateEntry = apperrors.ErrDuplicateEntry
	ErrInvalidInput   = apperrors.ErrInvalidInput

	// ErrAlreadyDecided is returned when an intake already carries a decision
	ErrAlreadyDecided = fmt.Errorf("intake already decided: %w", apperrors.ErrDuplicateEntry)
)

// isDuplicateKeyError checks if the error is a duplicate key violation
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "23505") // PostgreSQL unique violation code
}
