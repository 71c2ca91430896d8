// Package storage archives raw inbound MIME messages on the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/welldanyogia/webrana-crm-intake/internal/validator"
)

// Archive errors
var (
	ErrPathTraversal   = errors.New("path traversal detected")
	ErrMessageTooLarge = errors.New("message exceeds size limit")
)

// MaxMessageSize is the largest raw message the archive accepts (25 MB)
const MaxMessageSize = 25 * 1024 * 1024

const defaultExt = ".eml"

// RawArchive stores raw messages and returns their archive-relative path
type RawArchive interface {
	Save(filename string, content io.Reader) (string, error)
	Delete(filePath string) error
}

// localArchive implements RawArchive under basePath, partitioned by UTC day
type localArchive struct {
	basePath string
	now      func() time.Time
}

// NewLocalArchive creates a RawArchive rooted at basePath
func NewLocalArchive(basePath string) (RawArchive, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &localArchive{basePath: basePath, now: time.Now}, nil
}

// validatePath ensures path is within basePath
func (s *localArchive) validatePath(filePath string) (string, error) {
	cleanPath := filepath.Clean(filePath)

	if filepath.IsAbs(cleanPath) || strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, cleanPath))
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}

	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return "", ErrPathTraversal
	}

	return absPath, nil
}

// Save writes content to YYYY/MM/DD/<uuid><ext> and returns that relative path.
// Content larger than MaxMessageSize is rejected and nothing is kept.
func (s *localArchive) Save(filename string, content io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(validator.SanitizeFilename(filename)))
	if ext == "" {
		ext = defaultExt
	}

	dayDir := s.now().UTC().Format("2006/01/02")
	if err := os.MkdirAll(filepath.Join(s.basePath, dayDir), 0o750); err != nil {
		return "", fmt.Errorf("failed to create day directory: %w", err)
	}

	relPath := filepath.Join(dayDir, uuid.NewString()+ext)
	fullPath := filepath.Join(s.basePath, relPath)

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	n, err := io.Copy(file, io.LimitReader(content, MaxMessageSize+1))
	if err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if n > MaxMessageSize {
		os.Remove(fullPath)
		return "", ErrMessageTooLarge
	}

	return filepath.ToSlash(relPath), nil
}

// Delete removes an archived message; a missing file is not an error
func (s *localArchive) Delete(filePath string) error {
	fullPath, err := s.validatePath(filePath)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}
