package mocks

import (
	"io"

	"github.com/stretchr/testify/mock"
)

// MockRawArchive implements storage.RawArchive
type MockRawArchive struct {
	mock.Mock
}

// Save stores a raw message and returns the relative path
func (m *MockRawArchive) Save(filename string, content io.Reader) (string, error) {
	args := m.Called(filename, content)
	return args.String(0), args.Error(1)
}

// Delete removes a raw message by its path
func (m *MockRawArchive) Delete(filePath string) error {
	args := m.Called(filePath)
	return args.Error(0)
}
