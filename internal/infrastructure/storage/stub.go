package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	orderapp "github.com/orderdesk/backend/internal/application/order"
)

// Ensure InMemoryArtifactStorage implements ArtifactStore
var _ orderapp.ArtifactStore = (*InMemoryArtifactStorage)(nil)

// InMemoryArtifactStorage keeps artifacts in a map. It backs local
// development and tests where no S3-compatible service is available.
type InMemoryArtifactStorage struct {
	// BaseURL prefixes generated download URLs.
	// Defaults to "https://storage.example.com" if not set
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewInMemoryArtifactStorage creates a new InMemoryArtifactStorage
func NewInMemoryArtifactStorage() *InMemoryArtifactStorage {
	return &InMemoryArtifactStorage{
		BaseURL: "https://storage.example.com",
		objects: make(map[string][]byte),
	}
}

// Upload stores the artifact in memory
func (s *InMemoryArtifactStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[storageKey] = buf
	return nil
}

// GenerateDownloadURL returns a fake URL pointing at the stored artifact
func (s *InMemoryArtifactStorage) GenerateDownloadURL(
	ctx context.Context,
	storageKey string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	expiresAt := time.Now().Add(expiresIn)
	url := s.BaseURL + "/download/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339)

	return url, expiresAt, nil
}

// DeleteObject removes the artifact. Deleting a missing key is not an error.
func (s *InMemoryArtifactStorage) DeleteObject(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, storageKey)
	return nil
}

// ObjectExists reports whether the artifact has been uploaded
func (s *InMemoryArtifactStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[storageKey]
	return ok, nil
}

// Object returns the stored bytes for a key, for test assertions.
func (s *InMemoryArtifactStorage) Object(storageKey string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[storageKey]
	return data, ok
}
