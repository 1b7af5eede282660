package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore is an in-memory ArtifactStore for tests and for running
// without a configured bucket.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailPuts makes every Put return an error, for exercising
	// compensation paths in tests.
	FailPuts bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, key string, data io.Reader) (string, error) {
	if s.FailPuts {
		return "", fmt.Errorf("put %q: store unavailable", key)
	}

	buf, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read artifact %q: %w", key, err)
	}

	s.mu.Lock()
	s.objects[key] = buf
	s.mu.Unlock()

	return s.URL(key), nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	buf, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("artifact %q not found", key)
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) URL(key string) string {
	return "memory://" + key
}

// Has reports whether the key is currently stored.
func (s *MemoryStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

// Len returns the number of stored artifacts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
