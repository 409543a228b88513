package services

import (
	"context"
	"fmt"
	"sync"
)

// MockDocumentStore is an in-memory DocumentStore for testing
type MockDocumentStore struct {
	objects   map[string][]byte
	types     map[string]string
	DeleteErr error
	mu        sync.RWMutex
}

// NewMockDocumentStore creates a new mock document store
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

// SetAsMockForTesting sets this mock as the global document store for testing
func (m *MockDocumentStore) SetAsMockForTesting() {
	SetDocumentStore(m)
}

// Upload stores a copy of content under key
func (m *MockDocumentStore) Upload(_ context.Context, key string, content []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), content...)
	m.types[key] = contentType
	return nil
}

// PresignedURL returns a fake URL for an existing key
func (m *MockDocumentStore) PresignedURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.objects[key]
	m.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("file not found in mock S3: %s", key)
	}
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", key), nil
}

// Delete removes key, or returns DeleteErr when set
func (m *MockDocumentStore) Delete(_ context.Context, key string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.mu.Lock()
	delete(m.objects, key)
	delete(m.types, key)
	m.mu.Unlock()
	return nil
}

// Exists reports whether key is stored
func (m *MockDocumentStore) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.objects[key]
	return exists
}

// Object returns the stored content and content type of key
func (m *MockDocumentStore) Object(key string) ([]byte, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key], m.types[key]
}

// Clear removes all objects
func (m *MockDocumentStore) Clear() {
	m.mu.Lock()
	m.objects = make(map[string][]byte)
	m.types = make(map[string]string)
	m.mu.Unlock()
}
