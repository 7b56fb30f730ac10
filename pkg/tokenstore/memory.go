package tokenstore

import (
	"context"
	"sync"
)

// MemoryStorage is an in-memory Storage for development.
type MemoryStorage struct {
	mu      sync.RWMutex
	token   string
	present bool
}

// NewMemoryStorage creates a new in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) ReadToken(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.present {
		return "", ErrTokenNotFound
	}
	return m.token, nil
}

func (m *MemoryStorage) WriteToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.present = token, true
	return nil
}

func (m *MemoryStorage) ClearToken(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.present = "", false
	return nil
}
