package credentials

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Useful for tests and for running without a data dir.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool
}

// NewMemory returns a Memory store seeded with the given values.
func NewMemory(seed map[string]string) *Memory {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &Memory{values: values}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.values[key]
	return v, ok && v != "", nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.values[key] = value
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.values, key)
	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
