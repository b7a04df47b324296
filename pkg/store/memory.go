package store

import (
	"context"
	"slices"
	"sync"
)

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[Kind]map[string][]byte
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[Kind]map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, kind Kind, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[kind][id]
	if !ok {
		return nil, notFound(kind, id)
	}
	return slices.Clone(v), nil
}

func (m *MemoryBackend) Put(_ context.Context, kind Kind, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[kind] == nil {
		m.data[kind] = make(map[string][]byte)
	}
	m.data[kind][id] = slices.Clone(data)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, kind Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[kind], id)
	return nil
}

func (m *MemoryBackend) List(_ context.Context, kind Kind) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.data[kind]))
	for id := range m.data[kind] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *MemoryBackend) Close() error { return nil }

var _ Backend = (*MemoryBackend)(nil)
