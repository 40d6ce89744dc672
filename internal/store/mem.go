package store

import (
	"context"
	"sync"
)

// MemPersister keeps snapshots in memory. Useful for tests and ephemeral runs.
type MemPersister struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemPersister() *MemPersister {
	return &MemPersister{data: make(map[string][]byte)}
}

func (m *MemPersister) Save(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[key] = cp
	return nil
}

func (m *MemPersister) Load(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

func (m *MemPersister) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
