package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// SeedFile is the file NewMemoryKVFromDir reads the initial collection from.
const SeedFile = "seed_expenses.json"

// MemoryKV keeps values in process memory.
type MemoryKV struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string][]byte)}
}

// NewMemoryKVFromDir returns a MemoryKV whose expense collection is seeded
// from base/seed_expenses.json when that file exists.
func NewMemoryKVFromDir(base string) *MemoryKV {
	kv := NewMemoryKV()
	data, err := os.ReadFile(filepath.Join(base, SeedFile))
	if err == nil && len(data) > 0 {
		kv.items[ExpensesKey] = data
	}
	return kv
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
