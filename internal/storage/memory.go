package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// MemoryMedium keeps values in process memory. A positive quota caps the total
// payload bytes, the way a browser caps local storage.
type MemoryMedium struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int
}

func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{data: make(map[string][]byte)}
}

func NewMemoryMediumWithQuota(quota int) *MemoryMedium {
	m := NewMemoryMedium()
	m.quota = quota
	return m
}

func (m *MemoryMedium) Read(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (m *MemoryMedium) Write(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quota > 0 {
		size := len(value)
		for k, v := range m.data {
			if k != key {
				size += len(v)
			}
		}
		if size > m.quota {
			return errors.Wrapf(ErrMediumFull, "writing %d bytes to key %q", len(value), key)
		}
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

func (m *MemoryMedium) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryMedium) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryMedium) Close() error {
	return nil
}

var _ Medium = (*MemoryMedium)(nil)
