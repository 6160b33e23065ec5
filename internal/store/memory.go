package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore 进程内冷却状态；无淘汰，随 recipient 数量增长
type MemoryStore struct {
	mu   sync.RWMutex
	last map[string]time.Time
}

// NewMemoryStore 创建空的内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[string]time.Time)}
}

func (m *MemoryStore) LastNotified(_ context.Context, recipient string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.last[recipient]
	if !ok {
		return time.Time{}, ErrMiss
	}
	return t, nil
}

func (m *MemoryStore) MarkNotified(_ context.Context, recipient string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.last[recipient] = at
	return nil
}
