package goods

import (
	"context"
	"errors"
	"sort"
	"sync"

	"commerce-pricing/internal/domain"
)

// MemoryRepo is an in-process catalog for tests and local runs.
type MemoryRepo struct {
	mu      sync.RWMutex
	items   map[string]domain.Item
	Lookups int
}

func NewMemory(items ...domain.Item) *MemoryRepo {
	m := &MemoryRepo{items: make(map[string]domain.Item, len(items))}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *MemoryRepo) GetByID(_ context.Context, id string) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups++

	it, ok := m.items[id]
	if !ok || !it.Active {
		return nil, domain.ErrNotFound
	}
	return &it, nil
}

func (m *MemoryRepo) List(_ context.Context) ([]domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryRepo) Upsert(_ context.Context, item domain.Item) (*domain.Item, error) {
	if item.ID == "" {
		return nil, errors.New("goods repo: id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	return &item, nil
}
