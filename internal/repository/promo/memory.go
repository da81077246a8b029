package promo

import (
	"context"
	"strconv"
	"sync"

	"commerce-pricing/internal/domain"
)

// MemoryRepo keeps rules in insertion order. Used by tests and local runs
// without a database.
type MemoryRepo struct {
	mu      sync.RWMutex
	rules   []domain.Rule
	nextID  int
	Queries int
}

func NewMemory(rules ...domain.Rule) *MemoryRepo {
	m := &MemoryRepo{}
	for _, r := range rules {
		m.add(r)
	}
	return m
}

func (m *MemoryRepo) Query(_ context.Context, f Filter) ([]domain.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries++

	var out []domain.Rule
	for _, r := range m.rules {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryRepo) Add(_ context.Context, rule domain.Rule) (*domain.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.add(rule)
	return &out, nil
}

func (m *MemoryRepo) Update(_ context.Context, rule domain.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rules {
		if m.rules[i].ID == rule.ID {
			m.rules[i] = rule
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MemoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rules {
		if m.rules[i].ID == id {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MemoryRepo) add(rule domain.Rule) domain.Rule {
	if rule.ID == "" {
		m.nextID++
		rule.ID = "rule-" + strconv.Itoa(m.nextID)
	}
	m.rules = append(m.rules, rule)
	return rule
}
