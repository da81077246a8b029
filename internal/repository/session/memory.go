package session

import (
	"context"
	"encoding/json"
	"sync"

	"commerce-pricing/internal/domain"
	"github.com/shopspring/decimal"
)

// MemoryRepo stores encoded cart state in a map so callers never share
// slices with the stored copy.
type MemoryRepo struct {
	mu    sync.RWMutex
	carts map[string][]byte
}

func NewMemory() *MemoryRepo {
	return &MemoryRepo{carts: make(map[string][]byte)}
}

func (m *MemoryRepo) Load(_ context.Context, sessionID string) (*domain.CartState, error) {
	m.mu.RLock()
	data, ok := m.carts[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	var state domain.CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	normalize(&state)
	return &state, nil
}

func (m *MemoryRepo) Save(_ context.Context, sessionID string, state *domain.CartState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.carts[sessionID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.carts, sessionID)
	m.mu.Unlock()
	return nil
}

func normalize(state *domain.CartState) {
	if state.Items == nil {
		state.Items = []domain.LineItem{}
	}
	if state.SuggestQueue == nil {
		state.SuggestQueue = []string{}
	}
	if state.AuxCharges == nil {
		state.AuxCharges = map[string]decimal.Decimal{}
	}
}
