// Package session persists per-visitor cart state between requests.
package session

import (
	"context"

	"commerce-pricing/internal/domain"
)

// Repository stores one CartState per session id. Load returns
// domain.ErrNotFound for unknown sessions.
type Repository interface {
	Load(ctx context.Context, sessionID string) (*domain.CartState, error)
	Save(ctx context.Context, sessionID string, state *domain.CartState) error
	Delete(ctx context.Context, sessionID string) error
}
