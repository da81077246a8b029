package goods

import (
	"context"

	"commerce-pricing/internal/domain"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	List(ctx context.Context) ([]domain.Item, error)
	Upsert(ctx context.Context, item domain.Item) (*domain.Item, error)
}
