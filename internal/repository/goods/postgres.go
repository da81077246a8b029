package goods

import (
	"context"
	"errors"
	"fmt"

	"commerce-pricing/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("goods")}
}

const selectGoods = `
SELECT id, name, COALESCE(image, ''), price::text, tags, active, created_at
FROM goods
`

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, selectGoods+`WHERE id = $1 AND active`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("item not found", zap.String("id", id))
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get item", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return item, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Item, error) {
	rows, err := r.pool.Query(ctx, selectGoods+`ORDER BY name ASC`)
	if err != nil {
		r.logger.Error("list items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("list item rows", zap.Error(err))
		return nil, err
	}
	r.logger.Debug("listed items", zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, item domain.Item) (*domain.Item, error) {
	const q = `
INSERT INTO goods (id, name, image, price, tags, active)
VALUES ($1, $2, NULLIF($3, ''), $4::numeric, COALESCE($5, '{}'::text[]), $6)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    image = EXCLUDED.image,
    price = EXCLUDED.price,
    tags = EXCLUDED.tags,
    active = EXCLUDED.active
RETURNING created_at
`
	if item.ID == "" {
		return nil, errors.New("goods repo: id required")
	}
	out := item
	if err := r.pool.QueryRow(ctx, q, item.ID, item.Name, item.Image, item.Price.String(), item.Tags, item.Active).Scan(&out.CreatedAt); err != nil {
		r.logger.Error("upsert item", zap.String("id", item.ID), zap.Error(err))
		return nil, fmt.Errorf("goods repo: upsert %s: %w", item.ID, err)
	}
	r.logger.Info("upserted item", zap.String("id", out.ID), zap.Strings("tags", out.Tags))
	return &out, nil
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var (
		item  domain.Item
		price string
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Image, &price, &item.Tags, &item.Active, &item.CreatedAt); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("goods repo: price of %s: %w", item.ID, err)
	}
	item.Price = p
	return &item, nil
}
