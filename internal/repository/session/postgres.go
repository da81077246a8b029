package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"commerce-pricing/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresRepo stores cart state as jsonb, one row per session.
type PostgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) *PostgresRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresRepo{pool: pool, logger: logger.Named("session")}
}

func (r *PostgresRepo) Load(ctx context.Context, sessionID string) (*domain.CartState, error) {
	const q = `
SELECT state
FROM cart_sessions
WHERE session_id = $1
`
	var raw []byte
	if err := r.pool.QueryRow(ctx, q, sessionID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("load cart", zap.String("session", sessionID), zap.Error(err))
		return nil, err
	}
	var state domain.CartState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", sessionID, err)
	}
	normalize(&state)
	return &state, nil
}

func (r *PostgresRepo) Save(ctx context.Context, sessionID string, state *domain.CartState) error {
	const q = `
INSERT INTO cart_sessions (session_id, state)
VALUES ($1, $2::jsonb)
ON CONFLICT (session_id) DO UPDATE
SET state = EXCLUDED.state,
    updated_at = now()
`
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", sessionID, err)
	}
	if _, err := r.pool.Exec(ctx, q, sessionID, string(raw)); err != nil {
		r.logger.Error("save cart", zap.String("session", sessionID), zap.Error(err))
		return err
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_sessions WHERE session_id = $1`, sessionID)
	return err
}

// PurgeIdle removes sessions not written since the cutoff.
func (r *PostgresRepo) PurgeIdle(ctx context.Context, olderThan time.Duration) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_sessions WHERE updated_at < now() - make_interval(secs => $1)`, olderThan.Seconds())
	if err != nil {
		return 0, err
	}
	if n := cmd.RowsAffected(); n > 0 {
		r.logger.Info("purged idle carts", zap.Int64("count", n))
	}
	return cmd.RowsAffected(), nil
}
