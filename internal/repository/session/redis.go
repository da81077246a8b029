package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"commerce-pricing/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRepo keeps cart state as JSON under cart:<session> with a sliding TTL.
type RedisRepo struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedis(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRepo{rdb: rdb, ttl: ttl, logger: logger.Named("session")}
}

func (r *RedisRepo) Load(ctx context.Context, sessionID string) (*domain.CartState, error) {
	data, err := r.rdb.Get(ctx, cartKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("load cart", zap.String("session", sessionID), zap.Error(err))
		return nil, err
	}
	var state domain.CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", sessionID, err)
	}
	normalize(&state)
	return &state, nil
}

func (r *RedisRepo) Save(ctx context.Context, sessionID string, state *domain.CartState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", sessionID, err)
	}
	if err := r.rdb.Set(ctx, cartKey(sessionID), data, r.ttl).Err(); err != nil {
		r.logger.Error("save cart", zap.String("session", sessionID), zap.Error(err))
		return err
	}
	return nil
}

func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	return r.rdb.Del(ctx, cartKey(sessionID)).Err()
}

func cartKey(sessionID string) string { return fmt.Sprintf("cart:%s", sessionID) }
