package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"commerce-pricing/internal/domain"
	"commerce-pricing/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_SaveLoad(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)

	if _, err := repo.Load(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	state := sampleState()
	if err := repo.Save(ctx, "s1", state); err != nil {
		t.Fatalf("Save: %v", err)
	}
	state.Items[0].Quantity = 3
	if err := repo.Save(ctx, "s1", state); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}

	got, err := repo.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].Quantity != 3 || !got.Items[1].IsGift {
		t.Fatalf("unexpected items %+v", got.Items)
	}
	if got.PromoCode != "WELCOME20" || len(got.SuggestQueue) != 1 {
		t.Fatalf("unexpected state %+v", got)
	}

	if err := repo.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Load(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPostgres_PurgeIdle(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	if err := repo.Save(ctx, "old", domain.NewCartState()); err != nil {
		t.Fatalf("Save old: %v", err)
	}
	if err := repo.Save(ctx, "fresh", domain.NewCartState()); err != nil {
		t.Fatalf("Save fresh: %v", err)
	}
	if _, err := pool.Exec(ctx, `UPDATE cart_sessions SET updated_at = now() - interval '2 days' WHERE session_id = 'old'`); err != nil {
		t.Fatalf("age session: %v", err)
	}

	n, err := repo.PurgeIdle(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeIdle: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged session, got %d", n)
	}
	if _, err := repo.Load(ctx, "old"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected old session purged, got %v", err)
	}
	if _, err := repo.Load(ctx, "fresh"); err != nil {
		t.Fatalf("expected fresh session kept, got %v", err)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("ping db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE cart_sessions`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
