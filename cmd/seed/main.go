package main

import (
	"context"

	"commerce-pricing/internal/config"
	"commerce-pricing/internal/db"
	goodsrepo "commerce-pricing/internal/repository/goods"
	promorepo "commerce-pricing/internal/repository/promo"
	"commerce-pricing/internal/seed"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	base, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer base.Sync()
	logger := base.Named("seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	goods := goodsrepo.NewPostgres(pool, logger)
	rules := promorepo.NewPostgres(pool, logger)
	if err := seed.Apply(ctx, goods, rules, logger); err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}
}
