package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"commerce-pricing/internal/config"
	"commerce-pricing/internal/db"
	"commerce-pricing/internal/httpserver"
	"commerce-pricing/internal/migrate"
	goodsrepo "commerce-pricing/internal/repository/goods"
	promorepo "commerce-pricing/internal/repository/promo"
	sessionrepo "commerce-pricing/internal/repository/session"
	cartsvc "commerce-pricing/internal/service/cart"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const purgeInterval = time.Hour

func main() {
	cfg := config.FromEnv()
	base, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer base.Sync()
	logger := base.Named("api")
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	if cfg.MigrateOnStart {
		if err := migrate.Apply(ctx, dbpool, logger); err != nil {
			logger.Fatal("apply migrations", zap.Error(err))
		}
	}

	goodsRepo := goodsrepo.NewPostgres(dbpool, logger)
	ruleRepo := promorepo.NewPostgres(dbpool, logger)

	var (
		sessions sessionrepo.Repository
		rdb      *redis.Client
	)
	if cfg.RedisURL != "" {
		rdb, err = db.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		sessions = sessionrepo.NewRedis(rdb, cfg.SessionTTL, logger)
		logger.Info("cart sessions in redis")
	} else {
		pgSessions := sessionrepo.NewPostgres(dbpool, logger)
		go purgeSessions(ctx, pgSessions, cfg.SessionPurgeAge, logger)
		sessions = pgSessions
		logger.Info("cart sessions in postgres")
	}

	cartService := cartsvc.New(sessions, goodsRepo, ruleRepo, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CartSvc:          cartService,
		Redis:            rdb,
		SessionCookie:    cfg.SessionCookie,
		SessionTTL:       cfg.SessionTTL,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		Currency:         cfg.Currency,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received signal, shutting down")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}

type sessionPurger interface {
	PurgeIdle(ctx context.Context, olderThan time.Duration) (int64, error)
}

// purgeSessions drops postgres cart sessions idle for longer than maxAge.
// Redis sessions expire on their own.
func purgeSessions(ctx context.Context, repo sessionPurger, maxAge time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		if _, err := repo.PurgeIdle(ctx, maxAge); err != nil && ctx.Err() == nil {
			logger.Warn("purge idle cart sessions", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
