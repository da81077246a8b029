package httpserver

import (
	"context"
	"errors"
	"time"

	"commerce-pricing/internal/metrics"
	cartsvc "commerce-pricing/internal/service/cart"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type cartService interface {
	Get(ctx context.Context, sessionID string) (*cartsvc.View, error)
	Update(ctx context.Context, sessionID string, in cartsvc.UpdateInput) (*cartsvc.View, error)
	NextSuggestion(ctx context.Context, sessionID string) (string, bool, error)
	Empty(ctx context.Context, sessionID string) error
}

// Deps carries the services and settings the router needs.
type Deps struct {
	CartSvc          cartService
	Redis            *redis.Client
	SessionCookie    string
	SessionTTL       time.Duration
	CORSAllowOrigins []string
	Currency         string
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.CartSvc == nil {
		return nil, errors.New("cart service required")
	}
	if deps.SessionCookie == "" {
		deps.SessionCookie = "cart_session"
	}
	if deps.Currency == "" {
		deps.Currency = "EUR"
	}

	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery(), metrics.Middleware())
	router.Use(cors.New(corsConfig(deps.CORSAllowOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db, deps.Redis))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	h := &cartHandler{svc: deps.CartSvc, logger: logger.Named("http"), currency: deps.Currency}
	carts := router.Group("/cart", sessionMiddleware(deps.SessionCookie, deps.SessionTTL))
	carts.GET("", h.get)
	carts.POST("", h.update)
	carts.DELETE("", h.empty)
	carts.POST("/items", h.addItem)
	carts.PATCH("/items", h.bulkUpdate)
	carts.PUT("/items/:id", h.changeQuantity)
	carts.DELETE("/items/:id", h.removeItem)
	carts.GET("/suggestion", h.nextSuggestion)
	carts.PUT("/promo-code", h.setPromoCode)
	carts.DELETE("/promo-code", h.clearPromoCode)
	carts.PUT("/charges/:name", h.setCharge)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
