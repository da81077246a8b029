// Package metrics provides Prometheus instrumentation for the pricing engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Recomputes counts cart recomputations by outcome.
	Recomputes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_cart_recomputes_total",
		Help: "Cart recomputations, partitioned by result",
	}, []string{"result"})

	// RecomputeLatency tracks how long a full recompute takes.
	RecomputeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shop_cart_recompute_seconds",
		Help:    "Cart recompute latency in seconds",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	})

	// GiftUnits counts gift units granted, by policy.
	GiftUnits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_gift_units_total",
		Help: "Gift units added to carts",
	}, []string{"policy"})

	// PromoCodeActivations counts promo code attempts by outcome.
	PromoCodeActivations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_promo_code_activations_total",
		Help: "Promo code activation attempts",
	}, []string{"result"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shop_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
