// Package metrics exposes Prometheus collectors for order flow, the book
// cache and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestDuration tracks request latency by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bourse_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "route", "status"},
	)

	// OrdersTotal counts accepted orders.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bourse_orders_total",
			Help: "Total number of accepted orders",
		},
		[]string{"symbol", "side", "order_type", "status"},
	)

	// OrderRejectionsTotal counts orders refused before settlement.
	OrderRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bourse_order_rejections_total",
			Help: "Total number of rejected orders by reason",
		},
		[]string{"reason"},
	)

	// FeesCollected sums trading fees in quote currency.
	FeesCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bourse_fees_collected_total",
			Help: "Trading fees charged, in quote currency",
		},
		[]string{"order_type"},
	)

	// SettlementDuration tracks the settlement transaction latency.
	SettlementDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bourse_settlement_duration_seconds",
			Help:    "Duration of the settlement transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	// BookCacheLookups counts order book cache hits and misses.
	BookCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bourse_orderbook_cache_lookups_total",
			Help: "Order book cache lookups by result",
		},
		[]string{"result"},
	)

	// BookSpread tracks the latest synthesized spread per symbol.
	BookSpread = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bourse_orderbook_spread",
			Help: "Spread of the most recently generated order book",
		},
		[]string{"symbol"},
	)
)

// Rejection reasons
const (
	ReasonValidation          = "validation"
	ReasonOrderTooSmall       = "order_too_small"
	ReasonOrderTooLarge       = "order_too_large"
	ReasonPriceUnavailable    = "price_unavailable"
	ReasonInvalidStopLoss     = "invalid_stop_loss"
	ReasonInsufficientFunds   = "insufficient_funds"
	ReasonInsufficientHolding = "insufficient_holdings"
	ReasonPortfolioNotFound   = "portfolio_not_found"
	ReasonInternal            = "internal"
)

// ObserveBookLookup records a cache hit or miss.
func ObserveBookLookup(hit bool) {
	if hit {
		BookCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	BookCacheLookups.WithLabelValues("miss").Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request latency keyed by the matched chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
