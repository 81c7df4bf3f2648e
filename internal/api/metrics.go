package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const unmatched = "unmatched"

// Values of the caller label.
const (
	callerAccount   = "account"
	callerAnonymous = "anonymous"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofmarket_http_requests_total",
			Help: "Marketplace API requests by route, status and whether a caller account was supplied.",
		},
		[]string{"method", "route", "status", "caller"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proofmarket_http_request_duration_seconds",
			Help:    "Marketplace API request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proofmarket_http_requests_in_flight",
			Help: "Marketplace API requests currently being served, including open event streams.",
		},
	)

	marketErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofmarket_http_market_errors_total",
			Help: "Marketplace operation failures returned to API callers, by operation and error kind.",
		},
		[]string{"op", "kind"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInFlight, marketErrors)
}

// metricsMiddleware records request count, duration and concurrency. Routes
// are labelled by chi pattern so job and prover ids do not become labels.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		caller := callerAnonymous
		if r.Header.Get(HeaderAccountID) != "" {
			caller = callerAccount
		}

		route := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status), caller).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unmatched
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
