package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/company-lookup/internal/delivery/http/handler"
	"github.com/user/company-lookup/internal/delivery/http/middleware"
	"github.com/user/company-lookup/pkg/metrics"
)

// Options configures the router. Gatherer defaults to
// prometheus.DefaultGatherer.
type Options struct {
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	LookupTimeout time.Duration
}

func New(h *handler.Handler, opts Options) http.Handler {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(chimw.Recoverer)

	r.Get("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)
		r.With(timeout(opts.LookupTimeout)).Get("/company", h.HandleLookup)
	})

	return r
}

func timeout(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return chimw.Timeout(d)
}
