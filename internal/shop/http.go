package shop

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"MiniShop/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	// MetricsToken protects /metrics when set.
	MetricsToken string

	CheckoutPerMinute int
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, deps)

	limiter := kit.NewRateLimiter(deps.CheckoutPerMinute, time.Minute)
	r.Mount("/", s.Routes(limiter.Middleware))
	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
	r.Use(kit.SecurityHeaders(apiPrefix + "/"))
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	h := promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})
	if deps.MetricsToken == "" {
		r.Handle("/metrics", h)
		return
	}
	r.With(kit.MetricsAuth(deps.MetricsToken)).Handle("/metrics", h)
}
