package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/middleware"
)

// RouterConfig carries the HTTP settings the router applies.
type RouterConfig struct {
	Timeout     time.Duration
	CORSOrigins []string
}

// NewRouter mounts the search API and health endpoints.
//
//	GET /api/v1/search                       rendered sections
//	GET /api/v1/search/raw                   raw federated payload
//	GET /api/v1/search/config/filteroptions  static filter catalog
//	GET /health/live                         liveness
//	GET /health/ready                        readiness
//
// Middleware, outermost first: Recoverer, RequestID, Logging, Metrics, CORS,
// Timeout (search routes only).
func NewRouter(h *Handler, checker *health.Checker, m *metrics.Metrics, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(middleware.ReadOnlyCORS(cfg.CORSOrigins)))

	r.Get("/health/live", checker.LiveHandler())
	r.Get("/health/ready", checker.ReadyHandler())

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.Timeout))
		r.Get("/", h.Search)
		r.Get("/raw", h.RawSearch)
		r.Get("/config/filteroptions", h.FilterOptions)
	})
	return r
}
