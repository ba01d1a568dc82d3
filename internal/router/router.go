package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/connexus-ai/docforge/internal/handler"
	"github.com/connexus-ai/docforge/internal/middleware"
	"github.com/connexus-ai/docforge/internal/service"
)

// Dependencies holds all injected services needed by the router.
type Dependencies struct {
	DB          handler.DBPinger
	AuthService *service.AuthService
	FrontendURL string
	Version     string
	Metrics     *middleware.Metrics
	MetricsReg  *prometheus.Registry
	RateLimiter *middleware.RateLimiter

	CreateResourceDeps handler.CreateResourceDeps
	RescrapeDeps       handler.RescrapeDeps
}

// New creates and configures the Chi router with all routes: the two
// public endpoints (`GET /`, `GET /health/`), the bearer-authenticated
// create-resource endpoint, and the shared-secret rescrape endpoint
// plus the ambient `/metrics` Prometheus surface.
func New(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(deps.FrontendURL))
	if deps.Metrics != nil {
		r.Use(middleware.Monitoring(deps.Metrics))
	}

	r.Get("/", handler.Root(deps.Version))
	r.Get("/health/", handler.HealthCheck(deps.DB))
	if deps.MetricsReg != nil {
		r.Handle("/metrics", middleware.MetricsHandler(deps.MetricsReg))
	}

	timeout120s := middleware.Timeout(120 * time.Second)

	r.Group(func(r chi.Router) {
		r.Use(middleware.FirebaseAuth(deps.AuthService))
		if deps.RateLimiter != nil {
			r.Use(middleware.RateLimit(deps.RateLimiter))
		}
		r.With(timeout120s).Post("/api/v1/create-resource", handler.CreateResource(deps.CreateResourceDeps))
	})

	r.With(timeout120s).Post("/api/v1/rescrape", handler.Rescrape(deps.RescrapeDeps))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "route not found",
		})
	})

	return r
}
