package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/livehint/internal/api/handlers"
	"github.com/nikhilbhutani/livehint/internal/api/middleware"
	"github.com/nikhilbhutani/livehint/internal/auth"
	"github.com/nikhilbhutani/livehint/internal/completion"
	"github.com/nikhilbhutani/livehint/internal/config"
	"github.com/nikhilbhutani/livehint/internal/observe"
)

// Deps are the services the router exposes. Everything except Provider is
// optional.
type Deps struct {
	Provider       completion.Provider
	Metrics        *observe.Metrics
	MetricsHandler http.Handler
	Cache          handlers.Pinger
}

type Router struct {
	mux  *chi.Mux
	cfg  *config.Config
	deps Deps
}

func NewRouter(cfg *config.Config, deps Deps) *Router {
	return &Router{
		mux:  chi.NewRouter(),
		cfg:  cfg,
		deps: deps,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.CORSOrigins))
	if rt.deps.Metrics != nil {
		r.Use(middleware.Metrics(rt.deps.Metrics))
	}

	// Health endpoints (no auth, no rate limit)
	health := handlers.NewHealthHandler(map[string]handlers.Pinger{"redis": rt.deps.Cache})
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	if rt.deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", rt.deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		if rt.cfg.Server.RateLimitRPS > 0 {
			rl := middleware.NewRateLimiter(rt.cfg.Server.RateLimitRPS, rt.cfg.Server.RateLimitBurst)
			r.Use(rl.Limit)
		}
		if rt.cfg.Auth.JWTSecret != "" {
			r.Use(auth.NewJWTMiddleware(rt.cfg.Auth.JWTSecret).Authenticate)
		}

		gpt := handlers.NewGPTHandler(rt.deps.Provider, rt.deps.Metrics)
		r.Post("/gpt", gpt.Recommend)
	})

	return r
}
