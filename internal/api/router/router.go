package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/clinic-order-portal/internal/http/middleware"
	"github.com/wolfman30/clinic-order-portal/internal/portal"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Portal             *portal.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Session binds requests to a session id. Required for the order routes.
	Session func(http.Handler) http.Handler
	// SubmitLimiter throttles shipping and payment submits per session (optional).
	SubmitLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.Portal.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Group(func(orders chi.Router) {
		orders.Use(middleware.NoCache)
		if cfg.Session != nil {
			orders.Use(cfg.Session)
		}
		var submit func(http.Handler) http.Handler
		if cfg.SubmitLimiter != nil {
			submit = httpmiddleware.RateLimit(cfg.SubmitLimiter)
		}
		cfg.Portal.Register(orders, submit)
	})

	return r
}
