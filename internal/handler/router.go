package handler

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/spotlight/internal/metrics"
)

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	Events      *EventHandler
	Auth        *AuthHandler
	Metrics     *metrics.Metrics
	Log         *logrus.Logger
	ServiceName string
	Profiling   bool
}

// NewRouter builds the chi router with the global middleware stack, the
// JSON API and /metrics. Callers may mount further routes on the result.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(cfg.Log))         // structured access log
	r.Use(cfg.Metrics.Middleware)
	r.Use(cfg.Auth.Session)

	r.NotFound(NotFound)
	r.Handle("/metrics", cfg.Metrics.Handler())
	if cfg.Profiling {
		r.Mount("/debug", chimiddleware.Profiler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(CORS)

		r.Get("/health", HealthCheck(cfg.ServiceName))
		r.Get("/stats", cfg.Events.Stats)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", cfg.Events.ListEvents)
			r.Get("/{id}", cfg.Events.GetEvent)

			r.Group(func(r chi.Router) {
				r.Use(RequireUser)
				r.Post("/", cfg.Events.CreateEvent)
				r.Put("/{id}", cfg.Events.UpdateEvent)
				r.Delete("/{id}", cfg.Events.DeleteEvent)
			})
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.Auth.Register)
			r.Post("/login", cfg.Auth.Login)
			r.Post("/logout", cfg.Auth.Logout)
			r.Get("/me", cfg.Auth.Me)
		})
	})

	return r
}
