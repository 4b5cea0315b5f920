package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/taskflow-api/internal/api"
	apimw "github.com/phrazzld/taskflow-api/internal/api/middleware"
)

// metricsSource is what the router needs from the metrics component.
type metricsSource interface {
	apimw.RequestObserver
	Handler() http.Handler
}

// routes bundles the handlers and middleware mounted by newRouter. limiter
// is nil when rate limiting is disabled.
type routes struct {
	tasks         *api.TaskHandler
	auth          *api.AuthHandler
	authenticator *apimw.AuthMiddleware
	limiter       apimw.Limiter
	metrics       metricsSource
	logger        *slog.Logger
}

// newRouter builds the HTTP routing tree.
func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apimw.NewTraceMiddleware(rt.logger))
	r.Use(middleware.Recoverer)
	r.Use(apimw.Metrics(rt.metrics))

	throttle := func(r chi.Router) {
		if rt.limiter != nil {
			r.Use(apimw.RateLimit(rt.limiter, rt.logger))
		}
	}

	r.Route("/api", func(r chi.Router) {
		// Public routes are throttled per client IP.
		r.Group(func(r chi.Router) {
			throttle(r)
			r.Post("/auth/register", rt.auth.Register)
			r.Post("/auth/login", rt.auth.Login)
			r.Post("/auth/refresh", rt.auth.RefreshToken)
		})

		// Authenticated routes are throttled per principal.
		r.Group(func(r chi.Router) {
			r.Use(rt.authenticator.Authenticate)
			throttle(r)

			r.Post("/auth/logout", rt.auth.Logout)
			r.Get("/user", rt.auth.Me)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", rt.tasks.ListTasks)
				r.Post("/", rt.tasks.CreateTask)
				r.Get("/search", rt.tasks.SearchTasks)
				r.Get("/{id}", rt.tasks.GetTask)
				r.Put("/{id}", rt.tasks.UpdateTask)
				r.Patch("/{id}", rt.tasks.UpdateTask)
				r.Delete("/{id}", rt.tasks.DeleteTask)
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			rt.logger.Error("failed to write health check response", "error", err)
		}
	})
	r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())

	return r
}
