// Package httpapi assembles the HTTP surface: middleware chain, health and
// metrics endpoints, and every module handler behind authentication.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transferdesk/pkg/platform/middleware"
)

// Registrar is implemented by module handlers that mount their routes.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires all endpoints. Everything except health and metrics sits
// behind bearer authentication.
func NewRouter(validator middleware.TokenValidator, logger *slog.Logger, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))
		for _, h := range handlers {
			h.Register(r)
		}
	})

	return r
}
