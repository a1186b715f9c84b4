package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"siyuan-recall/internal/handlers"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Sidecar handlers.Sidecar
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	// Gateway-facing hook endpoints.
	r.Route("/hooks", func(r chi.Router) {
		r.Method(http.MethodPost, "/before-agent-start", handlers.NewBeforeAgentStartHandler(deps.Sidecar))
		r.Method(http.MethodPost, "/agent-end", handlers.NewAgentEndHandler(deps.Sidecar))
		r.Method(http.MethodPost, "/command-new", handlers.NewCommandNewHandler(deps.Sidecar))
	})

	// Admin and diagnostics endpoints.
	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.Sidecar))
		r.Method(http.MethodGet, "/stats", handlers.NewStatsHandler(deps.Sidecar))
		r.Method(http.MethodPost, "/sync", handlers.NewSyncHandler(deps.Sidecar))
	})

	return r
}
