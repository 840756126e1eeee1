package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fixflow-app/fixflow/internal/auth"
	"github.com/fixflow-app/fixflow/internal/authz"
	"github.com/fixflow-app/fixflow/internal/observability"
	"github.com/fixflow-app/fixflow/internal/shared"
	"github.com/fixflow-app/fixflow/internal/tickets"
	"github.com/fixflow-app/fixflow/internal/users"
	"github.com/fixflow-app/fixflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	TicketsHandler     *tickets.Handler
	PermissionsHandler *authz.Handler
	JobsHandler        *jobs.Handler
	Pipeline           authz.Middleware
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with FixFlow defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			params.AuthHandler.MountRoutes(r)
		})
		params.PermissionsHandler.MountRoutes(r, params.Pipeline)
		r.Route("/users", func(r chi.Router) {
			params.UsersHandler.MountRoutes(r)
		})
		r.Route("/tickets", func(r chi.Router) {
			params.TicketsHandler.MountRoutes(r, params.Pipeline)
		})
		if params.JobsHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.Pipeline.Require(authz.PermSettingsEdit))
				params.JobsHandler.MountRoutes(r)
			})
		}
	})

	return r
}
