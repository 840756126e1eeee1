package authz

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fixflow-app/fixflow/internal/platform/httpx"
)

// Authenticate runs the pipeline without a permission requirement: session,
// active principal and tenant must resolve, nothing more. Used by routes that
// only need an identity, such as the permission resolution endpoint.
func (m Middleware) Authenticate() func(http.Handler) http.Handler {
	return m.middleware(nil, false)
}

// Handler serves the permission resolution endpoint consumed by client
// permission caches.
type Handler struct {
	logger *slog.Logger
	engine *Engine
}

// NewHandler builds the permissions endpoint handler.
func NewHandler(logger *slog.Logger, engine *Engine) *Handler {
	return &Handler{logger: logger, engine: engine}
}

// MountRoutes registers the caller-scoped permission routes.
func (h *Handler) MountRoutes(r chi.Router, pipeline Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(pipeline.Authenticate())
		r.Get("/me/permissions", h.showPermissions)
	})
}

type permissionsResponse struct {
	Permissions []string `json:"permissions"`
}

type allowedResponse struct {
	Allowed bool `json:"allowed"`
}

// showPermissions returns the caller's own current permission set. With
// ?permission=<token> it answers a single membership question instead.
func (h *Handler) showPermissions(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	if token := strings.TrimSpace(r.URL.Query().Get("permission")); token != "" {
		httpx.JSON(w, http.StatusOK, allowedResponse{
			Allowed: HasPermission(principal.Role, Permission(token)),
		})
		return
	}

	perms, err := h.engine.UserPermissions(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("resolve permissions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{Permissions: Strings(perms)})
}
