package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/fixflow-app/fixflow/internal/platform/httpx"
	"github.com/fixflow-app/fixflow/internal/shared"
)

// ErrSelfAction indicates a principal attempted to change its own role or
// active flag. The guard applies irrespective of role, ADMIN included; it is
// a pipeline rule layered on top of the static authority table.
var ErrSelfAction = errors.New("authz: self action forbidden")

// ValidateSelfAction rejects mutations where the acting principal targets its
// own account with a privilege-affecting change.
func ValidateSelfAction(p Principal, targetUserID int64) error {
	if p.UserID == targetUserID {
		return ErrSelfAction
	}
	return nil
}

// DenialRecorder receives permission denials for server-side audit. The
// denied permission is only ever recorded here, never in the response body.
type DenialRecorder interface {
	RecordDenial(ctx context.Context, p Principal, perm Permission, route string)
}

// Middleware runs the per-request authorization pipeline: session, directory
// lookup, tenant resolution, permission check. Each request passes through
// the states strictly in order with no retries; the first failure is
// terminal.
type Middleware struct {
	Engine *Engine
	Logger *slog.Logger
	Audit  DenialRecorder
}

// Require guards routes behind a single permission.
func (m Middleware) Require(perm Permission) func(http.Handler) http.Handler {
	return m.middleware([]Permission{perm}, false)
}

// RequireAny guards routes behind at least one of the given permissions.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return m.middleware(perms, true)
}

func (m Middleware) middleware(required []Permission, anyOf bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := m.authorize(r, required, anyOf)
			if err != nil {
				m.respond(w, r, principal, err)
				return
			}
			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authorize walks the pipeline states and returns the authorized principal.
// The returned principal is partially filled when an error is returned and is
// used for logging only.
func (m Middleware) authorize(r *http.Request, required []Permission, anyOf bool) (Principal, error) {
	// State 1: authenticate via the session placed in context upstream.
	userID, ok := m.currentUserID(r)
	if !ok {
		return Principal{}, ErrUnauthenticated
	}

	record, err := m.Engine.Lookup(r.Context(), userID)
	if err != nil {
		return Principal{UserID: userID}, err
	}
	// An inactive principal is unauthenticated even when the session itself
	// is still technically valid.
	if !record.IsActive {
		return Principal{UserID: userID}, ErrUnauthenticated
	}

	// State 2: tenant resolution. A principal without a tenant is a
	// data-integrity problem, not an authorization failure.
	if record.TenantID == 0 {
		return Principal{UserID: userID, Role: record.Role}, ErrTenantNotFound
	}

	principal := Principal{UserID: userID, TenantID: record.TenantID, Role: record.Role}

	// State 3: permission check against the route's declared requirement.
	if len(required) == 0 {
		return principal, nil
	}
	if anyOf {
		for _, perm := range required {
			if HasPermission(principal.Role, perm) {
				return principal, nil
			}
		}
		return principal, &PermissionDeniedError{Role: principal.Role, Permission: required[0]}
	}
	for _, perm := range required {
		if err := RequirePermission(principal.Role, perm); err != nil {
			return principal, err
		}
	}
	// State 4: authorized. Callers remain responsible for scoping every
	// store query by principal.TenantID.
	return principal, nil
}

func (m Middleware) respond(w http.ResponseWriter, r *http.Request, principal Principal, err error) {
	var denied *PermissionDeniedError
	switch {
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrPrincipalNotFound):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, ErrTenantNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	case errors.As(err, &denied):
		if m.Logger != nil {
			m.Logger.Warn("permission denied",
				slog.Int64("user_id", principal.UserID),
				slog.String("role", string(denied.Role)),
				slog.String("permission", string(denied.Permission)),
				slog.String("path", r.URL.Path))
		}
		if m.Audit != nil {
			m.Audit.RecordDenial(r.Context(), principal, denied.Permission, r.URL.Path)
		}
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
	default:
		if m.Logger != nil {
			m.Logger.Error("authorization pipeline", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("parse session user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
