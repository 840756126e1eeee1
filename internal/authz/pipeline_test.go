package authz_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fixflow-app/fixflow/internal/authz"
	"github.com/fixflow-app/fixflow/internal/shared"
	_ "github.com/fixflow-app/fixflow/testing"
)

type fakeDirectory struct {
	records map[int64]authz.DirectoryRecord
}

func (f fakeDirectory) Lookup(ctx context.Context, userID int64) (authz.DirectoryRecord, error) {
	rec, ok := f.records[userID]
	if !ok {
		return authz.DirectoryRecord{}, authz.ErrPrincipalNotFound
	}
	return rec, nil
}

type capturedDenial struct {
	principal  authz.Principal
	permission authz.Permission
	route      string
}

type fakeDenialRecorder struct {
	denials []capturedDenial
}

func (f *fakeDenialRecorder) RecordDenial(ctx context.Context, p authz.Principal, perm authz.Permission, route string) {
	f.denials = append(f.denials, capturedDenial{principal: p, permission: perm, route: route})
}

func newPipeline(dir fakeDirectory, audit authz.DenialRecorder) authz.Middleware {
	return authz.Middleware{
		Engine: authz.NewEngine(dir),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Audit:  audit,
	}
}

func requestWithUser(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/tickets", nil)
	if userID == "" {
		return req
	}
	sess := &shared.Session{}
	sess.SetUser(userID)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler(t *testing.T, wantTenant int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := authz.PrincipalFromContext(r.Context())
		if !ok {
			t.Fatal("principal missing from context")
		}
		if principal.TenantID != wantTenant {
			t.Fatalf("tenant = %d, want %d", principal.TenantID, wantTenant)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestPipelineNoSession(t *testing.T) {
	pipeline := newPipeline(fakeDirectory{}, nil)
	res := httptest.NewRecorder()

	pipeline.Require(authz.PermTicketsView)(okHandler(t, 0)).ServeHTTP(res, requestWithUser(""))

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestPipelineUnknownPrincipal(t *testing.T) {
	pipeline := newPipeline(fakeDirectory{}, nil)
	res := httptest.NewRecorder()

	pipeline.Require(authz.PermTicketsView)(okHandler(t, 0)).ServeHTTP(res, requestWithUser("42"))

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestPipelineInactivePrincipal(t *testing.T) {
	dir := fakeDirectory{records: map[int64]authz.DirectoryRecord{
		42: {TenantID: 3, Role: authz.RoleAdmin, IsActive: false},
	}}
	pipeline := newPipeline(dir, nil)
	res := httptest.NewRecorder()

	pipeline.Require(authz.PermTicketsView)(okHandler(t, 0)).ServeHTTP(res, requestWithUser("42"))

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("inactive principal: expected 401, got %d", res.Code)
	}
}

func TestPipelineMissingTenant(t *testing.T) {
	dir := fakeDirectory{records: map[int64]authz.DirectoryRecord{
		42: {TenantID: 0, Role: authz.RoleAdmin, IsActive: true},
	}}
	pipeline := newPipeline(dir, nil)
	res := httptest.NewRecorder()

	pipeline.Require(authz.PermTicketsView)(okHandler(t, 0)).ServeHTTP(res, requestWithUser("42"))

	if res.Code != http.StatusNotFound {
		t.Fatalf("missing tenant: expected 404, got %d", res.Code)
	}
}

func TestPipelineDenialIsGenericAndAudited(t *testing.T) {
	dir := fakeDirectory{records: map[int64]authz.DirectoryRecord{
		42: {TenantID: 3, Role: authz.RoleViewer, IsActive: true},
	}}
	audit := &fakeDenialRecorder{}
	pipeline := newPipeline(dir, audit)
	res := httptest.NewRecorder()

	pipeline.Require(authz.PermTicketsDelete)(okHandler(t, 0)).ServeHTTP(res, requestWithUser("42"))

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
	if strings.Contains(res.Body.String(), string(authz.PermTicketsDelete)) {
		t.Fatalf("response must not echo the denied permission: %s", res.Body.String())
	}
	if len(audit.denials) != 1 {
		t.Fatalf("expected 1 audited denial, got %d", len(audit.denials))
	}
	denial := audit.denials[0]
	if denial.permission != authz.PermTicketsDelete {
		t.Fatalf("audited permission = %s", denial.permission)
	}
	if denial.principal.UserID != 42 || denial.principal.TenantID != 3 {
		t.Fatalf("audited principal = %+v", denial.principal)
	}
}

func TestPipelineAuthorized(t *testing.T) {
	dir := fakeDirectory{records: map[int64]authz.DirectoryRecord{
		42: {TenantID: 3, Role: authz.RoleViewer, IsActive: true},
	}}
	pipeline := newPipeline(dir, nil)
	res := httptest.NewRecorder()

	pipeline.Require(authz.PermTicketsView)(okHandler(t, 3)).ServeHTTP(res, requestWithUser("42"))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestPipelineRequireAny(t *testing.T) {
	dir := fakeDirectory{records: map[int64]authz.DirectoryRecord{
		42: {TenantID: 3, Role: authz.RoleTechnician, IsActive: true},
	}}
	pipeline := newPipeline(dir, nil)

	res := httptest.NewRecorder()
	pipeline.RequireAny(authz.PermTicketsDelete, authz.PermTicketsEdit)(okHandler(t, 3)).ServeHTTP(res, requestWithUser("42"))
	if res.Code != http.StatusOK {
		t.Fatalf("any-of with one held permission: expected 200, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	pipeline.RequireAny(authz.PermUsersEdit, authz.PermSettingsEdit)(okHandler(t, 3)).ServeHTTP(res, requestWithUser("42"))
	if res.Code != http.StatusForbidden {
		t.Fatalf("any-of with no held permission: expected 403, got %d", res.Code)
	}
}

func TestPermissionsEndpoint(t *testing.T) {
	dir := fakeDirectory{records: map[int64]authz.DirectoryRecord{
		42: {TenantID: 3, Role: authz.RoleTechnician, IsActive: true},
	}}
	pipeline := newPipeline(dir, nil)
	handler := authz.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), pipeline.Engine)

	r := chi.NewRouter()
	handler.MountRoutes(r, pipeline)

	req := requestWithUser("42")
	req.URL.Path = "/me/permissions"
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, string(authz.PermTicketsCreate)) {
		t.Fatalf("technician permissions should include tickets.create: %s", body)
	}
	if strings.Contains(body, string(authz.PermUsersInvite)) {
		t.Fatalf("technician permissions should not include users.invite: %s", body)
	}
}

func TestPermissionsEndpointSingleCheck(t *testing.T) {
	dir := fakeDirectory{records: map[int64]authz.DirectoryRecord{
		42: {TenantID: 3, Role: authz.RoleViewer, IsActive: true},
	}}
	pipeline := newPipeline(dir, nil)
	handler := authz.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), pipeline.Engine)

	r := chi.NewRouter()
	handler.MountRoutes(r, pipeline)

	req := requestWithUser("42")
	req.URL.Path = "/me/permissions"
	req.URL.RawQuery = "permission=tickets.view"
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"allowed":true`) {
		t.Fatalf("expected allowed=true, got %s", res.Body.String())
	}

	req = requestWithUser("42")
	req.URL.Path = "/me/permissions"
	req.URL.RawQuery = "permission=users.edit"
	res = httptest.NewRecorder()
	r.ServeHTTP(res, req)

	if !strings.Contains(res.Body.String(), `"allowed":false`) {
		t.Fatalf("expected allowed=false, got %s", res.Body.String())
	}
}
