package users

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixflow-app/fixflow/internal/authz"
	"github.com/fixflow-app/fixflow/internal/shared"
)

type mockRepository struct {
	users  map[int64]*User
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[int64]*User), nextID: 1}
}

func (m *mockRepository) add(u User) User {
	u.ID = m.nextID
	m.nextID++
	m.users[u.ID] = &u
	return u
}

func (m *mockRepository) Lookup(ctx context.Context, userID int64) (authz.DirectoryRecord, error) {
	u, ok := m.users[userID]
	if !ok {
		return authz.DirectoryRecord{}, authz.ErrPrincipalNotFound
	}
	return authz.DirectoryRecord{TenantID: u.TenantID, Role: u.Role, IsActive: u.IsActive}, nil
}

func (m *mockRepository) GetUser(ctx context.Context, tenantID, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok || u.TenantID != tenantID {
		return User{}, shared.ErrNotFound
	}
	return *u, nil
}

func (m *mockRepository) ListUsers(ctx context.Context, tenantID int64) ([]User, error) {
	var out []User
	for _, u := range m.users {
		if u.TenantID == tenantID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockRepository) CreateUser(ctx context.Context, tenantID int64, email, name, passwordHash string, role authz.Role) (User, error) {
	for _, u := range m.users {
		if u.TenantID == tenantID && u.Email == email {
			return User{}, shared.ErrDuplicate
		}
	}
	return m.add(User{TenantID: tenantID, Email: email, Name: name, Role: role, IsActive: true}), nil
}

func (m *mockRepository) UpdateRole(ctx context.Context, tenantID, id int64, role authz.Role) (User, error) {
	u, ok := m.users[id]
	if !ok || u.TenantID != tenantID {
		return User{}, shared.ErrNotFound
	}
	u.Role = role
	return *u, nil
}

func (m *mockRepository) SetActive(ctx context.Context, tenantID, id int64, active bool) error {
	u, ok := m.users[id]
	if !ok || u.TenantID != tenantID {
		return shared.ErrNotFound
	}
	u.IsActive = active
	return nil
}

type recordingInvalidator struct {
	invalidated []int64
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, userID int64) error {
	r.invalidated = append(r.invalidated, userID)
	return nil
}

func newTestService(repo *mockRepository, inv Invalidator) *Service {
	return NewService(repo, inv, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func adminPrincipal(userID int64) authz.Principal {
	return authz.Principal{UserID: userID, TenantID: 1, Role: authz.RoleAdmin}
}

func TestChangeRoleInvalidatesTarget(t *testing.T) {
	repo := newMockRepository()
	admin := repo.add(User{TenantID: 1, Email: "admin@shop.test", Role: authz.RoleAdmin, IsActive: true})
	target := repo.add(User{TenantID: 1, Email: "tech@shop.test", Role: authz.RoleTechnician, IsActive: true})
	inv := &recordingInvalidator{}
	svc := newTestService(repo, inv)

	updated, err := svc.ChangeRole(context.Background(), adminPrincipal(admin.ID), target.ID, authz.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleManager, updated.Role)
	assert.Equal(t, []int64{target.ID}, inv.invalidated, "role change must drop the target's cached permissions")
}

func TestChangeRoleRejectsSelf(t *testing.T) {
	repo := newMockRepository()
	admin := repo.add(User{TenantID: 1, Email: "admin@shop.test", Role: authz.RoleAdmin, IsActive: true})
	inv := &recordingInvalidator{}
	svc := newTestService(repo, inv)

	_, err := svc.ChangeRole(context.Background(), adminPrincipal(admin.ID), admin.ID, authz.RoleViewer)
	assert.ErrorIs(t, err, authz.ErrSelfAction)
	assert.Equal(t, authz.RoleAdmin, repo.users[admin.ID].Role, "role must be untouched")
	assert.Empty(t, inv.invalidated)
}

func TestDeactivateRejectsSelfEvenForAdmin(t *testing.T) {
	repo := newMockRepository()
	admin := repo.add(User{TenantID: 1, Email: "admin@shop.test", Role: authz.RoleAdmin, IsActive: true})
	svc := newTestService(repo, &recordingInvalidator{})

	err := svc.Deactivate(context.Background(), adminPrincipal(admin.ID), admin.ID)
	assert.ErrorIs(t, err, authz.ErrSelfAction)
	assert.True(t, repo.users[admin.ID].IsActive)
}

func TestDeactivateInvalidatesTarget(t *testing.T) {
	repo := newMockRepository()
	admin := repo.add(User{TenantID: 1, Email: "admin@shop.test", Role: authz.RoleAdmin, IsActive: true})
	target := repo.add(User{TenantID: 1, Email: "viewer@shop.test", Role: authz.RoleViewer, IsActive: true})
	inv := &recordingInvalidator{}
	svc := newTestService(repo, inv)

	require.NoError(t, svc.Deactivate(context.Background(), adminPrincipal(admin.ID), target.ID))
	assert.False(t, repo.users[target.ID].IsActive)
	assert.Equal(t, []int64{target.ID}, inv.invalidated)
}

func TestInviteGeneratesTempPassword(t *testing.T) {
	repo := newMockRepository()
	admin := repo.add(User{TenantID: 1, Email: "admin@shop.test", Role: authz.RoleAdmin, IsActive: true})
	svc := newTestService(repo, nil)

	result, err := svc.Invite(context.Background(), adminPrincipal(admin.ID), "  New.Tech@Shop.Test ", "New Tech", authz.RoleTechnician)
	require.NoError(t, err)
	assert.Equal(t, "new.tech@shop.test", result.User.Email, "email is normalized")
	assert.Equal(t, authz.RoleTechnician, result.User.Role)
	assert.NotEmpty(t, result.TempPassword)

	_, err = svc.Invite(context.Background(), adminPrincipal(admin.ID), "new.tech@shop.test", "Dup", authz.RoleViewer)
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestGetIsTenantScoped(t *testing.T) {
	repo := newMockRepository()
	admin := repo.add(User{TenantID: 1, Email: "admin@shop.test", Role: authz.RoleAdmin, IsActive: true})
	other := repo.add(User{TenantID: 2, Email: "other@shop.test", Role: authz.RoleViewer, IsActive: true})
	svc := newTestService(repo, nil)

	_, err := svc.Get(context.Background(), adminPrincipal(admin.ID), other.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "cross-tenant reads must 404")
}
