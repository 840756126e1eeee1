package users

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixflow-app/fixflow/internal/authz"
	"github.com/fixflow-app/fixflow/internal/shared"
)

// RepositoryPort defines data access for user management. Every method except
// Lookup takes a tenant id: querying without one is a compile error, which is
// how tenant isolation is kept out of handler discipline.
type RepositoryPort interface {
	Lookup(ctx context.Context, userID int64) (authz.DirectoryRecord, error)
	GetUser(ctx context.Context, tenantID, id int64) (User, error)
	ListUsers(ctx context.Context, tenantID int64) ([]User, error)
	CreateUser(ctx context.Context, tenantID int64, email, name, passwordHash string, role authz.Role) (User, error)
	UpdateRole(ctx context.Context, tenantID, id int64, role authz.Role) (User, error)
	SetActive(ctx context.Context, tenantID, id int64, active bool) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, tenant_id, email, name, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, err
	}
	parsed, err := authz.ParseRole(role)
	if err != nil {
		return User{}, err
	}
	u.Role = parsed
	return u, nil
}

// Lookup resolves the canonical tenant, role and status of a user. This is
// the authorization pipeline's per-request directory call, so it is not
// tenant-scoped: the tenant is exactly what it resolves.
func (r *Repository) Lookup(ctx context.Context, userID int64) (authz.DirectoryRecord, error) {
	const query = `SELECT COALESCE(tenant_id, 0), role, is_active FROM users WHERE id = $1`
	var record authz.DirectoryRecord
	var role string
	err := r.pool.QueryRow(ctx, query, userID).Scan(&record.TenantID, &role, &record.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.DirectoryRecord{}, authz.ErrPrincipalNotFound
		}
		return authz.DirectoryRecord{}, err
	}
	record.Role, err = authz.ParseRole(role)
	if err != nil {
		return authz.DirectoryRecord{}, err
	}
	return record, nil
}

// GetUser fetches one user within the tenant.
func (r *Repository) GetUser(ctx context.Context, tenantID, id int64) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 AND id = $2`
	user, err := scanUser(r.pool.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// ListUsers returns all users of the tenant ordered by name.
func (r *Repository) ListUsers(ctx context.Context, tenantID int64) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 ORDER BY name, id`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateUser inserts a new user into the tenant.
func (r *Repository) CreateUser(ctx context.Context, tenantID int64, email, name, passwordHash string, role authz.Role) (User, error) {
	query := `INSERT INTO users (tenant_id, email, name, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		RETURNING ` + userColumns
	user, err := scanUser(r.pool.QueryRow(ctx, query, tenantID, email, name, passwordHash, string(role)))
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return User{}, shared.ErrDuplicate
		}
		return User{}, err
	}
	return user, nil
}

// UpdateRole replaces the user's role within the tenant.
func (r *Repository) UpdateRole(ctx context.Context, tenantID, id int64, role authz.Role) (User, error) {
	query := `UPDATE users SET role = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2 RETURNING ` + userColumns
	user, err := scanUser(r.pool.QueryRow(ctx, query, tenantID, id, string(role)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// SetActive toggles the user's active flag within the tenant.
func (r *Repository) SetActive(ctx context.Context, tenantID, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`, tenantID, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
var _ authz.Directory = (*Repository)(nil)
