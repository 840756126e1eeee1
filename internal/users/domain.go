package users

import (
	"time"

	"github.com/fixflow-app/fixflow/internal/authz"
)

// User represents a user account within a tenant.
type User struct {
	ID        int64
	TenantID  int64
	Email     string
	Name      string
	Role      authz.Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
