package authz

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the authorization pipeline. Responses built from these
// carry generic messages only; the denied permission is logged server-side and
// never echoed to the client.
var (
	// ErrUnauthenticated indicates the request carries no valid session or
	// the principal is inactive.
	ErrUnauthenticated = errors.New("authz: unauthenticated")
	// ErrTenantNotFound indicates the principal has no resolvable tenant.
	// This is a data-integrity condition, reported distinctly from an
	// authorization failure.
	ErrTenantNotFound = errors.New("authz: tenant not found")
	// ErrPrincipalNotFound indicates a role lookup returned nothing for the
	// user id. It propagates rather than defaulting to an empty permission
	// set so callers can distinguish "denied" from "broken".
	ErrPrincipalNotFound = errors.New("authz: principal not found")
)

// PermissionDeniedError reports that a role lacks a required permission.
type PermissionDeniedError struct {
	Role       Role
	Permission Permission
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("authz: role %s denied %s", e.Role, e.Permission)
}

// HasPermission reports whether the role holds the permission. Pure set
// membership: no I/O, deterministic for all inputs drawn from the closed
// role and permission sets.
func HasPermission(role Role, perm Permission) bool {
	_, ok := PermissionsFor(role)[perm]
	return ok
}

// RequirePermission is the assertion form of HasPermission for call sites
// where continuing without the permission would be a logic error.
func RequirePermission(role Role, perm Permission) error {
	if !HasPermission(role, perm) {
		return &PermissionDeniedError{Role: role, Permission: perm}
	}
	return nil
}

// DirectoryRecord is the canonical tenant, role and status of a user as held
// by the external store.
type DirectoryRecord struct {
	TenantID int64
	Role     Role
	IsActive bool
}

// Directory resolves users against the canonical store. Implementations
// return ErrPrincipalNotFound when the id does not resolve.
type Directory interface {
	Lookup(ctx context.Context, userID int64) (DirectoryRecord, error)
}

// Engine answers permission questions for principals. All operations are
// pure set membership except UserPermissions, which performs one directory
// lookup to resolve the user's current role.
type Engine struct {
	directory Directory
}

// NewEngine constructs an Engine over the given directory.
func NewEngine(directory Directory) *Engine {
	return &Engine{directory: directory}
}

// UserPermissions resolves the user's current role from the directory and
// returns the permissions granted to it. A missing principal propagates as
// ErrPrincipalNotFound, never as an empty set.
func (e *Engine) UserPermissions(ctx context.Context, userID int64) ([]Permission, error) {
	record, err := e.directory.Lookup(ctx, userID)
	if err != nil {
		return nil, err
	}
	return GrantedPermissions(record.Role), nil
}

// Lookup exposes the directory record for pipeline use.
func (e *Engine) Lookup(ctx context.Context, userID int64) (DirectoryRecord, error) {
	return e.directory.Lookup(ctx, userID)
}
