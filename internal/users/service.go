package users

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fixflow-app/fixflow/internal/authz"
	"github.com/fixflow-app/fixflow/internal/shared"
)

// Invalidator drops a user's cached permission set. Role changes and
// deactivations must invalidate before the affected user's next read.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// Service handles user management business logic, including the self-action
// guard: a principal may never change its own role or deactivate itself, no
// matter what the authority table grants.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
	audit       *shared.AuditLogger
	logger      *slog.Logger
}

// NewService builds Service instance. Invalidator and audit may be nil in
// tests.
func NewService(repo RepositoryPort, invalidator Invalidator, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, invalidator: invalidator, audit: audit, logger: logger}
}

// List returns all users of the principal's tenant.
func (s *Service) List(ctx context.Context, principal authz.Principal) ([]User, error) {
	return s.repo.ListUsers(ctx, principal.TenantID)
}

// Get fetches one user of the principal's tenant.
func (s *Service) Get(ctx context.Context, principal authz.Principal, id int64) (User, error) {
	return s.repo.GetUser(ctx, principal.TenantID, id)
}

// InviteResult carries the created account plus its one-time password.
type InviteResult struct {
	User         User
	TempPassword string
}

// Invite creates a new user in the principal's tenant with a generated
// one-time password.
func (s *Service) Invite(ctx context.Context, principal authz.Principal, email, name string, role authz.Role) (InviteResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	tempPassword := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return InviteResult{}, err
	}
	user, err := s.repo.CreateUser(ctx, principal.TenantID, email, strings.TrimSpace(name), string(hash), role)
	if err != nil {
		return InviteResult{}, err
	}
	return InviteResult{User: user, TempPassword: tempPassword}, nil
}

// ChangeRole replaces a user's role. Self-elevation (or self-demotion) is
// rejected regardless of the acting role, ADMIN included.
func (s *Service) ChangeRole(ctx context.Context, principal authz.Principal, targetID int64, role authz.Role) (User, error) {
	if err := authz.ValidateSelfAction(principal, targetID); err != nil {
		return User{}, err
	}
	user, err := s.repo.UpdateRole(ctx, principal.TenantID, targetID, role)
	if err != nil {
		return User{}, err
	}
	s.recordChange(ctx, principal, shared.AuditActionRoleChanged, targetID, map[string]any{"role": string(role)})
	s.invalidate(ctx, targetID)
	return user, nil
}

// Deactivate disables a user account. Deactivating oneself is rejected
// regardless of role.
func (s *Service) Deactivate(ctx context.Context, principal authz.Principal, targetID int64) error {
	if err := authz.ValidateSelfAction(principal, targetID); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, principal.TenantID, targetID, false); err != nil {
		return err
	}
	s.recordChange(ctx, principal, shared.AuditActionDeactivated, targetID, nil)
	s.invalidate(ctx, targetID)
	return nil
}

// Reactivate re-enables a user account.
func (s *Service) Reactivate(ctx context.Context, principal authz.Principal, targetID int64) error {
	if err := s.repo.SetActive(ctx, principal.TenantID, targetID, true); err != nil {
		return err
	}
	s.invalidate(ctx, targetID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, userID); err != nil && s.logger != nil {
		s.logger.Warn("invalidate permission cache", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

func (s *Service) recordChange(ctx context.Context, principal authz.Principal, action string, targetID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  principal.UserID,
		TenantID: principal.TenantID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(targetID, 10),
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("record audit", slog.Any("error", err))
	}
}
