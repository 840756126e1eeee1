package tickets

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/fixflow-app/fixflow/internal/authz"
)

// Service handles ticket business logic. The tenant always comes from the
// authorized principal, never from request input.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns the principal's tenant tickets matching the filters.
func (s *Service) List(ctx context.Context, principal authz.Principal, filters ListTicketsRequest) ([]Ticket, int, error) {
	return s.repo.ListTickets(ctx, principal.TenantID, filters)
}

// Get fetches one ticket of the principal's tenant.
func (s *Service) Get(ctx context.Context, principal authz.Principal, id int64) (Ticket, error) {
	return s.repo.GetTicket(ctx, principal.TenantID, id)
}

// Create opens a new ticket in state NEW with a generated reference.
func (s *Service) Create(ctx context.Context, principal authz.Principal, req CreateTicketRequest) (Ticket, error) {
	ticket := Ticket{
		Reference:    newReference(),
		CustomerName: strings.TrimSpace(req.CustomerName),
		Device:       strings.TrimSpace(req.Device),
		Issue:        strings.TrimSpace(req.Issue),
		Status:       StatusNew,
	}
	return s.repo.CreateTicket(ctx, principal.TenantID, ticket)
}

// Update applies the provided field changes to a ticket.
func (s *Service) Update(ctx context.Context, principal authz.Principal, id int64, req UpdateTicketRequest) (Ticket, error) {
	ticket, err := s.repo.GetTicket(ctx, principal.TenantID, id)
	if err != nil {
		return Ticket{}, err
	}
	if req.CustomerName != nil {
		ticket.CustomerName = strings.TrimSpace(*req.CustomerName)
	}
	if req.Device != nil {
		ticket.Device = strings.TrimSpace(*req.Device)
	}
	if req.Issue != nil {
		ticket.Issue = strings.TrimSpace(*req.Issue)
	}
	if req.Status != nil {
		status, err := ParseStatus(*req.Status)
		if err != nil {
			return Ticket{}, err
		}
		ticket.Status = status
	}
	return s.repo.UpdateTicket(ctx, principal.TenantID, ticket)
}

// Assign hands the ticket to a technician.
func (s *Service) Assign(ctx context.Context, principal authz.Principal, id, assigneeID int64) (Ticket, error) {
	ticket, err := s.repo.GetTicket(ctx, principal.TenantID, id)
	if err != nil {
		return Ticket{}, err
	}
	ticket.AssignedTo = &assigneeID
	if ticket.Status == StatusNew {
		ticket.Status = StatusInProgress
	}
	return s.repo.UpdateTicket(ctx, principal.TenantID, ticket)
}

// Delete removes a ticket.
func (s *Service) Delete(ctx context.Context, principal authz.Principal, id int64) error {
	return s.repo.DeleteTicket(ctx, principal.TenantID, id)
}

// newReference derives a short human-readable ticket reference.
func newReference() string {
	id := uuid.NewString()
	return "FX-" + strings.ToUpper(id[:8])
}
