package tickets

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixflow-app/fixflow/internal/shared"
)

// RepositoryPort defines data access for tickets. The tenant id is a
// required parameter on every method so a query can never cross tenants.
type RepositoryPort interface {
	ListTickets(ctx context.Context, tenantID int64, filters ListTicketsRequest) ([]Ticket, int, error)
	GetTicket(ctx context.Context, tenantID, id int64) (Ticket, error)
	CreateTicket(ctx context.Context, tenantID int64, ticket Ticket) (Ticket, error)
	UpdateTicket(ctx context.Context, tenantID int64, ticket Ticket) (Ticket, error)
	DeleteTicket(ctx context.Context, tenantID, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ticketColumns = `id, tenant_id, reference, customer_name, device, issue, status, assigned_to, created_at, updated_at`

func scanTicket(row pgx.Row) (Ticket, error) {
	var t Ticket
	var status string
	if err := row.Scan(&t.ID, &t.TenantID, &t.Reference, &t.CustomerName, &t.Device, &t.Issue, &status, &t.AssignedTo, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Ticket{}, err
	}
	parsed, err := ParseStatus(status)
	if err != nil {
		return Ticket{}, err
	}
	t.Status = parsed
	return t, nil
}

// ListTickets returns tickets of the tenant matching the filters plus the
// unpaginated total.
func (r *Repository) ListTickets(ctx context.Context, tenantID int64, filters ListTicketsRequest) ([]Ticket, int, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE tenant_id = $1`
	countQuery := `SELECT COUNT(*) FROM tickets WHERE tenant_id = $1`
	args := []any{tenantID}

	if filters.Status != nil {
		args = append(args, string(*filters.Status))
		cond := ` AND status = $2`
		query += cond
		countQuery += cond
	}
	if filters.Search != nil {
		args = append(args, "%"+*filters.Search+"%")
		placeholder := "$2"
		if filters.Status != nil {
			placeholder = "$3"
		}
		cond := ` AND (customer_name ILIKE ` + placeholder + ` OR device ILIKE ` + placeholder + ` OR reference ILIKE ` + placeholder + `)`
		query += cond
		countQuery += cond
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ` + itoa(limit) + ` OFFSET ` + itoa(filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tickets []Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, total, rows.Err()
}

// GetTicket fetches one ticket within the tenant.
func (r *Repository) GetTicket(ctx context.Context, tenantID, id int64) (Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE tenant_id = $1 AND id = $2`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, shared.ErrNotFound
		}
		return Ticket{}, err
	}
	return ticket, nil
}

// CreateTicket inserts a ticket into the tenant.
func (r *Repository) CreateTicket(ctx context.Context, tenantID int64, ticket Ticket) (Ticket, error) {
	query := `INSERT INTO tickets (tenant_id, reference, customer_name, device, issue, status, assigned_to, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + ticketColumns
	return scanTicket(r.pool.QueryRow(ctx, query,
		tenantID, ticket.Reference, ticket.CustomerName, ticket.Device, ticket.Issue, string(ticket.Status), ticket.AssignedTo))
}

// UpdateTicket rewrites the mutable ticket fields within the tenant.
func (r *Repository) UpdateTicket(ctx context.Context, tenantID int64, ticket Ticket) (Ticket, error) {
	query := `UPDATE tickets SET customer_name = $3, device = $4, issue = $5, status = $6, assigned_to = $7, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
		RETURNING ` + ticketColumns
	updated, err := scanTicket(r.pool.QueryRow(ctx, query,
		tenantID, ticket.ID, ticket.CustomerName, ticket.Device, ticket.Issue, string(ticket.Status), ticket.AssignedTo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, shared.ErrNotFound
		}
		return Ticket{}, err
	}
	return updated, nil
}

// DeleteTicket removes a ticket within the tenant.
func (r *Repository) DeleteTicket(ctx context.Context, tenantID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func itoa(n int) string {
	if n < 0 {
		n = 0
	}
	return strconv.Itoa(n)
}

var _ RepositoryPort = (*Repository)(nil)
