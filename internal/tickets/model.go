package tickets

import (
	"fmt"
	"time"
)

// Status tracks a repair ticket through the shop workflow.
type Status string

const (
	StatusNew           Status = "NEW"
	StatusInProgress    Status = "IN_PROGRESS"
	StatusAwaitingParts Status = "AWAITING_PARTS"
	StatusReady         Status = "READY"
	StatusClosed        Status = "CLOSED"
)

// ParseStatus validates a submitted or stored status value.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusNew, StatusInProgress, StatusAwaitingParts, StatusReady, StatusClosed:
		return Status(value), nil
	}
	return "", fmt.Errorf("tickets: unknown status %q", value)
}

// Ticket represents a repair job for a customer device. Every ticket belongs
// to exactly one tenant; it is never visible outside it.
type Ticket struct {
	ID           int64
	TenantID     int64
	Reference    string
	CustomerName string
	Device       string
	Issue        string
	Status       Status
	AssignedTo   *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
