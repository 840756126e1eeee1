package tickets

type CreateTicketRequest struct {
	CustomerName string `json:"customer_name" validate:"required,max=200"`
	Device       string `json:"device" validate:"required,max=200"`
	Issue        string `json:"issue" validate:"required,max=2000"`
}

type UpdateTicketRequest struct {
	CustomerName *string `json:"customer_name,omitempty" validate:"omitempty,max=200"`
	Device       *string `json:"device,omitempty" validate:"omitempty,max=200"`
	Issue        *string `json:"issue,omitempty" validate:"omitempty,max=2000"`
	Status       *string `json:"status,omitempty"`
}

type AssignTicketRequest struct {
	AssignedTo int64 `json:"assigned_to" validate:"required,gt=0"`
}

type ListTicketsRequest struct {
	Status *Status
	Search *string
	Limit  int `validate:"gte=0,lte=500"`
	Offset int `validate:"gte=0"`
}
