package tickets

import (
	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
)

// CreateRequest is the body of POST /api/tickets.
type CreateRequest struct {
	Subject    string `json:"subject"`
	Message    string `json:"message"`
	Priority   string `json:"priority,omitempty"`
	ShipmentId string `json:"shipment_id,omitempty"`
}

type Detail struct {
	TicketId   string          `json:"ticket_id"`
	OwnerId    string          `json:"owner_id"`
	ShipmentId string          `json:"shipment_id,omitempty"`
	Subject    string          `json:"subject"`
	Status     string          `json:"status"`
	Priority   string          `json:"priority"`
	CreatedAt  rfctime.RFC3339 `json:"created_at"`
	UpdatedAt  rfctime.RFC3339 `json:"updated_at"`

	// Messages is filled only for a single ticket.
	Messages []Message `json:"messages,omitempty"`
}

type Message struct {
	MessageId int64           `json:"message_id"`
	AuthorId  string          `json:"author_id"`
	FromStaff bool            `json:"from_staff"`
	Body      string          `json:"body"`
	CreatedAt rfctime.RFC3339 `json:"created_at"`
}

type MessageRequest struct {
	Body string `json:"body"`
}

type StatusRequest struct {
	Status string `json:"status"`
}
