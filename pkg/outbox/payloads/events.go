package payloads

import (
	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when a customer places a booking.
type OrderCreatedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	UserID    uuid.UUID         `json:"user_id"`
	ProductID uuid.UUID         `json:"product_id"`
	Date      string            `json:"date"`
	Status    enums.OrderStatus `json:"status"`
}

// OrderStatusChangedEvent is emitted when an admin moves a booking to a new status.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	UserID     uuid.UUID         `json:"user_id"`
	ProductID  uuid.UUID         `json:"product_id"`
	Date       string            `json:"date"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
}

// SupportTicketStatusChangedEvent is emitted when an admin resolves or reopens a ticket.
type SupportTicketStatusChangedEvent struct {
	TicketID   uuid.UUID          `json:"ticket_id"`
	UserID     uuid.UUID          `json:"user_id"`
	Title      string             `json:"title"`
	FromStatus enums.TicketStatus `json:"from_status"`
	ToStatus   enums.TicketStatus `json:"to_status"`
}
