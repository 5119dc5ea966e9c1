package support

import (
	"time"

	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/pagination"
)

// CreateTicketInput is the customer support request.
type CreateTicketInput struct {
	Title   string
	Message string
}

// UpdateStatusInput is the admin resolve/reopen request.
type UpdateStatusInput struct {
	TicketID    uuid.UUID
	Status      string
	ActorUserID uuid.UUID
}

// AdminListInput filters the admin ticket listing.
type AdminListInput struct {
	Status     string
	Pagination pagination.Params
}

type TicketDTO struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"userId"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	Status    enums.TicketStatus `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type TicketList = pagination.Page[TicketDTO]

func FromModel(t *models.SupportTicket) TicketDTO {
	return TicketDTO{
		ID:        t.ID,
		UserID:    t.UserID,
		Title:     t.Title,
		Message:   t.Message,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toPage(rows []models.SupportTicket, limit int) *TicketList {
	items := make([]TicketDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	page := pagination.Paginate(items, limit, func(t TicketDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	return &page
}
