package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
)

// SupportTicket is a customer support message.
type SupportTicket struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	Title     string             `gorm:"column:title;not null"`
	Message   string             `gorm:"column:message;type:text;not null"`
	Status    enums.TicketStatus `gorm:"column:status;type:ticket_status;not null;default:open"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (SupportTicket) TableName() string {
	return "support_tickets"
}

func (s *SupportTicket) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
