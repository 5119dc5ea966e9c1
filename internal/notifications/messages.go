package notifications

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/payloads"
)

// compose maps a decoded domain payload to the notification it should create.
// ok is false when the event does not notify anyone.
func compose(payload any) (notification *models.Notification, ok bool) {
	switch p := payload.(type) {
	case *payloads.OrderCreatedEvent:
		return build(p.UserID, "Booking Received",
			fmt.Sprintf("Your booking for %s has been received and is pending confirmation.", p.Date))
	case *payloads.OrderStatusChangedEvent:
		switch p.ToStatus {
		case enums.OrderStatusConfirmed:
			return build(p.UserID, "Booking Confirmed",
				fmt.Sprintf("Your booking for %s has been confirmed.", p.Date))
		case enums.OrderStatusCompleted:
			return build(p.UserID, "Booking Completed",
				fmt.Sprintf("Your booking for %s has been completed. Thank you for choosing OccasionBuddy!", p.Date))
		case enums.OrderStatusCancelled:
			return build(p.UserID, "Booking Cancelled",
				fmt.Sprintf("Your booking for %s has been cancelled.", p.Date))
		default:
			return nil, false
		}
	case *payloads.SupportTicketStatusChangedEvent:
		switch p.ToStatus {
		case enums.TicketStatusResolved:
			return build(p.UserID, "Support Ticket Resolved",
				fmt.Sprintf("Your support ticket %q has been resolved.", p.Title))
		case enums.TicketStatusOpen:
			return build(p.UserID, "Support Ticket Reopened",
				fmt.Sprintf("Your support ticket %q has been reopened.", p.Title))
		default:
			return nil, false
		}
	default:
		return nil, false
	}
}

func build(userID uuid.UUID, title, message string) (*models.Notification, bool) {
	if userID == uuid.Nil {
		return nil, false
	}
	return &models.Notification{UserID: userID, Title: title, Message: message}, true
}
