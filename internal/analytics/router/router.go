// Package router turns decoded domain events into booking analytics rows.
package router

import (
	"context"
	"errors"
	"fmt"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/occasionbuddy/occasionbuddy-backend/internal/analytics/types"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/payloads"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/registry"
)

// ErrUnsupportedEventType marks events that never produce analytics rows.
var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// ErrInvalidPayload marks payloads that cannot be decoded. Redelivery will not help.
var ErrInvalidPayload = errors.New("invalid analytics payload")

type bookingWriter interface {
	InsertBooking(ctx context.Context, row types.BookingEventRow) error
}

// Router dispatches envelopes to the booking writer.
type Router struct {
	registry *registry.EventRegistry
	writer   bookingWriter
}

func New(events *registry.EventRegistry, writer bookingWriter) (*Router, error) {
	if events == nil {
		return nil, errors.New("event registry required")
	}
	if writer == nil {
		return nil, errors.New("booking writer required")
	}
	return &Router{registry: events, writer: writer}, nil
}

// Handle writes one row for order events and returns ErrUnsupportedEventType otherwise.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	payload, known, err := r.registry.DecodeData(envelope.EventType, envelope.Payload)
	if !known {
		return ErrUnsupportedEventType
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	row, ok := BookingRow(envelope, payload)
	if !ok {
		return ErrUnsupportedEventType
	}
	return r.writer.InsertBooking(ctx, row)
}

// BookingRow builds the row for order payloads. ok is false for any other payload.
func BookingRow(envelope types.Envelope, payload any) (types.BookingEventRow, bool) {
	row := types.BookingEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt.UTC(),
	}
	switch p := payload.(type) {
	case *payloads.OrderCreatedEvent:
		status := p.Status
		if status == "" {
			status = enums.OrderStatusPending
		}
		row.OrderID = p.OrderID.String()
		row.UserID = p.UserID.String()
		row.ProductID = p.ProductID.String()
		row.ToStatus = string(status)
		row.BookingDate = p.Date
		return row, true
	case *payloads.OrderStatusChangedEvent:
		row.OrderID = p.OrderID.String()
		row.UserID = p.UserID.String()
		row.ProductID = p.ProductID.String()
		row.FromStatus = cbigquery.NullString{StringVal: string(p.FromStatus), Valid: p.FromStatus != ""}
		row.ToStatus = string(p.ToStatus)
		row.BookingDate = p.Date
		return row, true
	default:
		return types.BookingEventRow{}, false
	}
}
