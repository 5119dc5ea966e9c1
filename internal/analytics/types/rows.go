package types

import (
	"encoding/json"
	"time"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
)

// BookingEventRow mirrors the booking_events BigQuery schema.
type BookingEventRow struct {
	EventID     string               `bigquery:"event_id"`
	EventType   string               `bigquery:"event_type"`
	OccurredAt  time.Time            `bigquery:"occurred_at"`
	OrderID     string               `bigquery:"order_id"`
	UserID      string               `bigquery:"user_id"`
	ProductID   string               `bigquery:"product_id"`
	FromStatus  cbigquery.NullString `bigquery:"from_status"`
	ToStatus    string               `bigquery:"to_status"`
	BookingDate string               `bigquery:"booking_date"`
}

// Envelope is a decoded analytics message.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Payload       json.RawMessage
}
