// Package registry knows every outbox event type: which aggregate emits it,
// which topic carries it and how its payload decodes.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string

	decode func(json.RawMessage) (any, error)
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that can never publish. The relay moves it
// to the DLQ on first sight.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func poison(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

func decoderFor[T any]() func(json.RawMessage) (any, error) {
	return func(raw json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType) EventDescriptor {
	return EventDescriptor{EventType: eventType, AggregateType: aggregate, decode: decoderFor[T]()}
}

// NewEventRegistry routes all domain events to the single domain topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, errors.New("domain topic is required")
	}
	known := []EventDescriptor{
		describe[payloads.OrderCreatedEvent](enums.EventOrderCreated, enums.AggregateOrder),
		describe[payloads.OrderStatusChangedEvent](enums.EventOrderStatusChanged, enums.AggregateOrder),
		describe[payloads.SupportTicketStatusChangedEvent](enums.EventSupportTicketStatusChanged, enums.AggregateSupportTicket),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(known))}
	for _, desc := range known {
		desc.Topic = cfg.DomainTopic
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve checks a row against its descriptor and decodes the payload.
// Every failure is a NonRetryableError since retrying cannot fix the row.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, poison("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, poison("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, poison("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, poison("decode envelope: %w", err)
	}
	if err := envelope.CheckVersion(); err != nil {
		return nil, poison("%w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, poison("payload missing for %s", event.EventType)
	}

	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, poison("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

// DecodeData decodes the data of a consumed envelope. known is false for
// event types this build does not recognise.
func (r *EventRegistry) DecodeData(eventType enums.OutboxEventType, data json.RawMessage) (payload any, known bool, err error) {
	desc, ok := r.entries[eventType]
	if !ok {
		return nil, false, nil
	}
	payload, err = desc.decode(data)
	if err != nil {
		return nil, true, fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	return payload, true, nil
}
