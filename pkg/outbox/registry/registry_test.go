package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/payloads"
)

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{DomainTopic: "domain"})
	require.NoError(t, err)
	return reg
}

func mustEnvelope(t *testing.T, data []byte) json.RawMessage {
	t.Helper()
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.EnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return body
}

func requireNonRetryable(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var nonRetry NonRetryableError
	require.True(t, errors.As(err, &nonRetry), "expected non-retryable error, got %T", err)
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	require.Error(t, err)
}

func TestEventRegistryRoutesEveryEventToDomainTopic(t *testing.T) {
	reg := newTestEventRegistry(t)
	for _, eventType := range []enums.OutboxEventType{
		enums.EventOrderCreated,
		enums.EventOrderStatusChanged,
		enums.EventSupportTicketStatusChanged,
	} {
		desc, ok := reg.Descriptor(eventType)
		require.True(t, ok, "missing descriptor for %s", eventType)
		require.Equal(t, "domain", desc.Topic)
	}
}

func TestEventRegistryResolveOrderStatusChanged(t *testing.T) {
	reg := newTestEventRegistry(t)
	orderID := uuid.New()

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       mustEnvelope(t, []byte(`{"order_id":"`+orderID.String()+`","from_status":"pending","to_status":"completed"}`)),
	})
	require.NoError(t, err)

	payload, ok := resolved.Payload.(*payloads.OrderStatusChangedEvent)
	require.True(t, ok, "unexpected payload type %T", resolved.Payload)
	require.Equal(t, orderID, payload.OrderID)
	require.Equal(t, enums.OrderStatusPending, payload.FromStatus)
	require.Equal(t, enums.OrderStatusCompleted, payload.ToStatus)
	require.NotEmpty(t, resolved.Envelope.EventID)
}

func TestEventRegistryResolveRejectsBadRows(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("order_exploded"),
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateSupportTicket,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`null`)),
		},
		"future envelope": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":99,"eventId":"x","data":{}}`),
		},
		"broken envelope": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{not json`),
		},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			requireNonRetryable(t, err)
		})
	}
}

func TestEventRegistryDecodeData(t *testing.T) {
	reg := newTestEventRegistry(t)

	payload, ok, err := reg.DecodeData(enums.EventSupportTicketStatusChanged, json.RawMessage(`{"to_status":"resolved"}`))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, enums.TicketStatusResolved, payload.(*payloads.SupportTicketStatusChangedEvent).ToStatus)

	_, ok, err = reg.DecodeData(enums.OutboxEventType("nope"), json.RawMessage(`{}`))
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = reg.DecodeData(enums.EventOrderCreated, json.RawMessage(`[`))
	require.Error(t, err)
	require.True(t, ok)
}
