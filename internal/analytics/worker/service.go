package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/internal/analytics/router"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/analytics/types"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/idempotency"
	pkgpubsub "github.com/occasionbuddy/occasionbuddy-backend/pkg/pubsub"
)

const consumerName = "analytics"

// Handler processes one decoded analytics envelope.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

// Service feeds the analytics subscription into a Handler, at most once per
// event id.
type Service struct {
	subscription pkgpubsub.Receiver
	handler      Handler
	claims       idempotency.Claimer
	logg         *logger.Logger
}

func NewService(subscription pkgpubsub.Receiver, handler Handler, claims idempotency.Claimer, logg *logger.Logger) (*Service, error) {
	switch {
	case subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case claims == nil:
		return nil, errors.New("idempotency manager is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{subscription: subscription, handler: handler, claims: claims, logg: logg}, nil
}

// Run consumes until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	return pkgpubsub.Consume(ctx, s.subscription, s.process)
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) pkgpubsub.Disposition {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	env, err := decodeMessage(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "analytics.envelope_invalid")
		return pkgpubsub.Ack
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":       env.EventID,
		"event_type":     string(env.EventType),
		"aggregate_type": string(env.AggregateType),
		"aggregate_id":   env.AggregateID,
		"occurred_at":    env.OccurredAt.Format(time.RFC3339Nano),
	})

	eventID, err := uuid.Parse(env.EventID)
	if err != nil {
		s.logg.Warn(ctx, "analytics.event_id_invalid")
		return pkgpubsub.Ack
	}

	err = idempotency.Once(ctx, s.claims, consumerName, eventID, func(ctx context.Context) error {
		err := s.handler.Handle(ctx, env)
		if errors.Is(err, router.ErrUnsupportedEventType) || errors.Is(err, router.ErrInvalidPayload) {
			return idempotency.Permanent(err)
		}
		return err
	})
	switch {
	case err == nil:
		s.logg.Info(ctx, "analytics.event_handled")
	case errors.Is(err, idempotency.ErrAlreadyProcessed):
		s.logg.Info(ctx, "analytics.duplicate_event")
	case errors.Is(err, idempotency.ErrClaimFailed):
		s.logg.Error(ctx, "analytics.idempotency_failed", err)
		return pkgpubsub.Nack
	case errors.Is(err, router.ErrUnsupportedEventType):
		s.logg.Debug(ctx, "analytics.event_skipped")
	case idempotency.IsPermanent(err):
		s.logg.Error(ctx, "analytics.payload_invalid", err)
	default:
		s.logg.Error(ctx, "analytics.handler_failed", err)
		return pkgpubsub.Nack
	}
	return pkgpubsub.Ack
}

// decodeMessage reads the outbox envelope from the body and the routing
// fields from the attributes. The envelope's event id and timestamp win;
// the attributes only fill gaps.
func decodeMessage(msg *gcppubsub.Message) (types.Envelope, error) {
	var body outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &body); err != nil {
		return types.Envelope{}, fmt.Errorf("decode payload envelope: %w", err)
	}
	if err := body.CheckVersion(); err != nil {
		return types.Envelope{}, err
	}
	attr := func(name string) string { return strings.TrimSpace(msg.Attributes[name]) }

	eventType, err := enums.ParseOutboxEventType(attr("event_type"))
	if err != nil {
		return types.Envelope{}, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return types.Envelope{}, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID := attr("aggregate_id")
	if aggregateID == "" {
		return types.Envelope{}, errors.New("aggregate_id missing")
	}

	eventID := cmpOr(strings.TrimSpace(body.EventID), attr("event_id"))
	if eventID == "" {
		return types.Envelope{}, errors.New("event_id missing")
	}

	occurredAt := body.OccurredAt
	if occurredAt.IsZero() {
		if parsed, err := time.Parse(time.RFC3339Nano, attr("created_at")); err == nil {
			occurredAt = parsed
		}
	}

	return types.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Payload:       body.Data,
	}, nil
}

func cmpOr(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
