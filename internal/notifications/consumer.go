package notifications

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/idempotency"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/registry"
	pkgpubsub "github.com/occasionbuddy/occasionbuddy-backend/pkg/pubsub"
)

const notificationConsumer = "account-notifications"

type creator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer turns order and support ticket events into persisted notifications.
type Consumer struct {
	repo         creator
	subscription pkgpubsub.Receiver
	registry     *registry.EventRegistry
	claims       idempotency.Claimer
	logg         *logger.Logger
}

// NewConsumer builds a notification consumer.
func NewConsumer(repo creator, subscription pkgpubsub.Receiver, events *registry.EventRegistry, manager idempotency.Claimer, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if events == nil {
		return nil, fmt.Errorf("event registry required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		registry:     events,
		claims:       manager,
		logg:         logg,
	}, nil
}

// Run consumes until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return pkgpubsub.Consume(ctx, c.subscription, c.process)
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) pkgpubsub.Disposition {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	ctx = c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	envelope, eventID, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(ctx, "notifications.envelope_invalid", err)
		return pkgpubsub.Ack
	}
	ctx = c.logg.WithField(ctx, "event_id", eventID.String())

	payload, known, err := c.registry.DecodeData(eventType, envelope.Data)
	switch {
	case !known:
		c.logg.Debug(ctx, "notifications.event_skipped")
		return pkgpubsub.Ack
	case err != nil:
		c.logg.Error(ctx, "notifications.payload_invalid", err)
		return pkgpubsub.Ack
	}

	notification, ok := compose(payload)
	if !ok {
		c.logg.Debug(ctx, "notifications.status_not_handled")
		return pkgpubsub.Ack
	}

	err = idempotency.Once(ctx, c.claims, notificationConsumer, eventID, func(ctx context.Context) error {
		return c.repo.Create(ctx, notification)
	})
	switch {
	case errors.Is(err, idempotency.ErrAlreadyProcessed):
		c.logg.Info(ctx, "notifications.duplicate_event")
	case errors.Is(err, idempotency.ErrClaimFailed):
		c.logg.Error(ctx, "notifications.idempotency_failed", err)
		return pkgpubsub.Nack
	case err != nil:
		c.logg.Error(ctx, "notifications.create_failed", err)
		return pkgpubsub.Nack
	default:
		c.logg.Info(c.logg.WithFields(ctx, map[string]any{
			"notification_id": notification.ID.String(),
			"user_id":         notification.UserID.String(),
		}), "notifications.created")
	}
	return pkgpubsub.Ack
}
