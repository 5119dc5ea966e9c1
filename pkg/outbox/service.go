package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

// DomainEvent is what a service records alongside its own writes.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	var errs error
	if !e.EventType.IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("invalid event type %q", e.EventType))
	}
	if !e.AggregateType.IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("invalid aggregate type %q", e.AggregateType))
	}
	if e.AggregateID == uuid.Nil {
		errs = multierr.Append(errs, errors.New("aggregate id required"))
	}
	return errs
}

type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

type Service struct {
	repo  *Repository
	logg  *logger.Logger
	clock func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, clock: time.Now}
}

// seal wraps the event data in a fresh versioned envelope.
func (s *Service) seal(event DomainEvent) (PayloadEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("encode %s payload: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = s.clock()
	}
	return PayloadEnvelope{
		Version:    EnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: occurred.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}, nil
}

// Emit inserts the event through tx. It becomes visible to the relay only
// if the caller's transaction commits.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if err := event.validate(); err != nil {
		return err
	}

	envelope, err := s.seal(event)
	if err != nil {
		return err
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	err = s.repo.Insert(tx.WithContext(ctx), models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       body,
	})
	if err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":       envelope.EventID,
			"event_type":     event.EventType,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID.String(),
		}), "outbox.event.queued")
	}
	return nil
}
