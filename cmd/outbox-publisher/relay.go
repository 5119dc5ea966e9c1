package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/metrics"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	maxIdleBackoff = 10 * time.Second
	jitterCeiling  = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type topicClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type claimStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// sender delivers one message to a topic and waits for the server ack.
type sender interface {
	Send(ctx context.Context, topic string, msg *gcppubsub.Message) error
}

type RelayParams struct {
	Outbox     config.OutboxConfig
	Logger     *logger.Logger
	DB         txRunner
	PubSub     topicClient
	Claims     claimStore
	DeadLetter deadLetterStore
	Resolver   eventResolver
	Metrics    *metrics.OutboxMetrics
	// Sender overrides delivery; nil publishes through PubSub.
	Sender sender
}

// Relay moves committed outbox rows to Pub/Sub. Each claimed row ends the
// batch either published, scheduled for retry, or dead-lettered.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	pubsub      topicClient
	claims      claimStore
	deadLetter  deadLetterStore
	resolver    eventResolver
	sender      sender
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	idle        time.Duration
	jitter      func(time.Duration) time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case p.Claims == nil || p.DeadLetter == nil:
		return nil, errors.New("outbox repositories are required")
	case p.Resolver == nil:
		return nil, errors.New("event registry is required")
	}

	out := p.Sender
	if out == nil {
		out = clientSender{client: p.PubSub}
	}
	return &Relay{
		logg:        p.Logger,
		db:          p.DB,
		pubsub:      p.PubSub,
		claims:      p.Claims,
		deadLetter:  p.DeadLetter,
		resolver:    p.Resolver,
		sender:      out,
		metrics:     p.Metrics,
		batchSize:   positiveOr(p.Outbox.BatchSize, 50),
		maxAttempts: positiveOr(p.Outbox.MaxAttempts, 10),
		idle:        time.Duration(positiveOr(p.Outbox.PollIntervalMS, 500)) * time.Millisecond,
		jitter:      addJitter,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run polls until ctx is cancelled. Empty polls sleep for the idle interval,
// failed batches back off exponentially up to maxIdleBackoff.
func (r *Relay) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": r.db.Ping, "pubsub": r.pubsub.Ping} {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	wait := r.idle
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox.publish.stopped")
			return err
		}

		claimed, err := r.drain(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox.publish.batch_failed", err)
			wait = min(wait*2, maxIdleBackoff)
		case claimed > 0:
			wait = r.idle
			continue
		default:
			wait = r.idle
		}

		if err := sleepCtx(ctx, r.jitter(wait)); err != nil {
			r.logg.Info(ctx, "outbox.publish.stopped")
			return err
		}
	}
}

// drain claims one batch and settles every row inside the same transaction.
func (r *Relay) drain(ctx context.Context) (int, error) {
	claimed := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.claims.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		claimed = len(rows)
		r.metrics.BatchClaimed(claimed)
		for _, row := range rows {
			if err := r.settle(ctx, tx, row, r.deliver(ctx, row)); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDeadLetter
)

type delivery struct {
	outcome outcome
	reason  enums.OutboxDLQErrorReason
	topic   string
	eventID string
	err     error
}

func (r *Relay) deliver(ctx context.Context, row models.OutboxEvent) delivery {
	resolved, err := r.resolver.Resolve(row)
	if err != nil {
		return delivery{outcome: outcomeDeadLetter, reason: enums.OutboxDLQReasonNonRetryable, err: err}
	}

	d := delivery{topic: resolved.Descriptor.Topic, eventID: resolved.Envelope.EventID}
	sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = r.sender.Send(sendCtx, d.topic, buildMessage(row, d.eventID))

	var nonRetryable registry.NonRetryableError
	switch {
	case err == nil:
		d.outcome = outcomePublished
	case errors.As(err, &nonRetryable):
		d.outcome, d.reason, d.err = outcomeDeadLetter, enums.OutboxDLQReasonNonRetryable, err
	case row.AttemptCount+1 >= r.maxAttempts:
		d.outcome, d.reason = outcomeDeadLetter, enums.OutboxDLQReasonMaxAttempts
		d.err = fmt.Errorf("max publish attempts reached: %w", err)
	default:
		d.outcome, d.err = outcomeRetry, err
	}
	return d
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, d delivery) error {
	ctx = r.logg.WithFields(ctx, logFields(row, d))

	switch d.outcome {
	case outcomePublished:
		if err := r.claims.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.logg.Info(ctx, "outbox.publish.sent")
		r.metrics.Delivered(string(row.EventType), metrics.OutboxOutcomePublished)

	case outcomeRetry:
		r.logg.Warn(r.logg.WithField(ctx, "error", d.err.Error()), "outbox.publish.retry")
		if err := r.claims.MarkFailedTx(tx, row.ID, d.err); err != nil {
			return fmt.Errorf("mark failed %s: %w", row.ID, err)
		}
		r.metrics.Delivered(string(row.EventType), metrics.OutboxOutcomeRetried)

	case outcomeDeadLetter:
		r.logg.Warn(r.logg.WithField(ctx, "error", d.err.Error()), "outbox.publish.dead_lettered")
		message := d.err.Error()
		entry := models.OutboxDLQ{
			EventID:       row.ID,
			EventType:     row.EventType,
			AggregateType: row.AggregateType,
			AggregateID:   row.AggregateID,
			Payload:       row.Payload,
			ErrorReason:   d.reason,
			ErrorMessage:  &message,
			AttemptCount:  row.AttemptCount,
			FailedAt:      time.Now().UTC(),
		}
		if err := r.deadLetter.InsertTx(tx, entry); err != nil {
			return fmt.Errorf("insert dlq %s: %w", row.ID, err)
		}
		if err := r.claims.MarkTerminalTx(tx, row.ID, d.err, r.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", row.ID, err)
		}
		r.metrics.Delivered(string(row.EventType), metrics.OutboxOutcomeDeadLettered)
	}
	return nil
}

// buildMessage forwards the stored envelope untouched; consumers route on the attributes.
func buildMessage(row models.OutboxEvent, eventID string) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       eventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func logFields(row models.OutboxEvent, d delivery) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	}
	if d.eventID != "" {
		fields["event_id"] = d.eventID
	}
	if d.topic != "" {
		fields["topic"] = d.topic
	}
	if d.reason != "" {
		fields["dlq_reason"] = d.reason
	}
	return fields
}

type clientSender struct {
	client topicClient
}

func (s clientSender) Send(ctx context.Context, topic string, msg *gcppubsub.Message) error {
	pub := s.client.Publisher(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}
	_, err := pub.Publish(ctx, msg).Get(ctx)
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func addJitter(d time.Duration) time.Duration {
	return d + rand.N(jitterCeiling)
}
