package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/registry"
)

const testTopic = "ob-domain-events"

func TestDrainRetriesFailedRowAndPublishesTheRest(t *testing.T) {
	first, second := orderRow(t, 0), orderRow(t, 0)
	claims := &memClaims{rows: []models.OutboxEvent{first, second}}
	out := &scriptedSender{errs: []error{errors.New("unavailable"), nil}}
	relay := newTestRelay(t, claims, &memDeadLetter{}, out, config.OutboxConfig{MaxAttempts: 5})

	claimed, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, claimed)
	require.Equal(t, []uuid.UUID{first.ID}, claims.failed)
	require.Equal(t, []uuid.UUID{second.ID}, claims.published)
	require.Empty(t, claims.terminal)
}

func TestDrainSendsEnvelopeWithRoutingAttributes(t *testing.T) {
	row := orderRow(t, 0)
	row.EventType = enums.EventOrderStatusChanged
	row.CreatedAt = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	out := &scriptedSender{}
	relay := newTestRelay(t, &memClaims{rows: []models.OutboxEvent{row}}, &memDeadLetter{}, out, config.OutboxConfig{})

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, out.sent, 1)
	require.Equal(t, testTopic, out.topics[0])

	msg := out.sent[0]
	require.JSONEq(t, string(row.Payload), string(msg.Data))
	require.Equal(t, map[string]string{
		"event_id":       "evt-" + row.ID.String(),
		"event_type":     "order_status_changed",
		"aggregate_type": "order",
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     "2026-05-01T09:30:00Z",
	}, msg.Attributes)
}

func TestDrainDeadLettersUnresolvableRow(t *testing.T) {
	row := orderRow(t, 0)
	claims := &memClaims{rows: []models.OutboxEvent{row}}
	dlq := &memDeadLetter{}
	out := &scriptedSender{}
	relay := newTestRelay(t, claims, dlq, out, config.OutboxConfig{})
	relay.resolver = resolverFunc(func(models.OutboxEvent) (*registry.ResolvedEvent, error) {
		return nil, registry.NewNonRetryableError(errors.New("aggregate mismatch"))
	})

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Empty(t, out.sent)
	require.Len(t, dlq.entries, 1)
	require.Equal(t, row.ID, dlq.entries[0].EventID)
	require.Equal(t, enums.OutboxDLQReasonNonRetryable, dlq.entries[0].ErrorReason)
	require.JSONEq(t, string(row.Payload), string(dlq.entries[0].Payload))
	require.Equal(t, []uuid.UUID{row.ID}, claims.terminal)
}

func TestDrainDeadLettersWhenAttemptsRunOut(t *testing.T) {
	row := orderRow(t, 2)
	claims := &memClaims{rows: []models.OutboxEvent{row}}
	dlq := &memDeadLetter{}
	out := &scriptedSender{errs: []error{errors.New("deadline exceeded")}}
	relay := newTestRelay(t, claims, dlq, out, config.OutboxConfig{MaxAttempts: 3})

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	require.Equal(t, enums.OutboxDLQReasonMaxAttempts, dlq.entries[0].ErrorReason)
	require.Contains(t, *dlq.entries[0].ErrorMessage, "deadline exceeded")
	require.Empty(t, claims.failed)
}

func TestDrainDeadLettersNonRetryableSendError(t *testing.T) {
	row := orderRow(t, 0)
	dlq := &memDeadLetter{}
	out := &scriptedSender{errs: []error{registry.NewNonRetryableError(errors.New("no publisher"))}}
	relay := newTestRelay(t, &memClaims{rows: []models.OutboxEvent{row}}, dlq, out, config.OutboxConfig{})

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	require.Equal(t, enums.OutboxDLQReasonNonRetryable, dlq.entries[0].ErrorReason)
}

func TestDrainPropagatesClaimError(t *testing.T) {
	claims := &memClaims{fetchErr: errors.New("connection reset")}
	relay := newTestRelay(t, claims, &memDeadLetter{}, &scriptedSender{}, config.OutboxConfig{})

	_, err := relay.drain(context.Background())
	require.ErrorContains(t, err, "connection reset")
}

func TestRunReturnsWhenCancelled(t *testing.T) {
	relay := newTestRelay(t, &memClaims{}, &memDeadLetter{}, &scriptedSender{}, config.OutboxConfig{PollIntervalMS: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, relay.Run(ctx), context.Canceled)
}

func TestClientSenderWithoutPublisherIsNonRetryable(t *testing.T) {
	err := clientSender{client: fakeTopicClient{}}.Send(context.Background(), testTopic, &gcppubsub.Message{})
	var nonRetryable registry.NonRetryableError
	require.ErrorAs(t, err, &nonRetryable)
}

func TestNewRelayRequiresDependencies(t *testing.T) {
	_, err := NewRelay(RelayParams{})
	require.Error(t, err)
}

func newTestRelay(t *testing.T, claims claimStore, dlq deadLetterStore, out sender, cfg config.OutboxConfig) *Relay {
	t.Helper()
	relay, err := NewRelay(RelayParams{
		Outbox:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:         fakeTx{},
		PubSub:     fakeTopicClient{},
		Claims:     claims,
		DeadLetter: dlq,
		Resolver:   resolverFunc(resolveForTest),
		Sender:     out,
	})
	require.NoError(t, err)
	relay.jitter = func(d time.Duration) time.Duration { return d }
	return relay
}

func orderRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"orderId":"x"}`),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
	}
}

type resolverFunc func(models.OutboxEvent) (*registry.ResolvedEvent, error)

func (f resolverFunc) Resolve(row models.OutboxEvent) (*registry.ResolvedEvent, error) {
	return f(row)
}

func resolveForTest(row models.OutboxEvent) (*registry.ResolvedEvent, error) {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{EventType: row.EventType, AggregateType: row.AggregateType, Topic: testTopic},
		Envelope:   outbox.PayloadEnvelope{EventID: "evt-" + row.ID.String()},
	}, nil
}

type memClaims struct {
	rows      []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (m *memClaims) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return m.rows, m.fetchErr
}

func (m *memClaims) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	m.published = append(m.published, id)
	return nil
}

func (m *memClaims) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	m.failed = append(m.failed, id)
	return nil
}

func (m *memClaims) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	m.terminal = append(m.terminal, id)
	return nil
}

type memDeadLetter struct {
	entries []models.OutboxDLQ
}

func (m *memDeadLetter) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	m.entries = append(m.entries, entry)
	return nil
}

// scriptedSender returns errs in order, then succeeds.
type scriptedSender struct {
	errs   []error
	sent   []*gcppubsub.Message
	topics []string
}

func (s *scriptedSender) Send(_ context.Context, topic string, msg *gcppubsub.Message) error {
	s.sent = append(s.sent, msg)
	s.topics = append(s.topics, topic)
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

type fakeTx struct{}

func (fakeTx) Ping(context.Context) error { return nil }

func (fakeTx) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakeTopicClient struct{}

func (fakeTopicClient) Ping(context.Context) error { return nil }

func (fakeTopicClient) Publisher(string) *gcppubsub.Publisher { return nil }
