// Package idempotency dedupes Pub/Sub deliveries per consumer.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/redis"
)

// Manager marks event ids as processed for one consumer using SETNX with a TTL.
// Keys look like ob:idempotency:evt:<consumer>:<event_id>.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// CheckAndMarkProcessed reports true when consumer already handled eventID.
// Otherwise it claims the id and returns false.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, err
	}
	return !claimed, nil
}

// Delete releases a claim so a redelivery can be processed again.
func (m *Manager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) processedKey(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}

var (
	// ErrAlreadyProcessed is returned by Once for an event the consumer has handled before.
	ErrAlreadyProcessed = errors.New("event already processed")
	// ErrClaimFailed wraps store failures while claiming an event.
	ErrClaimFailed = errors.New("claim event")
)

// Claimer is satisfied by *Manager.
type Claimer interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks a handler error that a redelivery would repeat. Once keeps
// the claim for such errors.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was wrapped by Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Once claims eventID for consumer and then runs fn. When fn fails with a
// non permanent error the claim is released so the redelivery runs fn again.
func Once(ctx context.Context, c Claimer, consumer string, eventID uuid.UUID, fn func(context.Context) error) error {
	already, err := c.CheckAndMarkProcessed(ctx, consumer, eventID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrClaimFailed, err)
	}
	if already {
		return ErrAlreadyProcessed
	}
	if err := fn(ctx); err != nil {
		if !IsPermanent(err) {
			_ = c.Delete(context.WithoutCancel(ctx), consumer, eventID)
		}
		return err
	}
	return nil
}
