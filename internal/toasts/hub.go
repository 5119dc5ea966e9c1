package toasts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

// Notifier is what domain services use to push feedback to the acting user.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.ToastKind, message string)
}

// Hub owns one Queue per identity. Create it at process start and Close it on shutdown.
type Hub struct {
	mu              sync.Mutex
	queues          map[string]*Queue
	closed          bool
	defaultDuration time.Duration
	logg            *logger.Logger
}

// NewHub builds a hub. A non-positive defaultDuration falls back to DefaultDuration.
func NewHub(defaultDuration time.Duration, logg *logger.Logger) *Hub {
	if defaultDuration <= 0 {
		defaultDuration = DefaultDuration
	}
	return &Hub{
		queues:          make(map[string]*Queue),
		defaultDuration: defaultDuration,
		logg:            logg,
	}
}

// DefaultDuration is used when a client adds a toast without a duration.
func (h *Hub) DefaultDuration() time.Duration {
	return h.defaultDuration
}

// Queue returns the queue for key, creating it on first use. After Close it
// returns a closed queue so callers never have to nil-check.
func (h *Hub) Queue(key string) *Queue {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		q := NewQueue()
		q.Close()
		return q
	}
	q, ok := h.queues[key]
	if !ok {
		q = NewQueue()
		h.queues[key] = q
	}
	return q
}

// Notify adds a toast for userID using the default duration for kind.
func (h *Hub) Notify(ctx context.Context, userID uuid.UUID, kind enums.ToastKind, message string) {
	if h == nil || userID == uuid.Nil {
		return
	}
	toast := h.Queue(userID.String()).Add(message, kind, h.DurationFor(kind))
	if h.logg != nil {
		h.logg.Debug(h.logg.WithFields(ctx, map[string]any{
			"toast_id":   toast.ID,
			"toast_kind": kind,
			"user_id":    userID.String(),
		}), "toast.queued")
	}
}

// DurationFor returns the convenience default for kind.
func (h *Hub) DurationFor(kind enums.ToastKind) time.Duration {
	switch kind {
	case enums.ToastKindSuccess:
		return SuccessDuration
	case enums.ToastKindError:
		return ErrorDuration
	default:
		return h.defaultDuration
	}
}

// Close tears down every queue. Further calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for key, q := range h.queues {
		q.Close()
		delete(h.queues, key)
	}
	h.closed = true
}
