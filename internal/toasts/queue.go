// Package toasts keeps short-lived client notifications in memory, one queue per identity.
package toasts

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
)

const (
	DefaultDuration = 4000 * time.Millisecond
	SuccessDuration = 3000 * time.Millisecond
	ErrorDuration   = 4000 * time.Millisecond
)

// Toast is one queued message. A zero Duration never expires.
type Toast struct {
	ID        string          `json:"id"`
	Message   string          `json:"message"`
	Kind      enums.ToastKind `json:"type"`
	Duration  time.Duration   `json:"-"`
	CreatedAt time.Time       `json:"createdAt"`
}

// DurationMS is the JSON view of Duration.
func (t Toast) DurationMS() int64 {
	return t.Duration.Milliseconds()
}

// Queue holds toasts in insertion order. Each entry with a positive duration
// owns an independent removal timer.
type Queue struct {
	mu      sync.Mutex
	entries []Toast
	timers  map[string]*time.Timer
	closed  bool
	now     func() time.Time
}

func NewQueue() *Queue {
	return &Queue{timers: make(map[string]*time.Timer), now: time.Now}
}

// Add appends a toast and, when duration > 0, schedules its removal.
// Adding to a closed queue returns the toast without storing it.
func (q *Queue) Add(message string, kind enums.ToastKind, duration time.Duration) Toast {
	if duration < 0 {
		duration = 0
	}
	toast := Toast{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		Duration:  duration,
		CreatedAt: q.now().UTC(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return toast
	}
	q.entries = append(q.entries, toast)
	if duration > 0 {
		id := toast.ID
		q.timers[id] = time.AfterFunc(duration, func() { q.expire(id) })
	}
	return toast
}

// Remove drops the toast immediately. Unknown ids are ignored.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
	q.removeLocked(id)
}

func (q *Queue) expire(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.timers, id)
	q.removeLocked(id)
}

func (q *Queue) removeLocked(id string) {
	for i, entry := range q.entries {
		if entry.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// List returns a copy of the current toasts in display order.
func (q *Queue) List() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Toast, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close stops every pending timer and empties the queue.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.entries = nil
	q.closed = true
}
