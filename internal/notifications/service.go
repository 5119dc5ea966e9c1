package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/pagination"
)

// Service lists a user's notifications and tracks their read state.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

type NotificationDTO struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type ListResult = pagination.Page[NotificationDTO]

type inbox struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &inbox{repo: repo, clock: time.Now}, nil
}

func requireUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func (s *inbox) now() time.Time { return s.clock().UTC() }

func (s *inbox) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if err := requireUser(params.UserID); err != nil {
		return nil, err
	}
	cursor, err := decodeCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.List(ctx, listNotificationsParams{
		UserID:     params.UserID,
		Limit:      params.Limit,
		Cursor:     cursor,
		UnreadOnly: params.UnreadOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	dtos := make([]NotificationDTO, len(rows))
	for i := range rows {
		dtos[i] = toDTO(&rows[i])
	}
	page := pagination.Paginate(dtos, params.Limit, cursorOf)
	return &page, nil
}

func decodeCursor(raw string) (*pagination.Cursor, error) {
	if raw == "" {
		return nil, nil
	}
	cursor, err := pagination.ParseCursor(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return cursor, nil
}

func cursorOf(n NotificationDTO) pagination.Cursor {
	return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
}

// MarkRead succeeds repeatedly for the owner. Other users get NOT_FOUND.
func (s *inbox) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	mark, err := s.repo.MarkRead(ctx, userID, notificationID, s.now())
	switch {
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	case !mark.Found:
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *inbox) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	updated, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return updated, nil
}

func toDTO(n *models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
