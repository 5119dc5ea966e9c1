package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/pagination"
)

// Repository is the notifications table gateway.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type listNotificationsParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type notificationMarkResult struct {
	Updated bool
	Found   bool
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func ownedBy(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB { return q.Where("user_id = ?", userID) }
}

func unread(q *gorm.DB) *gorm.DB { return q.Where("read = ?", false) }

func readAt(now time.Time) map[string]any {
	return map[string]any{"read": true, "read_at": now}
}

func (r *gormRepository) table(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{})
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// List fetches one row past Limit so the caller can tell whether another page exists.
func (r *gormRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
	scopes := []func(*gorm.DB) *gorm.DB{ownedBy(params.UserID)}
	if params.UnreadOnly {
		scopes = append(scopes, unread)
	}

	var rows []models.Notification
	query := pagination.Keyset(r.table(ctx).Scopes(scopes...), params.Cursor, params.Limit)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	var current models.Notification
	err := r.table(ctx).Scopes(ownedBy(userID)).Select("id", "read").Where("id = ?", notificationID).Take(&current).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notificationMarkResult{}, nil
	case err != nil:
		return notificationMarkResult{}, err
	case current.Read:
		return notificationMarkResult{Found: true}, nil
	}

	res := r.table(ctx).Scopes(ownedBy(userID), unread).Where("id = ?", notificationID).UpdateColumns(readAt(now))
	if res.Error != nil {
		return notificationMarkResult{}, res.Error
	}
	return notificationMarkResult{Found: true, Updated: res.RowsAffected > 0}, nil
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	res := r.table(ctx).Scopes(ownedBy(userID), unread).UpdateColumns(readAt(now))
	return res.RowsAffected, res.Error
}

// DeleteReadBefore purges read notifications older than cutoff. Unread rows survive.
func (r *gormRepository) DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	res := conn.WithContext(ctx).Where("read = ? AND created_at < ?", true, cutoff).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
