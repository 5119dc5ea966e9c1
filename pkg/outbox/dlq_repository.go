package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
)

// dlqErrorLimit caps outbox_dlq.error_message in bytes.
const dlqErrorLimit = 1024

// DLQRepository stores events the publisher gave up on.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx records a dead letter inside the caller's transaction so the
// outbox row update and the DLQ insert commit together.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("dlq insert needs a transaction")
	}
	if entry.ErrorMessage != nil {
		clipped := clipUTF8(*entry.ErrorMessage, dlqErrorLimit)
		entry.ErrorMessage = &clipped
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns (nil, nil) for events that were never dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var rows []models.OutboxDLQ
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// DeleteFailedBefore purges dead letters older than cutoff and reports how many went.
func (r *DLQRepository) DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.OutboxDLQ{}, "failed_at < ?", cutoff)
	return res.RowsAffected, res.Error
}

// clipUTF8 shortens s to at most limit bytes without splitting a rune.
func clipUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
