package support

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/pagination"
)

// Repository persists support tickets.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, ticket *models.SupportTicket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SupportTicket, error) {
	var ticket models.SupportTicket
	if err := r.db.WithContext(ctx).First(&ticket, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.SupportTicket, error) {
	query := r.db.WithContext(ctx).Model(&models.SupportTicket{}).Where("user_id = ?", userID)
	var rows []models.SupportTicket
	if err := pagination.Keyset(query, cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) List(ctx context.Context, status *enums.TicketStatus, cursor *pagination.Cursor, limit int) ([]models.SupportTicket, error) {
	query := r.db.WithContext(ctx).Model(&models.SupportTicket{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var rows []models.SupportTicket
	if err := pagination.Keyset(query, cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus always stamps updated_at, even when the status is unchanged.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.TicketStatus, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.SupportTicket{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
