package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/pagination"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	List(ctx context.Context, status *enums.OrderStatus, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, at time.Time) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type profileLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type transitionObserver interface {
	ObserveTransition(from, to enums.OrderStatus)
}
