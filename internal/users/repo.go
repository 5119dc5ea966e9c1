package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
)

// Repository persists user profiles. Lookups return gorm.ErrRecordNotFound
// when nothing matches.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user. A taken email surfaces as a unique violation on
// users_email_key.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := gorm.G[models.User](r.db).Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", NormalizeEmail(email))
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, cond string, arg any) (*models.User, error) {
	user, err := gorm.G[models.User](r.db).Where(cond, arg).First(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin stamps last_login_at and leaves updated_at alone.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{ID: id}).
		UpdateColumn("last_login_at", at).Error
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{ID: id}).
		UpdateColumn("password_hash", hash).Error
}
