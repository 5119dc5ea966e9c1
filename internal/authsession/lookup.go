package authsession

import (
	"context"

	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/internal/users"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
)

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RepositoryLookup resolves profiles from the users table.
func RepositoryLookup(repo userFinder) ProfileLookup {
	return ProfileLookupFunc(func(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return users.FromModel(user), nil
	})
}
