package wishlist

import (
	"context"

	redisclient "github.com/occasionbuddy/occasionbuddy-backend/pkg/redis"
)

// setStore is the subset of the Redis client the wishlist needs.
type setStore interface {
	ToggleMember(ctx context.Context, key, member string) (bool, error)
	IsMember(ctx context.Context, key, member string) (bool, error)
	Members(ctx context.Context, key string) ([]string, error)
	WishlistKey(deviceID string) string
}

var _ setStore = (*redisclient.Client)(nil)
