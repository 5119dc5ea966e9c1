package middleware

import "context"

// principal is who an authenticated request acts as.
type principal struct {
	userID   string
	role     string
	accessID string
}

type principalKey struct{}

type deviceKey struct{}

func principalFrom(ctx context.Context) principal {
	if ctx == nil {
		return principal{}
	}
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

func withPrincipal(ctx context.Context, p principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

func UserIDFromContext(ctx context.Context) string { return principalFrom(ctx).userID }

// RoleFromContext returns the token's role claim. Authorization never trusts it.
func RoleFromContext(ctx context.Context) string { return principalFrom(ctx).role }

// AccessIDFromContext returns the jti of the presented access token.
func AccessIDFromContext(ctx context.Context) string { return principalFrom(ctx).accessID }

func WithUserID(ctx context.Context, userID string) context.Context {
	p := principalFrom(ctx)
	p.userID = userID
	return withPrincipal(ctx, p)
}

func WithAccessID(ctx context.Context, accessID string) context.Context {
	p := principalFrom(ctx)
	p.accessID = accessID
	return withPrincipal(ctx, p)
}

func DeviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(deviceKey{}).(string)
	return id
}

func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, deviceKey{}, deviceID)
}
