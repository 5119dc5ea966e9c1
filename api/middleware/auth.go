package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/occasionbuddy/occasionbuddy-backend/api/responses"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/auth"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/auth/session"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

const bearerPrefix = "bearer "

// BearerToken reads the Authorization header. The Bearer scheme is optional.
func BearerToken(r *http.Request) (string, error) {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(token) >= len(bearerPrefix) && strings.EqualFold(token[:len(bearerPrefix)], bearerPrefix) {
		token = strings.TrimSpace(token[len(bearerPrefix):])
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}

// Auth admits requests carrying a valid access token whose session is still
// live. The token's identity is attached to the request context.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, err := authenticate(r, cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := withPrincipal(r.Context(), who)
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, who.userID), who.role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker) (principal, error) {
	token, err := BearerToken(r)
	if err != nil {
		return principal{}, err
	}
	claims, err := auth.ParseAccessToken(cfg, token)
	if err != nil {
		return principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if err := checkSession(r.Context(), sessions, claims.ID); err != nil {
		return principal{}, err
	}
	return principal{
		userID:   claims.UserID.String(),
		role:     string(claims.Role),
		accessID: claims.ID,
	}, nil
}

func checkSession(ctx context.Context, sessions session.AccessSessionChecker, accessID string) error {
	if sessions == nil {
		return nil
	}
	live, err := sessions.HasSession(ctx, accessID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if !live {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return nil
}
