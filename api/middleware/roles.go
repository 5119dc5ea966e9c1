package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/api/responses"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/authsession"
	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

// RequireAdmin resolves the caller's stored profile on every request and only
// lets admins through. The role claim in the token is ignored. Must run after Auth.
func RequireAdmin(lookup authsession.ProfileLookup, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID, err := uuid.Parse(UserIDFromContext(ctx))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
				return
			}

			sess, err := authsession.New(lookup, logg)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "admin access required"))
				return
			}
			sess.OnIdentityChange(ctx, &authsession.Identity{UserID: userID})

			if !sess.IsAdmin() {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"))
				return
			}
			if logg != nil {
				ctx = logg.WithActorRole(ctx, "admin")
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
