package controllers

import (
	"net/http"

	"github.com/occasionbuddy/occasionbuddy-backend/api/responses"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/authsession"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

// Session resolves the bearer identity through a fresh auth session and returns its snapshot.
func Session(lookup authsession.ProfileLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess, err := authsession.New(lookup, logg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, unavailable("profile lookup"))
			return
		}
		sess.OnIdentityChange(r.Context(), &authsession.Identity{UserID: userID})

		responses.WriteSuccess(w, sess.Snapshot())
	}
}
