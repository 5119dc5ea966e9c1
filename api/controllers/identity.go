package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/api/middleware"
	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
)

func requireUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}
