package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/occasionbuddy/occasionbuddy-backend/api/responses"
	"github.com/occasionbuddy/occasionbuddy-backend/api/validators"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/toasts"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

// DurationMS is optional; an explicit 0 keeps the toast until it is removed.
type addToastRequest struct {
	Message    string `json:"message" validate:"required"`
	Type       string `json:"type"`
	DurationMS *int64 `json:"durationMs" validate:"omitempty,min=0"`
}

type toastResponse struct {
	ID         string          `json:"id"`
	Message    string          `json:"message"`
	Type       enums.ToastKind `json:"type"`
	DurationMS int64           `json:"durationMs"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func toToastResponse(t toasts.Toast) toastResponse {
	return toastResponse{
		ID:         t.ID,
		Message:    t.Message,
		Type:       t.Kind,
		DurationMS: t.DurationMS(),
		CreatedAt:  t.CreatedAt,
	}
}

func ListToasts(hub *toasts.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("toast hub"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries := hub.Queue(userID.String()).List()
		items := make([]toastResponse, 0, len(entries))
		for _, t := range entries {
			items = append(items, toToastResponse(t))
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

func AddToast(hub *toasts.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("toast hub"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addToastRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseToastKind(strings.TrimSpace(body.Type))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid toast type"))
			return
		}

		duration := hub.DefaultDuration()
		if body.DurationMS != nil {
			duration = time.Duration(*body.DurationMS) * time.Millisecond
		}

		toast := hub.Queue(userID.String()).Add(body.Message, kind, duration)
		responses.WriteSuccessStatus(w, http.StatusCreated, toToastResponse(toast))
	}
}

// RemoveToast succeeds whether or not the toast is still queued.
func RemoveToast(hub *toasts.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("toast hub"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		toastID := strings.TrimSpace(chi.URLParam(r, "toastId"))
		if toastID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "toastId is required"))
			return
		}

		hub.Queue(userID.String()).Remove(toastID)
		responses.WriteSuccess(w, map[string]string{"id": toastID, "status": "removed"})
	}
}
