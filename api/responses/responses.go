// Package responses writes the JSON envelopes every handler returns:
// {"data": ...} on success and {"error": {...}} on failure.
package responses

import (
	"context"
	"encoding/json"
	"net/http"

	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessEnvelope{Data: data})
}

// WriteError logs err with its full chain and writes the public envelope.
// Untyped errors surface as INTERNAL_ERROR.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	status := typed.Code().Status()
	logFailure(ctx, logg, status, typed)
	writeJSON(w, status, ErrorEnvelope{Error: ErrorBody{
		Code:    string(typed.Code()),
		Message: typed.PublicMessage(),
		Details: typed.PublicDetails(),
	}})
}

// logFailure logs 5xx at error level with the chain, everything else as a warning.
func logFailure(ctx context.Context, logg *logger.Logger, status int, err *pkgerrors.Error) {
	if logg == nil {
		return
	}
	fields := pkgerrors.Dump(err).Fields()
	fields["status"] = status
	ctx = logg.WithFields(ctx, fields)
	if status < http.StatusInternalServerError {
		logg.Warn(ctx, "request.error")
		return
	}
	logg.Error(ctx, "request.error", err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
