package controllers

import (
	"net/http"
	"strings"

	"github.com/occasionbuddy/occasionbuddy-backend/api/middleware"
	"github.com/occasionbuddy/occasionbuddy-backend/api/responses"
	"github.com/occasionbuddy/occasionbuddy-backend/api/validators"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/auth"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

const (
	accessTokenHeader  = "X-OB-Token"
	refreshTokenHeader = "X-Refresh-Token"
)

func writeTokens(w http.ResponseWriter, status int, result *auth.TokenResponse) {
	w.Header().Set(accessTokenHeader, result.AccessToken)
	responses.WriteSuccessStatus(w, status, result)
}

// tokenEndpoint decodes a JSON body of type T, hands it to issue and
// writes the resulting token pair.
func tokenEndpoint[T any](svc auth.Service, logg *logger.Logger, status int, issue func(auth.Service, *http.Request, T) (*auth.TokenResponse, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}
		var body T
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := issue(svc, r, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeTokens(w, status, result)
	}
}

// AuthRegister creates a customer account and signs it in.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return tokenEndpoint(svc, logg, http.StatusCreated, func(svc auth.Service, r *http.Request, body auth.RegisterRequest) (*auth.TokenResponse, error) {
		return svc.Register(r.Context(), body)
	})
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return tokenEndpoint(svc, logg, http.StatusOK, func(svc auth.Service, r *http.Request, body auth.LoginRequest) (*auth.TokenResponse, error) {
		return svc.Login(r.Context(), body)
	})
}

// AdminAuthLogin only succeeds for accounts whose stored role is admin.
func AdminAuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return tokenEndpoint(svc, logg, http.StatusOK, func(svc auth.Service, r *http.Request, body auth.LoginRequest) (*auth.TokenResponse, error) {
		return svc.AdminLogin(r.Context(), body)
	})
}

// AuthLogout revokes the refresh session tied to the presented access token.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}

		if err := svc.Logout(r.Context(), middleware.AccessIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh rotates the refresh token. The access token may already be expired,
// so this route sits outside the Auth middleware and reads the bearer itself.
// The refresh token comes from X-Refresh-Token, falling back to the JSON body.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}

		access, err := middleware.BearerToken(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req := auth.RefreshRequest{
			AccessToken:  access,
			RefreshToken: strings.TrimSpace(r.Header.Get(refreshTokenHeader)),
		}
		if req.RefreshToken == "" && r.ContentLength != 0 {
			var body auth.RefreshRequest
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			req.RefreshToken = strings.TrimSpace(body.RefreshToken)
		}

		result, err := svc.Refresh(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeTokens(w, http.StatusOK, result)
	}
}
