package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/occasionbuddy/occasionbuddy-backend/api/middleware"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type requestOption func(*http.Request) *http.Request

func withUser(userID string) requestOption {
	return func(r *http.Request) *http.Request {
		return r.WithContext(middleware.WithUserID(r.Context(), userID))
	}
}

func withParam(key, value string) requestOption {
	return func(r *http.Request) *http.Request {
		rctx := chi.RouteContext(r.Context())
		if rctx == nil {
			rctx = chi.NewRouteContext()
			r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
		}
		rctx.URLParams.Add(key, value)
		return r
	}
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) *http.Request {
		r.Header.Set(key, value)
		return r
	}
}

func serve(t *testing.T, handler http.HandlerFunc, method, target, body string, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for _, opt := range opts {
		req = opt(req)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}
