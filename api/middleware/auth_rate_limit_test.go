package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
)

type memRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newMemRateStore() *memRateStore {
	return &memRateStore{counts: map[string]int64{}}
}

func (m *memRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, 0, m.err
	}
	m.counts[scope]++
	return m.counts[scope] <= limit, m.counts[scope], nil
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = remote
	return req
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestAuthRateLimitPassesBodyThrough(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 2)
	var seen string
	handler := AuthRateLimit(policy, newMemRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = string(body)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("tester@example.com", "1.2.3.4:5678"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, seen, `"email":"tester@example.com"`)
}

func TestAuthRateLimitEmailCounterIgnoresCaseAndIP(t *testing.T) {
	store := newMemRateStore()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 0, 2), store, nil)(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	for i, email := range []string{"blocked@example.com", "Blocked@Example.com ", "blocked@example.com"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(email, "10.0.0."+string(rune('1'+i))+":1"))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			assert.Contains(t, rec.Body.String(), string(pkgerrors.CodeRateLimit))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestAuthRateLimitIPCounter(t *testing.T) {
	handler := AuthRateLimit(NewAuthRateLimitPolicy("register", time.Minute, 1, 0), newMemRateStore(), nil)(http.HandlerFunc(okHandler))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, loginRequest("a@example.com", "5.6.7.8:1234"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, loginRequest("b@example.com", "5.6.7.8:1234"))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestAuthRateLimitStoreFailureIsDependencyError(t *testing.T) {
	store := newMemRateStore()
	store.err = errors.New("redis down")
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 5, 5), store, nil)(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "5.6.7.8:1234"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRateLimitDisabledPolicyIsPassThrough(t *testing.T) {
	store := newMemRateStore()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", 0, 5, 5), store, nil)(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "5.6.7.8:1234"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.counts)
}

func TestClientIPPrefersForwardedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:443"
	assert.Equal(t, "10.1.1.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.1.1.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
