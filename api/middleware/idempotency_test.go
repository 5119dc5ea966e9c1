package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
	pkgredis "github.com/occasionbuddy/occasionbuddy-backend/pkg/redis"
)

func newRedisStore(t *testing.T) (*pkgredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := pkgredis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func orderRequest(body, key, userID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	if userID != "" {
		req = req.WithContext(WithUserID(req.Context(), userID))
	}
	return req
}

func TestMatchRuleSelection(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		want     time.Duration
		required bool
		ok       bool
	}{
		{"create order", http.MethodPost, "/api/v1/orders", criticalIdempotencyTTL, true, true},
		{"create order trailing slash", http.MethodPost, "/api/v1/orders/", criticalIdempotencyTTL, true, true},
		{"support ticket", http.MethodPost, "/api/v1/support-tickets", defaultIdempotencyTTL, false, true},
		{"mark read", http.MethodPost, "/api/v1/notifications/abc/read", defaultIdempotencyTTL, false, true},
		{"list orders", http.MethodGet, "/api/v1/orders", 0, false, false},
		{"login", http.MethodPost, "/api/v1/auth/login", 0, false, false},
	}

	for _, tt := range tests {
		rule, ok := matchRule(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if !ok {
			continue
		}
		if rule.ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, rule.ttl)
		}
		if rule.required != tt.required {
			t.Fatalf("%s: expected required=%v", tt.name, tt.required)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeaderForOrders(t *testing.T) {
	store, _ := newRedisStore(t)
	handlerCalled := false
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, orderRequest(`{"productId":"p"}`, "", "user-1"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareOptionalHeaderPassesThrough(t *testing.T) {
	store, _ := newRedisStore(t)
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/support-tickets", strings.NewReader(`{"title":"t"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d", rec.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected both requests to reach the handler, got %d", calls)
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store, mr := newRedisStore(t)
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"order-1"}}`))
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, orderRequest(`{"productId":"p"}`, "abc", "user-1"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	key := store.IdempotencyKey("user-1|POST|/api/v1/orders", "abc")
	if !mr.Exists(key) {
		t.Fatalf("expected record stored at %s", key)
	}
	if ttl := mr.TTL(key); ttl != criticalIdempotencyTTL {
		t.Fatalf("expected ttl %v got %v", criticalIdempotencyTTL, ttl)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(`{"productId":"p"}`, "abc", "user-1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if rec.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay marker header")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"data":{"id":"order-1"}}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareScopesKeysPerUser(t *testing.T) {
	store, _ := newRedisStore(t)
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "same", "user-1"))
	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "same", "user-2"))
	if calls != 2 {
		t.Fatalf("expected each user to get a fresh execution, got %d", calls)
	}
}

func TestIdempotencyMiddlewareSkipsServerErrors(t *testing.T) {
	store, _ := newRedisStore(t)
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest(`{}`, "retry", "user-1"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, orderRequest(`{}`, "retry", "user-1"))

	if first.Code != http.StatusServiceUnavailable || second.Code != http.StatusCreated {
		t.Fatalf("unexpected statuses %d then %d", first.Code, second.Code)
	}
	if calls != 2 {
		t.Fatalf("expected retry after 5xx to execute again, got %d", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store, _ := newRedisStore(t)
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{"note":"a"}`, "xyz", "user-1"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, orderRequest(`{"note":"b"}`, "xyz", "user-1"))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyMiddlewareRejectsConcurrentDuplicate(t *testing.T) {
	store, _ := newRedisStore(t)
	entered := make(chan struct{})
	unblock := make(chan struct{})
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		close(entered)
		<-unblock
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(first, orderRequest(`{"productId":"p"}`, "race", "user-1"))
	}()
	<-entered

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, orderRequest(`{"productId":"p"}`, "race", "user-1"))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected in-flight duplicate to get 409, got %d", second.Code)
	}

	close(unblock)
	<-done
	if first.Code != http.StatusCreated {
		t.Fatalf("expected first request 201 got %d", first.Code)
	}

	third := httptest.NewRecorder()
	handler.ServeHTTP(third, orderRequest(`{"productId":"p"}`, "race", "user-1"))
	if third.Code != http.StatusCreated || third.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay of the first response, got %d", third.Code)
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareReleasesKeyAfterPanic(t *testing.T) {
	store, mr := newRedisStore(t)
	handler := Idempotency(store, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	func() {
		defer func() { _ = recover() }()
		handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "panicky", "user-1"))
	}()

	if key := store.IdempotencyKey("user-1|POST|/api/v1/orders", "panicky"); mr.Exists(key) {
		t.Fatalf("expected claimed key %s to be released", key)
	}
}
