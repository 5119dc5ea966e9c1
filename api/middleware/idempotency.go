package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/occasionbuddy/occasionbuddy-backend/api/responses"
	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	pkgredis "github.com/occasionbuddy/occasionbuddy-backend/pkg/redis"
)

const (
	idempotencyHeader       = "Idempotency-Key"
	idempotentReplayHeader  = "Idempotent-Replayed"
	defaultIdempotencyTTL   = 24 * time.Hour
	criticalIdempotencyTTL  = 7 * 24 * time.Hour
	pendingIdempotencyTTL   = 2 * time.Minute
	maxIdempotentBodyBytes  = 1 << 20
	idempotencyScopeSep     = "|"
	idempotencyPathWildcard = "*"
)

// idempotencyRule binds a method and a path template to a replay window.
// Template segments equal to "*" match any single path segment.
type idempotencyRule struct {
	method   string
	segments []string
	ttl      time.Duration
	required bool
}

func routeRule(method, template string, ttl time.Duration, required bool) idempotencyRule {
	return idempotencyRule{
		method:   method,
		segments: splitPath(template),
		ttl:      ttl,
		required: required,
	}
}

var idempotencyRules = []idempotencyRule{
	routeRule(http.MethodPost, "/api/v1/orders", criticalIdempotencyTTL, true),
	routeRule(http.MethodPost, "/api/v1/support-tickets", defaultIdempotencyTTL, false),
	routeRule(http.MethodPost, "/api/v1/notifications/read-all", defaultIdempotencyTTL, false),
	routeRule(http.MethodPost, "/api/v1/notifications/*/read", defaultIdempotencyTTL, false),
	routeRule(http.MethodPost, "/api/admin/v1/products", defaultIdempotencyTTL, false),
}

func (ir idempotencyRule) matches(method string, segments []string) bool {
	if ir.method != method || len(ir.segments) != len(segments) {
		return false
	}
	for i, want := range ir.segments {
		if want != idempotencyPathWildcard && want != segments[i] {
			return false
		}
	}
	return true
}

func matchRule(method, path string) (idempotencyRule, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return idempotencyRule{}, false
	}
	for _, candidate := range idempotencyRules {
		if candidate.matches(method, segments) {
			return candidate, true
		}
	}
	return idempotencyRule{}, false
}

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// storedResponse is the cached outcome of the first request made with a key.
// A zero Status marks a key claimed by a request that has not finished yet.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

func (s storedResponse) pending() bool { return s.Status == 0 }

func (s storedResponse) replay(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set(idempotentReplayHeader, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

type replayGuard struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// the mutating routes listed in idempotencyRules. Keys are scoped per user,
// method and path. Server errors are never stored.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	guard := &replayGuard{store: store, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			active, ok := matchRule(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			guard.serve(active, next, w, r)
		})
	}
}

func (g *replayGuard) serve(active idempotencyRule, next http.Handler, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if clientKey == "" {
		if active.required {
			responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
			return
		}
		next.ServeHTTP(w, r)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBodyBytes))
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(payload))

	fingerprint := fingerprintBody(payload)
	key := g.store.IdempotencyKey(strings.Join([]string{UserIDFromContext(ctx), r.Method, r.URL.Path}, idempotencyScopeSep), clientKey)

	previous, claimed, err := g.claim(r, key, fingerprint)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, err)
		return
	}
	if !claimed {
		g.answerDuplicate(w, r, clientKey, fingerprint, previous)
		return
	}

	stored := false
	defer func() {
		if !stored {
			g.release(r, key)
		}
	}()

	var captured bytes.Buffer
	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
	ww.Tee(&captured)
	next.ServeHTTP(ww, r)

	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	if status >= http.StatusInternalServerError {
		return
	}
	stored = g.remember(r, key, active.ttl, storedResponse{
		Status:      status,
		ContentType: ww.Header().Get("Content-Type"),
		Body:        captured.Bytes(),
		Fingerprint: fingerprint,
	})
}

// claim takes the key with a pending marker before the handler runs, so two
// concurrent requests with one key never both execute. When the key is
// already taken it returns the record found there.
func (g *replayGuard) claim(r *http.Request, key, fingerprint string) (storedResponse, bool, error) {
	marker, err := json.Marshal(storedResponse{Fingerprint: fingerprint})
	if err != nil {
		return storedResponse{}, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency marker")
	}
	for range 2 {
		ok, err := g.store.SetNX(r.Context(), key, string(marker), pendingIdempotencyTTL)
		if err != nil {
			return storedResponse{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key")
		}
		if ok {
			return storedResponse{}, true, nil
		}
		previous, found, err := g.lookup(r, key)
		if err != nil || found {
			return previous, false, err
		}
	}
	// The holder released the key between our SETNX and GET twice in a row.
	return storedResponse{Fingerprint: fingerprint}, false, nil
}

func (g *replayGuard) answerDuplicate(w http.ResponseWriter, r *http.Request, clientKey, fingerprint string, previous storedResponse) {
	ctx := r.Context()
	switch {
	case previous.Fingerprint != fingerprint:
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case previous.pending():
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
	default:
		if g.logg != nil {
			g.logg.Info(g.logg.WithField(ctx, "idempotency_key", clientKey), "idempotency.replayed")
		}
		previous.replay(w)
	}
}

func (g *replayGuard) lookup(r *http.Request, key string) (storedResponse, bool, error) {
	raw, err := g.store.Get(r.Context(), key)
	switch {
	case errors.Is(err, redis.Nil):
		return storedResponse{}, false, nil
	case err != nil:
		return storedResponse{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	case raw == "":
		return storedResponse{}, false, nil
	}
	var out storedResponse
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return storedResponse{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return out, true, nil
}

func (g *replayGuard) remember(r *http.Request, key string, ttl time.Duration, resp storedResponse) bool {
	encoded, err := json.Marshal(resp)
	if err == nil {
		err = g.store.Set(r.Context(), key, string(encoded), ttl)
	}
	if err != nil && g.logg != nil {
		g.logg.Error(r.Context(), "idempotency.store_failed", err)
	}
	return err == nil
}

// release frees a claimed key so the client may retry after a failure.
func (g *replayGuard) release(r *http.Request, key string) {
	ctx := context.WithoutCancel(r.Context())
	if err := g.store.Del(ctx, key); err != nil && g.logg != nil {
		g.logg.Error(ctx, "idempotency.release_failed", err)
	}
}

func fingerprintBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
