package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/occasionbuddy/occasionbuddy-backend/api/responses"
	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

// maxAuthBodyBytes caps how much of a credentials body is buffered to find the email.
const maxAuthBodyBytes = 64 << 10

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one auth surface (login, register) per
// client IP and per normalized email. A zero limit disables that dimension.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// rateCheck is one counter the request must stay under.
type rateCheck struct {
	dimension string
	subject   string
	limit     int
}

func (p AuthRateLimitPolicy) checks(r *http.Request, body []byte) []rateCheck {
	var out []rateCheck
	if ip := clientIP(r); p.ipLimit > 0 && ip != "" {
		out = append(out, rateCheck{dimension: "ip", subject: ip, limit: p.ipLimit})
	}
	if email := normalizeEmail(extractEmail(body)); p.emailLimit > 0 && email != "" {
		out = append(out, rateCheck{dimension: "email", subject: hashValue(email), limit: p.emailLimit})
	}
	return out
}

// AuthRateLimit rejects with 429 once any counter for the request passes its
// limit inside the policy window. The body is restored for the next handler.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.emailLimit > 0 && r.Body != nil {
				buffered, err := io.ReadAll(io.LimitReader(r.Body, maxAuthBodyBytes))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				body = buffered
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			for _, check := range policy.checks(r, body) {
				scope := policy.name + ":" + check.dimension + ":" + check.subject
				allowed, attempts, err := store.FixedWindowAllow(ctx, scope, int64(check.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
					return
				}
				if !allowed {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":    policy.name,
							"dimension": check.dimension,
							"attempts":  attempts,
							"limit":     check.limit,
						}), "auth.rate_limit.blocked")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop set by the load balancer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func extractEmail(payload []byte) string {
	var probe struct {
		Email string `json:"email"`
	}
	if len(payload) == 0 || json.Unmarshal(payload, &probe) != nil {
		return ""
	}
	return probe.Email
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
