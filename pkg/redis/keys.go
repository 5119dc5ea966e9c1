package redis

import "strings"

const keyNamespace = "ob"

// key joins the non-blank parts under the "ob" namespace, e.g. ob:lock:cron.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string { return key("idempotency", scope, id) }

func (c *Client) RateLimitKey(scope string) string { return key("rate_limit", scope) }

// AccessSessionKey is keyed by the access token jti.
func (c *Client) AccessSessionKey(accessID string) string { return key("session", "access", accessID) }

func (c *Client) WishlistKey(deviceID string) string { return key("wishlist", deviceID) }

func (c *Client) LockKey(name string) string { return key("lock", name) }
