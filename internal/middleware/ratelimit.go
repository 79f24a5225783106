package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// KeyFunc extracts the rate limit key of a request. An empty key skips limiting.
type KeyFunc func(c *fiber.Ctx) string

// KeyByActor keys by the caller's actor, falling back to the client address.
func KeyByActor(c *fiber.Ctx) string {
	if p := PrincipalFrom(c); p.HasActor() {
		return p.Actor.String()
	}
	return "ip:" + ClientIP(c)
}

// KeyByIP keys by the best-effort client address.
func KeyByIP(c *fiber.Ctx) string {
	return "ip:" + ClientIP(c)
}

// ClientIP returns the first X-Forwarded-For entry, then X-Real-IP, then the remote
// address, then "unknown".
func ClientIP(c *fiber.Ctx) string {
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if xr := strings.TrimSpace(c.Get("X-Real-IP")); xr != "" {
		return xr
	}
	if ip := c.IP(); ip != "" {
		return ip
	}
	return "unknown"
}

// RateLimit enforces policy per key. Rejections answer 429 with Retry-After; a store
// failure under a fail-closed limiter answers 503.
func RateLimit(limiter ratelimit.Limiter, policy ratelimit.Policy, keyFn KeyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := keyFn(c)
		if limiter == nil || key == "" {
			return c.Next()
		}

		decision, err := limiter.Allow(c.UserContext(), policy, key)
		if err != nil {
			if errors.Is(err, ratelimit.ErrStoreUnavailable) && !decision.Allowed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable",
					"policy", policy.Name, "path", c.Path(), "error", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			observability.RateLimited.WithLabelValues(policy.Name).Inc()
			retry := decision.RetryAfter(time.Now())
			secs := int(retry.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			return models.RespondWithError(c, fiber.StatusTooManyRequests, models.NewRateLimitedError())
		}
		return c.Next()
	}
}
