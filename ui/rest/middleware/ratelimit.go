package middleware

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ozcart/salewatch/pkg/ratelimit"
	"github.com/ozcart/salewatch/pkg/utils"
)

// RateLimit admits or rejects every request through the shared limiter.
// The limit class is derived from the path so the primary check endpoint,
// admin surface, and heavy read endpoints each spend their own quota.
func RateLimit(limiter *ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		verdict := limiter.Check(ClientID(c), classForPath(c.Path()))

		for name, value := range verdict.Headers {
			c.Set(name, value)
		}

		if !verdict.Allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(utils.ResponseData{
				Status:  429,
				Code:    "RATE_LIMIT_EXCEEDED",
				Message: "Too many requests. Please try again later.",
			})
		}

		return c.Next()
	}
}

// ClientID derives the limiter key: real client address first, then a
// coarse user-agent signature so distinct clients behind one proxy are not
// lumped together entirely.
func ClientID(c *fiber.Ctx) string {
	ip := c.Get("X-Real-IP")
	if ip == "" {
		if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
			ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
		}
	}
	if ip == "" {
		ip = c.IP()
	}
	if ip == "" {
		ip = "unknown"
	}

	h := fnv.New32a()
	h.Write([]byte(c.Get("User-Agent", "unknown")))
	return fmt.Sprintf("%s:%d", ip, h.Sum32()%10000)
}

func classForPath(path string) string {
	switch {
	case strings.Contains(path, "/admin/"):
		return "admin"
	case strings.Contains(path, "/check"):
		return "check"
	case strings.Contains(path, "/price-history"):
		return "heavy"
	default:
		return "global"
	}
}
