package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"

	"github.com/futapp/futapp-api/internal/pkg/config"
)

// OperatorAuth protects operator endpoints such as /metrics. Without a
// configured password every request is refused.
func OperatorAuth(cfg config.Metrics) fiber.Handler {
	if cfg.Password == "" {
		return func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		}
	}
	return basicauth.New(basicauth.Config{
		Users: map[string]string{
			cfg.User: cfg.Password,
		},
	})
}
