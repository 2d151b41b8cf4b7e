package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/futapp/futapp-api/internal/pkg/config"
)

// CORS builds the cross-origin middleware from configuration. Without an
// origin list no CORS headers are sent, so browsers refuse cross-origin calls.
func CORS(cfg config.CORS) fiber.Handler {
	if len(cfg.AllowOrigins) == 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	origins := strings.Join(cfg.AllowOrigins, ",")
	credentials := cfg.AllowCredentials
	if cfg.HasWildcard() {
		origins = "*"
		// fiber rejects wildcard with credentials; config validation only lets it through in dev
		credentials = false
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowCredentials: credentials,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID",
		MaxAge:           600,
	})
}
