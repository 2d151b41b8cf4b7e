package router

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/futapp/futapp-api/internal/api/v1"
	"github.com/futapp/futapp-api/internal/pkg/config"
	"github.com/futapp/futapp-api/internal/pkg/constants"
	"github.com/futapp/futapp-api/internal/pkg/middleware"
)

type ApiRouter struct {
	server  *apiv1.APIServer
	limit   config.RateLimit
	metrics config.Metrics
	storage fiber.Storage
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	webhookPath := constants.APIRoute + constants.APIV1Route + constants.PaymeWebhookRoute

	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{
		Max:        h.limit.Max,
		Expiration: h.limit.Window,
		Storage:    h.storage,
		Next: func(c *fiber.Ctx) bool {
			// Payme callbacks are not rate limited
			return strings.TrimRight(c.Path(), "/") == webhookPath
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group(constants.APIV1Route)
	apiv1.RegisterHandlers(v1, h.server, middleware.OperatorAuth(h.metrics))
}

// NewApiRouter creates the /api router. storage may be nil.
func NewApiRouter(server *apiv1.APIServer, limit config.RateLimit, metrics config.Metrics, storage fiber.Storage) *ApiRouter {
	return &ApiRouter{server: server, limit: limit, metrics: metrics, storage: storage}
}
