package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const welcomeMessage = "Assalomu alaykum! Futbol Ilovasi API'ga xush kelibsiz!"

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// MainController serves the root and health endpoints
type MainController struct {
	checks map[string]HealthCheck
}

// NewMainController creates a main controller with named readiness checks
func NewMainController(checks map[string]HealthCheck) *MainController {
	return &MainController{checks: checks}
}

func (mc *MainController) HandleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": welcomeMessage})
}

// HandleHealth runs every check and answers 503 when one fails.
func (mc *MainController) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	results := make(fiber.Map, len(mc.checks))
	for name, check := range mc.checks {
		if err := check(ctx); err != nil {
			log.Warnf("[Health] %s check failed: %v", name, err)
			results[name] = "down"
			status = fiber.StatusServiceUnavailable
			continue
		}
		results[name] = "up"
	}

	state := "ok"
	if status != fiber.StatusOK {
		state = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{"status": state, "checks": results})
}
