package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/futapp/futapp-api/app/controllers"
	"github.com/futapp/futapp-api/internal/pkg/config"
	"github.com/futapp/futapp-api/internal/pkg/constants"
	"github.com/futapp/futapp-api/internal/pkg/middleware"
)

type HttpRouter struct {
	main    *controllers.MainController
	metrics config.Metrics
	name    string
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get(constants.PublicRoute, h.main.HandleRoot)
	app.Get(constants.HealthRoute, h.main.HandleHealth)

	// fiber metrics
	app.Get(constants.MetricsRoute, middleware.OperatorAuth(h.metrics), monitor.New(monitor.Config{
		Title: h.name + " metrics",
	}))
}

func NewHttpRouter(main *controllers.MainController, metrics config.Metrics, name string) *HttpRouter {
	return &HttpRouter{main: main, metrics: metrics, name: name}
}
