package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/queue-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Appointments *handlers.AppointmentsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/book", cfg.Appointments.Book)
	api.Get("/queue", cfg.Appointments.Queue)
	api.Post("/callNext", cfg.Appointments.CallNext)
	api.Post("/served", cfg.Appointments.MarkServed)
	api.Get("/search", cfg.Appointments.Search)
}
