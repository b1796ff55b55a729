package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/newspin/newspin/app/controllers"
	"github.com/newspin/newspin/internal/pkg/middleware"
	"github.com/newspin/newspin/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Webhooks live outside the rate-limited API group; the gateway retries
	// aggressively and must never be throttled into a false failure.
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
