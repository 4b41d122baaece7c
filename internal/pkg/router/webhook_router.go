package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nexochat/nexo/app/controllers"
)

type WebhookRouter struct {
	deps Dependencies
}

// InstallRouter mounts provider webhooks. They sit outside /api so the API
// rate limiter never drops a payment notification.
func (h WebhookRouter) InstallRouter(app *fiber.App) {
	wc := controllers.NewWebhookController(h.deps.Billing)
	app.Post("/webhooks/payt", wc.HandlePaytWebhook)
}

func NewWebhookRouter(deps Dependencies) *WebhookRouter {
	return &WebhookRouter{deps: deps}
}
