package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nexochat/nexo/app/repository"
	"github.com/nexochat/nexo/internal/pkg/billing"
	"github.com/nexochat/nexo/internal/pkg/llm"
	"github.com/nexochat/nexo/internal/pkg/usage"
)

// Router registers one group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the services the handlers are built from.
type Dependencies struct {
	Repos         *repository.Repositories
	Billing       *billing.Service
	Usage         *usage.Service
	LLM           llm.Completer
	AdminUser     string
	AdminPassword string
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewWebhookRouter(deps), NewApiRouter(deps), NewAdminRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
