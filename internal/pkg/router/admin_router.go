package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/nexochat/nexo/app/controllers"
	"github.com/nexochat/nexo/internal/pkg/middleware"
)

type AdminRouter struct {
	deps Dependencies
}

func (h AdminRouter) InstallRouter(app *fiber.App) {
	guard := middleware.RequireAdmin(h.deps.AdminUser, h.deps.AdminPassword)

	// fiber metrics
	metrics := append([]fiber.Handler{}, guard...)
	app.Get("/metrics", append(metrics, monitor.New(monitor.Config{Title: "Nexo Metrics"}))...)

	ac := controllers.NewAdminController(h.deps.Repos)
	adminGroup := app.Group("/admin", guard...)

	adminGroup.Get("/settings", ac.HandleListSettings)
	adminGroup.Put("/settings/:key", ac.HandlePutSetting)
	adminGroup.Delete("/settings/:key", ac.HandleDeleteSetting)

	adminGroup.Get("/purchases", ac.HandleListPurchases)
	adminGroup.Get("/purchases/export", ac.HandleExportPurchases)
	adminGroup.Get("/purchases/:id", ac.HandleGetPurchase)

	adminGroup.Get("/users", ac.HandleListUsers)

	adminGroup.Get("/bots", ac.HandleListBots)
	adminGroup.Post("/bots", ac.HandleCreateBot)
	adminGroup.Put("/bots/:id", ac.HandleUpdateBot)
	adminGroup.Delete("/bots/:id", ac.HandleDeleteBot)
}

func NewAdminRouter(deps Dependencies) *AdminRouter {
	return &AdminRouter{deps: deps}
}
