package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/nexochat/nexo/app/controllers"
	"github.com/nexochat/nexo/internal/pkg/cache"
	"github.com/nexochat/nexo/internal/pkg/env"
	"github.com/nexochat/nexo/internal/pkg/middleware"
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiterConfig()))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	v1.Get("/plans", controllers.HandleListPlans)

	cc := controllers.NewChatController(h.deps.Repos, h.deps.Usage, h.deps.LLM)
	user := v1.Group("", middleware.RequireUser(h.deps.Repos.User)...)
	user.Get("/me", cc.HandleMe)
	user.Get("/bots", cc.HandleListBots)
	user.Post("/chat", cc.HandleChat)
}

// limiterConfig shares counters through redis when the cache is configured,
// so limits hold across instances.
func limiterConfig() limiter.Config {
	cfg := limiter.Config{
		Max:        env.GetEnvInt("API_RATE_LIMIT_PER_MINUTE", 60),
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited", "message": "Too many requests"})
		},
	}
	if client := cache.GetClient(); client != nil {
		opts := client.Options()
		host, port := "localhost", 6379
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		cfg.Storage = redis.New(redis.Config{
			Host:     host,
			Port:     port,
			Password: opts.Password,
			Database: 2, // cache uses DB 0
			Reset:    false,
		})
		log.Info("[API] rate limiter using redis storage")
	}
	return cfg
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
