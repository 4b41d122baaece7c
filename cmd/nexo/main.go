package main

import (
	"context"
	"fmt"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nexochat/nexo/app/models"
	"github.com/nexochat/nexo/app/repository"
	"github.com/nexochat/nexo/internal/pkg/apidocs"
	"github.com/nexochat/nexo/internal/pkg/billing"
	"github.com/nexochat/nexo/internal/pkg/cache"
	"github.com/nexochat/nexo/internal/pkg/database"
	"github.com/nexochat/nexo/internal/pkg/env"
	"github.com/nexochat/nexo/internal/pkg/llm"
	"github.com/nexochat/nexo/internal/pkg/mail"
	"github.com/nexochat/nexo/internal/pkg/router"
	"github.com/nexochat/nexo/internal/pkg/usage"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	settingKey := func(key, envKey string) func(context.Context) string {
		return func(context.Context) string { return repos.Setting.Resolve(key, envKey) }
	}

	mailer := mail.NewMailerFromEnv(mail.ProviderSettings{
		APIKey: settingKey(models.SettingBrevoAPIKey, "BREVO_API_KEY"),
		Sender: func(context.Context) (string, string) {
			return repos.Setting.Resolve(models.SettingMailSenderEmail, "BREVO_SENDER_EMAIL"),
				repos.Setting.Resolve(models.SettingMailSenderName, "BREVO_SENDER_NAME")
		},
	})
	notifier := mail.NewNotifier(mailer, env.GetEnv("APP_PUBLIC_URL", ""))

	webhookCfg := billing.WebhookConfig{
		Secret: billing.NewSharedSecret(env.GetEnv("PAYT_INTEGRATION_KEY", "")),
		Policy: billing.ParseSecretPolicy(env.GetEnv("PAYT_SECRET_POLICY", "open")),
	}
	if !webhookCfg.Secret.Configured {
		log.Warnf("[Webhook] PAYT_INTEGRATION_KEY not set, policy %s", webhookCfg.Policy)
	}

	completer := llm.NewClient(llm.Config{
		BaseURL:      env.GetEnv("WAVESPEED_BASE_URL", llm.DefaultBaseURL),
		APIKey:       settingKey(models.SettingWaveSpeedAPIKey, "WAVESPEED_API_KEY"),
		DefaultModel: env.GetEnv("LLM_DEFAULT_MODEL", llm.DefaultModel),
	})

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName:   "nexo",
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if specPath := apidocs.Find(); specPath == "" {
		log.Warn("[App] openapi.yml not found, /docs/api/v1 disabled")
	} else if _, err := apidocs.Load(context.Background(), specPath); err != nil {
		log.Errorf("[App] %v, /docs/api/v1 disabled", err)
	} else {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: specPath,
			Path:     "v1",
		}))
	}

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Repos:         repos,
		Billing:       billing.NewServiceFromDB(db, webhookCfg, notifier),
		Usage:         usage.NewService(db),
		LLM:           completer,
		AdminUser:     env.GetEnv("ADMIN_USER", "admin"),
		AdminPassword: env.GetEnv("ADMIN_PASSWORD", ""),
	})

	return app
}
