package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nexochat/nexo/internal/pkg/billing"
	"github.com/nexochat/nexo/internal/pkg/mail"
)

// HandleListPlans returns the public plan catalog.
func HandleListPlans(c *fiber.Ctx) error {
	plans := billing.Plans()
	out := make([]fiber.Map, 0, len(plans))
	for _, p := range plans {
		out = append(out, fiber.Map{
			"plan":                p.Plan,
			"price_cents":         p.PriceCents,
			"price":               mail.FormatBRL(p.PriceCents),
			"daily_message_limit": p.DailyMessageLimit,
			"duration_days":       int(billing.PlanDuration.Hours() / 24),
		})
	}
	return c.JSON(fiber.Map{"plans": out})
}
