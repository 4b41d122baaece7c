package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/nexochat/nexo/internal/pkg/billing"
)

const webhookTimeout = 30 * time.Second

// WebhookController receives payment provider postbacks.
type WebhookController struct {
	billing *billing.Service
}

func NewWebhookController(svc *billing.Service) *WebhookController {
	return &WebhookController{billing: svc}
}

// HandlePaytWebhook answers 200 for processed and recoverable outcomes, 401
// for integration key problems and 500 for anything else.
func (wc *WebhookController) HandlePaytWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	res, err := wc.billing.ProcessPaytWebhook(ctx, rawBody)
	switch {
	case errors.Is(err, billing.ErrSecretMismatch), errors.Is(err, billing.ErrSecretNotConfigured):
		log.Warnf("[Webhook] unauthorized delivery from %s", GetClientIP(c))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "Invalid integration key"})
	case errors.Is(err, billing.ErrInvalidPayload):
		log.Errorf("[Webhook] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Invalid payload"})
	case err != nil:
		log.Errorf("[Webhook] processing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Internal server error"})
	}

	body := fiber.Map{
		"success":    res.Outcome != billing.OutcomeProvisionFailed,
		"outcome":    res.Outcome,
		"purchaseId": res.PurchaseID,
	}
	if res.Outcome == billing.OutcomeProvisionFailed {
		body["error"] = res.Message
	} else {
		body["message"] = res.Message
	}
	if res.Outcome == billing.OutcomeCreated || res.Outcome == billing.OutcomeRenewed {
		body["userCreated"] = res.UserCreated
		body["plan"] = res.Plan
		body["planFallback"] = res.PlanFallback
	}
	return c.Status(fiber.StatusOK).JSON(body)
}
