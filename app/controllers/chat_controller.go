package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/nexochat/nexo/app/models"
	"github.com/nexochat/nexo/app/repository"
	"github.com/nexochat/nexo/internal/pkg/llm"
	"github.com/nexochat/nexo/internal/pkg/usage"
	"github.com/nexochat/nexo/internal/pkg/usercontext"
)

const chatTimeout = 2 * time.Minute

var validate = validator.New()

// ChatController serves the authenticated chat API.
type ChatController struct {
	repos *repository.Repositories
	usage *usage.Service
	llm   llm.Completer
}

func NewChatController(repos *repository.Repositories, usageSvc *usage.Service, completer llm.Completer) *ChatController {
	return &ChatController{repos: repos, usage: usageSvc, llm: completer}
}

type ChatRequest struct {
	BotSlug string `json:"botSlug" validate:"omitempty,max=100"`
	Model   string `json:"model" validate:"omitempty,max=150"`
	Message string `json:"message" validate:"required,max=8000"`
}

// HandleListBots returns the active personas.
func (cc *ChatController) HandleListBots(c *fiber.Ctx) error {
	bots, err := cc.repos.Bot.ListActive()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load bots")
	}
	out := make([]fiber.Map, 0, len(bots))
	for _, b := range bots {
		out = append(out, fiber.Map{
			"slug":        b.Slug,
			"name":        b.Name,
			"description": b.Description,
			"model":       b.Model,
		})
	}
	return c.JSON(fiber.Map{"bots": out})
}

// HandleMe returns the account and today's usage after the daily reset.
func (cc *ChatController) HandleMe(c *fiber.Ctx) error {
	u := usercontext.GetUser(c)
	if u == nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	snap, err := cc.usage.Snapshot(c.Context(), u)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load usage")
	}

	return c.JSON(fiber.Map{
		"id":            u.ID,
		"name":          u.Name,
		"email":         u.Email,
		"status":        u.Status,
		"plan":          u.Plan,
		"created_at":    u.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(u.LastLoginAt),
		"usage":         snap,
	})
}

// HandleChat forwards one message to the LLM and counts it against the daily
// quota. Upstream errors are passed through with 502.
func (cc *ChatController) HandleChat(c *fiber.Ctx) error {
	u := usercontext.GetUser(c)
	if u == nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := validate.Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
	defer cancel()

	if _, err := cc.usage.Check(ctx, u); err != nil {
		switch {
		case errors.Is(err, usage.ErrPlanExpired):
			return jsonError(c, fiber.StatusPaymentRequired, "plan_expired", "Your plan has expired")
		case errors.Is(err, usage.ErrQuotaExceeded):
			return jsonError(c, fiber.StatusTooManyRequests, "quota_exceeded", "Daily message limit reached")
		case errors.Is(err, usage.ErrInactive):
			return jsonError(c, fiber.StatusForbidden, "forbidden", "User inactive")
		default:
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to check usage")
		}
	}

	var bot *models.Bot
	if req.BotSlug != "" {
		b, err := cc.repos.Bot.GetBySlug(strings.ToLower(req.BotSlug))
		if err != nil || !b.IsActive {
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load bot")
			}
			return jsonError(c, fiber.StatusNotFound, "not_found", "Bot not found")
		}
		bot = b
	}

	in := llm.Request{Prompt: req.Message, Model: req.Model}
	if bot != nil {
		in.SystemPrompt = bot.SystemPrompt
		if in.Model == "" {
			in.Model = bot.Model
		}
	}
	if in.Model == "" {
		in.Model = cc.repos.Setting.Resolve(models.SettingLLMDefaultModel, "LLM_DEFAULT_MODEL")
	}

	resp, err := cc.llm.Complete(ctx, in)
	if err != nil {
		var ue *llm.UpstreamError
		switch {
		case errors.As(err, &ue):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":           "upstream_error",
				"message":         ue.Message,
				"upstream_status": ue.StatusCode,
			})
		case errors.Is(err, llm.ErrMissingAPIKey):
			return jsonError(c, fiber.StatusServiceUnavailable, "llm_unavailable", "LLM provider is not configured")
		default:
			log.Errorf("[LLM] request for user %d failed: %v", u.ID, err)
			return jsonError(c, fiber.StatusBadGateway, "upstream_error", err.Error())
		}
	}

	if err := cc.usage.Consume(ctx, u); err != nil {
		// The reply is already paid for upstream; deliver it anyway.
		log.Warnf("[LLM] could not count message for user %d: %v", u.ID, err)
	}

	return c.JSON(fiber.Map{
		"reply": resp.Text,
		"model": resp.Model,
		"usage": fiber.Map{
			"messages_limit":      u.MessagesLimit,
			"messages_used_today": u.MessagesUsedToday,
			"messages_remaining":  u.MessagesRemaining(),
		},
	})
}
