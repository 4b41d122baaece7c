package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/nexochat/nexo/app/models"
	"github.com/nexochat/nexo/app/repository"
	"github.com/nexochat/nexo/internal/pkg/export"
)

// AdminController handles admin-related HTTP requests using repository pattern
type AdminController struct {
	repos *repository.Repositories
}

// NewAdminController creates a new admin controller with repository dependencies
func NewAdminController(repos *repository.Repositories) *AdminController {
	return &AdminController{
		repos: repos,
	}
}

func (ac *AdminController) handleError(c *fiber.Ctx, message string, err error) error {
	log.Errorf("[Admin] %s: %v", message, err)
	return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", message)
}

func settingView(s models.Setting) fiber.Map {
	return fiber.Map{
		"key":        s.Key,
		"value":      s.MaskedValue(),
		"type":       s.Type,
		"updated_at": s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// HandleListSettings lists stored settings with secrets masked, plus the
// keys that are known but unset.
func (ac *AdminController) HandleListSettings(c *fiber.Ctx) error {
	settings, err := ac.repos.Setting.List()
	if err != nil {
		return ac.handleError(c, "Failed to load settings", err)
	}

	stored := make(map[string]bool, len(settings))
	out := make([]fiber.Map, 0, len(settings))
	for _, s := range settings {
		stored[s.Key] = true
		out = append(out, settingView(s))
	}
	var unset []string
	for _, k := range models.KnownSettingKeys() {
		if !stored[k] {
			unset = append(unset, k)
		}
	}
	return c.JSON(fiber.Map{"settings": out, "unset": unset})
}

type settingRequest struct {
	Value string `json:"value"`
}

// HandlePutSetting upserts a known key.
func (ac *AdminController) HandlePutSetting(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	if !models.IsKnownSetting(key) {
		return jsonError(c, fiber.StatusBadRequest, "unknown_setting", fmt.Sprintf("Unknown setting %q", key))
	}

	var req settingRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
	}
	req.Value = strings.TrimSpace(req.Value)
	if req.Value == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "value is required")
	}

	s, err := ac.repos.Setting.SetValue(key, req.Value)
	if err != nil {
		return ac.handleError(c, "Failed to save setting", err)
	}
	log.Infof("[Admin] setting %s updated", key)
	return c.JSON(fiber.Map{"success": true, "setting": settingView(*s)})
}

func (ac *AdminController) HandleDeleteSetting(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	if err := ac.repos.Setting.Delete(key); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Setting not found")
		}
		return ac.handleError(c, "Failed to delete setting", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func purchaseFilter(c *fiber.Ctx) repository.PurchaseFilter {
	offset, limit, _ := pagination(c)
	return repository.PurchaseFilter{
		Status: strings.ToLower(strings.TrimSpace(c.Query("status"))),
		Email:  strings.TrimSpace(c.Query("email")),
		Offset: offset,
		Limit:  limit,
	}
}

// HandleListPurchases pages through the purchase audit log.
func (ac *AdminController) HandleListPurchases(c *fiber.Ctx) error {
	_, _, page := pagination(c)
	f := purchaseFilter(c)
	purchases, total, err := ac.repos.Purchase.List(f)
	if err != nil {
		return ac.handleError(c, "Failed to load purchases", err)
	}
	return c.JSON(fiber.Map{
		"purchases": purchases,
		"total":     total,
		"page":      page,
		"per_page":  f.Limit,
	})
}

func (ac *AdminController) HandleGetPurchase(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid purchase ID")
	}
	p, err := ac.repos.Purchase.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Purchase not found")
		}
		return ac.handleError(c, "Failed to load purchase", err)
	}
	return c.JSON(p)
}

// HandleExportPurchases downloads the filtered audit log as xlsx.
func (ac *AdminController) HandleExportPurchases(c *fiber.Ctx) error {
	f := purchaseFilter(c)
	f.Offset, f.Limit = 0, 0
	purchases, _, err := ac.repos.Purchase.List(f)
	if err != nil {
		return ac.handleError(c, "Failed to load purchases", err)
	}

	var buf bytes.Buffer
	if err := export.WritePurchasesXLSX(&buf, purchases); err != nil {
		return ac.handleError(c, "Failed to build export", err)
	}

	name := fmt.Sprintf("purchases-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(buf.Bytes())
}

func userView(u models.User) fiber.Map {
	return fiber.Map{
		"id":                  u.ID,
		"name":                u.Name,
		"email":               u.Email,
		"status":              u.Status,
		"plan":                u.Plan,
		"messages_limit":      u.MessagesLimit,
		"messages_used_today": u.MessagesUsedToday,
		"plan_expires_at":     formatTimePtr(u.PlanExpiresAt),
		"last_login_at":       formatTimePtr(u.LastLoginAt),
		"created_at":          u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// HandleListUsers lists accounts, or searches them with ?q=.
func (ac *AdminController) HandleListUsers(c *fiber.Ctx) error {
	var (
		users []models.User
		err   error
	)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		users, err = ac.repos.User.Search(q)
	} else {
		offset, limit, _ := pagination(c)
		users, err = ac.repos.User.List(offset, limit)
	}
	if err != nil {
		return ac.handleError(c, "Failed to load users", err)
	}
	total, err := ac.repos.User.Count()
	if err != nil {
		return ac.handleError(c, "Failed to count users", err)
	}

	out := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		out = append(out, userView(u))
	}
	return c.JSON(fiber.Map{"users": out, "total": total})
}

type botRequest struct {
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
	Model        string `json:"model"`
	IsActive     *bool  `json:"is_active"`
	SortOrder    int    `json:"sort_order"`
}

func (r botRequest) apply(b *models.Bot) {
	b.Slug = strings.ToLower(strings.TrimSpace(r.Slug))
	b.Name = strings.TrimSpace(r.Name)
	b.Description = strings.TrimSpace(r.Description)
	b.SystemPrompt = strings.TrimSpace(r.SystemPrompt)
	b.Model = strings.TrimSpace(r.Model)
	b.SortOrder = r.SortOrder
	if r.IsActive != nil {
		b.IsActive = *r.IsActive
	}
}

func (ac *AdminController) HandleListBots(c *fiber.Ctx) error {
	bots, err := ac.repos.Bot.List()
	if err != nil {
		return ac.handleError(c, "Failed to load bots", err)
	}
	return c.JSON(fiber.Map{"bots": bots})
}

func (ac *AdminController) HandleCreateBot(c *fiber.Ctx) error {
	var req botRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
	}
	bot := &models.Bot{IsActive: true}
	req.apply(bot)
	if err := bot.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if exists, err := ac.repos.Bot.SlugExistsExceptID(bot.Slug, 0); err != nil {
		return ac.handleError(c, "Failed to check slug", err)
	} else if exists {
		return jsonError(c, fiber.StatusConflict, "slug_taken", "Slug already in use")
	}
	if err := ac.repos.Bot.Create(bot); err != nil {
		return ac.handleError(c, "Failed to create bot", err)
	}
	return c.Status(fiber.StatusCreated).JSON(bot)
}

func (ac *AdminController) HandleUpdateBot(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid bot ID")
	}
	bot, err := ac.repos.Bot.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Bot not found")
		}
		return ac.handleError(c, "Failed to load bot", err)
	}

	var req botRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid JSON body")
	}
	req.apply(bot)
	if err := bot.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if exists, err := ac.repos.Bot.SlugExistsExceptID(bot.Slug, bot.ID); err != nil {
		return ac.handleError(c, "Failed to check slug", err)
	} else if exists {
		return jsonError(c, fiber.StatusConflict, "slug_taken", "Slug already in use")
	}
	if err := ac.repos.Bot.Update(bot); err != nil {
		return ac.handleError(c, "Failed to update bot", err)
	}
	return c.JSON(bot)
}

func (ac *AdminController) HandleDeleteBot(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid bot ID")
	}
	if err := ac.repos.Bot.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Bot not found")
		}
		return ac.handleError(c, "Failed to delete bot", err)
	}
	return c.JSON(fiber.Map{"success": true})
}
