package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/nexochat/nexo/app/models"
	"github.com/nexochat/nexo/app/repository"
	"github.com/nexochat/nexo/internal/pkg/billing"
	"github.com/nexochat/nexo/internal/pkg/cache"
	"github.com/nexochat/nexo/internal/pkg/database"
	"github.com/nexochat/nexo/internal/pkg/export"
	"github.com/nexochat/nexo/internal/pkg/llm"
	"github.com/nexochat/nexo/internal/pkg/usage"
	"github.com/nexochat/nexo/internal/pkg/usercontext"
)

type fakeCompleter struct {
	last llm.Request
	resp llm.Response
	err  error
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.last = req
	return f.resp, f.err
}

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	repos *repository.Repositories
	llm   *fakeCompleter
}

// newTestEnv wires the handlers the way the router does, with a fixed user
// injected in place of basic auth for the chat routes.
func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()
	cache.SetClient(nil)
	db := database.NewTestDB(t)
	repos := repository.NewRepositories(db)
	completer := &fakeCompleter{resp: llm.Response{Text: "Olá!", Model: "m1"}}

	cfg := billing.WebhookConfig{Secret: billing.NewSharedSecret(secret), Policy: billing.SecretPolicyOpen}
	wc := NewWebhookController(billing.NewServiceFromDB(db, cfg, nil))
	cc := NewChatController(repos, usage.NewService(db), completer)
	ac := NewAdminController(repos)

	app := fiber.New()
	app.Post("/webhooks/payt", wc.HandlePaytWebhook)
	app.Get("/api/v1/plans", HandleListPlans)

	asUser := func(c *fiber.Ctx) error {
		u, err := repos.User.GetByEmail(c.Get("X-Test-User"))
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		usercontext.Set(c, u)
		return c.Next()
	}
	user := app.Group("/api/v1", asUser)
	user.Get("/me", cc.HandleMe)
	user.Get("/bots", cc.HandleListBots)
	user.Post("/chat", cc.HandleChat)

	admin := app.Group("/admin")
	admin.Get("/settings", ac.HandleListSettings)
	admin.Put("/settings/:key", ac.HandlePutSetting)
	admin.Delete("/settings/:key", ac.HandleDeleteSetting)
	admin.Get("/purchases", ac.HandleListPurchases)
	admin.Get("/purchases/export", ac.HandleExportPurchases)
	admin.Get("/purchases/:id", ac.HandleGetPurchase)
	admin.Get("/users", ac.HandleListUsers)
	admin.Get("/bots", ac.HandleListBots)
	admin.Post("/bots", ac.HandleCreateBot)
	admin.Put("/bots/:id", ac.HandleUpdateBot)
	admin.Delete("/bots/:id", ac.HandleDeleteBot)

	return &testEnv{app: app, db: db, repos: repos, llm: completer}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, user string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]interface{}{}
	if resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON {
		raw, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func (e *testEnv) seedUser(t *testing.T, email string, used, limit int, expires time.Time) *models.User {
	t.Helper()
	u := &models.User{
		Email: email, Password: "x", Role: models.ROLE_USER, Status: models.STATUS_ACTIVE,
		Plan: "basic", MessagesLimit: limit, MessagesUsedToday: used,
		LastResetAt: time.Now(), PlanExpiresAt: &expires,
	}
	require.NoError(t, e.repos.User.Create(u))
	return u
}

const paytPaid = `{"integration_key":"k","transaction_id":"TX1","status":"paid",
	"customer":{"name":"Ana","email":"ana@example.com"},"product":{"price":3700}}`

func TestPaytWebhook_Statuses(t *testing.T) {
	e := newTestEnv(t, "k")

	resp, body := e.do(t, "POST", "/webhooks/payt", paytPaid, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["userCreated"])
	assert.Equal(t, "basic", body["plan"])
	assert.NotNil(t, body["purchaseId"])

	resp, body = e.do(t, "POST", "/webhooks/payt", paytPaid, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "duplicate", body["outcome"])
	assert.Nil(t, body["userCreated"])

	resp, body = e.do(t, "POST", "/webhooks/payt", `{"integration_key":"wrong","transaction_id":"TX2","status":"paid"}`, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	resp, body = e.do(t, "POST", "/webhooks/payt", `garbage`, "")
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestPaytWebhook_ProvisionFailureIs200(t *testing.T) {
	e := newTestEnv(t, "k")
	resp, body := e.do(t, "POST", "/webhooks/payt",
		`{"integration_key":"k","transaction_id":"TX3","status":"paid","customer":{"email":""},"product":{"price":3700}}`, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestListPlans(t *testing.T) {
	e := newTestEnv(t, "")
	resp, body := e.do(t, "GET", "/api/v1/plans", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	plans := body["plans"].([]interface{})
	require.Len(t, plans, 2)
	first := plans[0].(map[string]interface{})
	assert.Equal(t, "basic", first["plan"])
	assert.Equal(t, float64(30), first["daily_message_limit"])
	assert.Equal(t, "R$ 37,00", first["price"])
}

func TestChat_Flow(t *testing.T) {
	e := newTestEnv(t, "")
	e.seedUser(t, "ana@example.com", 29, 30, time.Now().Add(24*time.Hour))
	require.NoError(t, e.repos.Bot.Create(&models.Bot{Slug: "tutor", Name: "Tutor", SystemPrompt: "You teach.", Model: "bot-model", IsActive: true}))

	resp, body := e.do(t, "POST", "/api/v1/chat", map[string]string{"botSlug": "tutor", "message": "oi"}, "ana@example.com")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Olá!", body["reply"])
	assert.Equal(t, "You teach.", e.llm.last.SystemPrompt)
	assert.Equal(t, "bot-model", e.llm.last.Model)

	resp, body = e.do(t, "POST", "/api/v1/chat", map[string]string{"message": "again"}, "ana@example.com")
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "quota_exceeded", body["error"])
}

func TestChat_Errors(t *testing.T) {
	e := newTestEnv(t, "")
	e.seedUser(t, "old@example.com", 0, 30, time.Now().Add(-time.Hour))
	e.seedUser(t, "ok@example.com", 0, 30, time.Now().Add(time.Hour))

	resp, _ := e.do(t, "POST", "/api/v1/chat", map[string]string{"message": "oi"}, "old@example.com")
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)

	resp, _ = e.do(t, "POST", "/api/v1/chat", map[string]string{"message": ""}, "ok@example.com")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, "POST", "/api/v1/chat", map[string]string{"botSlug": "missing", "message": "oi"}, "ok@example.com")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	e.llm.err = &llm.UpstreamError{StatusCode: 402, Message: "Insufficient credits"}
	resp, body := e.do(t, "POST", "/api/v1/chat", map[string]string{"message": "oi"}, "ok@example.com")
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Insufficient credits", body["message"])

	var u models.User
	require.NoError(t, e.db.Where("email = ?", "ok@example.com").First(&u).Error)
	assert.Equal(t, 0, u.MessagesUsedToday)
}

func TestMe_ReportsUsage(t *testing.T) {
	e := newTestEnv(t, "")
	e.seedUser(t, "ana@example.com", 4, 30, time.Now().Add(time.Hour))

	resp, body := e.do(t, "GET", "/api/v1/me", nil, "ana@example.com")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	u := body["usage"].(map[string]interface{})
	assert.Equal(t, float64(26), u["messages_remaining"])
	assert.Equal(t, false, u["plan_expired"])
}

func TestAdminSettings(t *testing.T) {
	e := newTestEnv(t, "")

	resp, _ := e.do(t, "PUT", "/admin/settings/unknown_key", map[string]string{"value": "x"}, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, "PUT", "/admin/settings/wavespeed_api_key", map[string]string{"value": "  "}, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body := e.do(t, "PUT", "/admin/settings/wavespeed_api_key", map[string]string{"value": "ws-secret-1234"}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	setting := body["setting"].(map[string]interface{})
	assert.Equal(t, "**********1234", setting["value"])

	resp, body = e.do(t, "GET", "/admin/settings", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["settings"], 1)
	assert.Len(t, body["unset"], len(models.KnownSettingKeys())-1)

	v, err := e.repos.Setting.GetValue("wavespeed_api_key")
	require.NoError(t, err)
	assert.Equal(t, "ws-secret-1234", v)

	resp, _ = e.do(t, "DELETE", "/admin/settings/wavespeed_api_key", nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, "DELETE", "/admin/settings/wavespeed_api_key", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdminPurchasesAndExport(t *testing.T) {
	e := newTestEnv(t, "k")
	e.do(t, "POST", "/webhooks/payt", paytPaid, "")
	e.do(t, "POST", "/webhooks/payt", `{"integration_key":"k","transaction_id":"TX9","status":"waiting_payment","product":{"price":9700}}`, "")

	resp, body := e.do(t, "GET", "/admin/purchases?status=paid", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	resp, _ = e.do(t, "GET", "/admin/purchases/999", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, "GET", "/admin/purchases/export", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.PurchasesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	resp, body = e.do(t, "GET", "/admin/users", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])
}

func TestAdminBots(t *testing.T) {
	e := newTestEnv(t, "")

	resp, body := e.do(t, "POST", "/admin/bots", map[string]interface{}{"slug": "Tutor", "name": "Tutor", "system_prompt": "Teach."}, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	id := uint(body["id"].(float64))
	assert.Equal(t, "tutor", body["slug"])
	assert.Equal(t, true, body["is_active"])

	resp, _ = e.do(t, "POST", "/admin/bots", map[string]interface{}{"slug": "tutor", "name": "Dup", "system_prompt": "x"}, "")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = e.do(t, "POST", "/admin/bots", map[string]interface{}{"slug": "x"}, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = e.do(t, "PUT", "/admin/bots/"+jsonID(id), map[string]interface{}{"slug": "tutor", "name": "Tutor 2", "system_prompt": "Teach more.", "is_active": false}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["is_active"])

	active, err := e.repos.Bot.ListActive()
	require.NoError(t, err)
	assert.Empty(t, active)

	resp, _ = e.do(t, "DELETE", "/admin/bots/"+jsonID(id), nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, "DELETE", "/admin/bots/"+jsonID(id), nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
