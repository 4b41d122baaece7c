package router

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexochat/nexo/app/repository"
	"github.com/nexochat/nexo/internal/pkg/apidocs"
	"github.com/nexochat/nexo/internal/pkg/billing"
	"github.com/nexochat/nexo/internal/pkg/cache"
	"github.com/nexochat/nexo/internal/pkg/database"
	"github.com/nexochat/nexo/internal/pkg/llm"
	"github.com/nexochat/nexo/internal/pkg/usage"
)

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	cache.SetClient(nil)
	db := database.NewTestDB(t)
	app := fiber.New()
	InstallRouter(app, Dependencies{
		Repos:         repository.NewRepositories(db),
		Billing:       billing.NewServiceFromDB(db, billing.WebhookConfig{Policy: billing.SecretPolicyOpen}, nil),
		Usage:         usage.NewService(db),
		LLM:           llm.NewClient(llm.Config{}),
		AdminUser:     "admin",
		AdminPassword: "pw",
	})
	return app
}

func TestRoutesAreGuarded(t *testing.T) {
	app := newApp(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/api/v1/plans", fiber.StatusOK},
		{"GET", "/api/v1/me", fiber.StatusUnauthorized},
		{"POST", "/api/v1/chat", fiber.StatusUnauthorized},
		{"GET", "/admin/settings", fiber.StatusUnauthorized},
		{"GET", "/metrics", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, tt.want, resp.StatusCode, "%s %s", tt.method, tt.path)
	}
}

func TestAdminRouteWithCredentials(t *testing.T) {
	app := newApp(t)
	req := httptest.NewRequest("GET", "/admin/settings", nil)
	req.SetBasicAuth("admin", "pw")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestWebhookRouteMounted(t *testing.T) {
	app := newApp(t)
	req := httptest.NewRequest("POST", "/webhooks/payt", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestDocumentedOperationsAreRegistered(t *testing.T) {
	app := newApp(t)
	doc, err := apidocs.Load(context.Background(), apidocs.Find())
	require.NoError(t, err)

	registered := make(map[string]bool)
	for _, r := range app.GetRoutes(true) {
		registered[r.Method+" "+r.Path] = true
	}
	for _, op := range apidocs.Operations(doc) {
		assert.True(t, registered[op], "documented but not routed: %s", op)
	}
}
