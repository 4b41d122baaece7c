package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexochat/nexo/app/models"
	"github.com/nexochat/nexo/app/repository"
	"github.com/nexochat/nexo/internal/pkg/database"
	"github.com/nexochat/nexo/internal/pkg/usercontext"
)

func handlersToAny(hs []fiber.Handler) []interface{} {
	out := make([]interface{}, len(hs))
	for i, h := range hs {
		out[i] = h
	}
	return out
}

func newAuthApp(t *testing.T) (*fiber.App, repository.UserRepository) {
	t.Helper()
	users := repository.NewUserRepository(database.NewTestDB(t))

	app := fiber.New()
	app.Use(handlersToAny(RequireUser(users))...)
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(usercontext.GetUserContext(c))
	})
	return app, users
}

func seed(t *testing.T, users repository.UserRepository, email, password, status string) {
	t.Helper()
	u := &models.User{Email: email, Role: models.ROLE_USER, Status: status, Plan: "basic"}
	require.NoError(t, u.SetPassword(password))
	require.NoError(t, users.Create(u))
}

func TestRequireUser(t *testing.T) {
	app, users := newAuthApp(t)
	seed(t, users, "ana@example.com", "Secret1234", models.STATUS_ACTIVE)
	seed(t, users, "off@example.com", "Secret1234", models.STATUS_DISABLED)

	tests := []struct {
		name     string
		email    string
		password string
		noAuth   bool
		want     int
	}{
		{"valid", "ana@example.com", "Secret1234", false, fiber.StatusOK},
		{"email case-insensitive", "ANA@example.com", "Secret1234", false, fiber.StatusOK},
		{"wrong password", "ana@example.com", "nope", false, fiber.StatusUnauthorized},
		{"unknown user", "x@example.com", "Secret1234", false, fiber.StatusUnauthorized},
		{"inactive", "off@example.com", "Secret1234", false, fiber.StatusForbidden},
		{"no header", "", "", true, fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if !tt.noAuth {
				req.SetBasicAuth(tt.email, tt.password)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
			if tt.want == fiber.StatusUnauthorized {
				assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Basic")
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	app := fiber.New()
	app.Use(handlersToAny(RequireAdmin("root", "pw"))...)
	app.Get("/", func(c *fiber.Ctx) error {
		if !usercontext.IsAdmin(c) {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("root", "pw")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("root", "wrong")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAdmin_Disabled(t *testing.T) {
	app := fiber.New()
	app.Use(handlersToAny(RequireAdmin("", ""))...)
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
