package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"gorm.io/gorm"

	"github.com/nexochat/nexo/app/repository"
	"github.com/nexochat/nexo/internal/pkg/usercontext"
)

const realm = "Nexo"

// RequireUser authenticates an account with its email and generated password
// and loads it into the request context.
func RequireUser(users repository.UserRepository) []fiber.Handler {
	return []fiber.Handler{userBasicAuth(users), loadUser(users)}
}

func userBasicAuth(users repository.UserRepository) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Realm: realm,
		Authorizer: func(email, password string) bool {
			u, err := users.GetByEmail(email)
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					log.Errorf("[Auth] user lookup failed: %v", err)
				}
				return false
			}
			return u.CheckPassword(password)
		},
		Unauthorized:    unauthorized,
		ContextUsername: usercontext.KeyBasicAuthUser,
	})
}

func loadUser(users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		email, _ := c.Locals(usercontext.KeyBasicAuthUser).(string)
		u, err := users.GetByEmail(email)
		if err != nil {
			return unauthorized(c)
		}
		if !u.IsActive() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "User inactive"})
		}
		if err := users.TouchLastLogin(u.ID); err != nil {
			log.Warnf("[Auth] failed to update last login for user %d: %v", u.ID, err)
		}
		usercontext.Set(c, u)
		return c.Next()
	}
}

// RequireAdmin guards operator routes with ADMIN_USER/ADMIN_PASSWORD. With no
// password configured every admin route answers 503.
func RequireAdmin(user, password string) []fiber.Handler {
	if user == "" || password == "" {
		log.Warn("[Auth] ADMIN_USER/ADMIN_PASSWORD not set, admin routes disabled")
		return []fiber.Handler{func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "admin_disabled", "message": "Admin credentials are not configured"})
		}}
	}

	check := basicauth.New(basicauth.Config{
		Realm:        realm + " Admin",
		Users:        map[string]string{user: password},
		Unauthorized: unauthorized,
	})
	mark := func(c *fiber.Ctx) error {
		usercontext.SetAdmin(c, user)
		return c.Next()
	}
	return []fiber.Handler{check, mark}
}

func unauthorized(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="`+realm+`"`)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
}
