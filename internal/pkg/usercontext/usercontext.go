package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nexochat/nexo/app/models"
)

// UserContext represents the complete user context for a request
type UserContext struct {
	UserID     uint   `json:"user_id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin"`
	Plan       string `json:"plan"`
}

// Set stores the authenticated account on the request.
func Set(c *fiber.Ctx, u *models.User) {
	c.Locals(KeyUser, u)
	c.Locals(KeyUserContext, UserContext{
		UserID:     u.ID,
		Email:      u.Email,
		Username:   u.Name,
		IsLoggedIn: true,
		IsAdmin:    u.Role == models.ROLE_ADMIN,
		Plan:       u.Plan,
	})
	c.Locals(KeyFromProtected, true)
}

// SetAdmin marks the request as coming from the operator account.
func SetAdmin(c *fiber.Ctx, name string) {
	c.Locals(KeyUserContext, UserContext{Username: name, IsLoggedIn: true, IsAdmin: true})
	c.Locals(KeyIsAdmin, true)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{IsLoggedIn: false, IsAdmin: false}
}

// GetUser returns the account loaded by the auth middleware, or nil.
func GetUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(KeyUser).(*models.User)
	return u
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
