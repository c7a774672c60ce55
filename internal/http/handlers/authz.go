package handlers

import (
	"github.com/gofiber/fiber/v2"

	"groupcart/internal/domain"
	applog "groupcart/internal/log"
	"groupcart/internal/services"
)

// RequireUser enforces a bound session; 401 carries the unauthorized
// code so clients can show a session-expired message, not a generic one.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return fail(c, "auth.require", services.ErrNoSession)
		}
		u, err := auth.CurrentUser(sid)
		if err != nil || u == nil {
			return fail(c, "auth.require", services.ErrNoSession)
		}
		c.Locals("user", u)
		return c.Next()
	}
}

func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return fail(c, "auth.require.admin", services.ErrNoSession)
		}
		u, err := auth.CurrentUser(sid)
		if err != nil || u == nil {
			return fail(c, "auth.require.admin", services.ErrNoSession)
		}
		if u.Role != "ADMIN" {
			applog.Security(c, "access.denied.admin", map[string]any{"user_id": u.ID})
			return fail(c, "auth.require.admin", services.ErrForbidden)
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// currentUser returns the user RequireUser placed on the context.
func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}
