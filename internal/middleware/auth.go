// Package middleware provides the request middleware of the cookbook API.
package middleware

import (
	"strings"

	"cookbook/internal/identity"
	"cookbook/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired is a middleware that enforces authentication for protected routes.
// The verified email is stored in c.Locals(LocalsUserEmail) and in the request context.
func AuthRequired(verifier identity.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Authorization header required")
		}

		// Extract token from "Bearer <token>"
		scheme, token, ok := strings.Cut(authHeader, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return unauthorized(c, "Invalid authorization header format")
		}

		principal, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			Logger.DebugContext(c.UserContext(), "token rejected", "error", err.Error())
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(LocalsUserEmail, principal.Email)
		c.SetUserContext(WithUserEmail(c.UserContext(), principal.Email))

		return c.Next()
	}
}

// UserEmail returns the email stored by AuthRequired, or "" on public routes.
func UserEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(LocalsUserEmail).(string)
	return email
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
		Error: message,
		Code:  models.CodeUnauthorized,
	})
}
