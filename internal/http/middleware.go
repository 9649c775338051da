// FILE: lanchess/internal/http/middleware.go
package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"lanchess/internal/core"
	"lanchess/internal/service"
)

// TokenValidator validates JWT tokens
type TokenValidator func(token string) (userID string, claims map[string]any, err error)

// AuthRequired enforces JWT authentication for protected endpoints
func AuthRequired(validateToken TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c.Get("Authorization"))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{
				Error: "missing authorization token",
				Code:  core.ErrUnauthorized,
			})
		}

		userID, claims, err := validateToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{
				Error: "invalid or expired token",
				Code:  core.ErrUnauthorized,
			})
		}

		c.Locals("userID", userID)
		if username, ok := claims["username"].(string); ok {
			c.Locals("username", username)
		}
		return c.Next()
	}
}

// OptionalAuth validates JWT if present but allows anonymous access
func OptionalAuth(validateToken TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c.Get("Authorization"))
		if token == "" {
			return c.Next()
		}

		userID, claims, err := validateToken(token)
		if err == nil {
			c.Locals("userID", userID)
			if username, ok := claims["username"].(string); ok {
				c.Locals("username", username)
			}
		}
		// Continue regardless of token validity
		return c.Next()
	}
}

// extractBearerToken extracts JWT token from Authorization header
func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

// identityFromCtx resolves the caller identity: JWT-authenticated
// account first, then the guest session key header.
func identityFromCtx(c *fiber.Ctx) service.Identity {
	id := service.Identity{
		SessionKey: c.Get("X-Session-Key"),
	}
	if userID, ok := c.Locals("userID").(string); ok {
		id.UserID = userID
	}
	if username, ok := c.Locals("username").(string); ok {
		id.Username = username
	}
	return id
}
