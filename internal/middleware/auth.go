package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/pkg/utils"
)

// ChatEnabled gates the chat surface behind its feature flag. The flag check
// runs before authentication so a disabled deployment looks like a missing
// route.
func ChatEnabled(enabled bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !enabled {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"ok":    false,
				"error": "CHAT_DISABLED",
			})
		}
		return c.Next()
	}
}

func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthenticated(c)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return unauthenticated(c)
		}

		claims, err := utils.ValidateToken(parts[1], secret)
		if err != nil {
			return unauthenticated(c)
		}

		c.Locals("user_id", claims.UserID)
		return c.Next()
	}
}

// OrganizationContext resolves the acting organization from the
// X-Organization-ID header. Membership is verified downstream against the
// database.
func OrganizationContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get("X-Organization-ID"))
		orgID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || orgID <= 0 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"ok":    false,
				"error": "ORG_CONTEXT_REQUIRED",
			})
		}
		c.Locals("org_id", orgID)
		return c.Next()
	}
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"ok":    false,
		"error": "UNAUTHENTICATED",
	})
}
