package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// CORS returns a CORS middleware for the given comma separated origins.
// The browser extension calls the API from its own origin, so credentials are allowed.
func CORS(allowOrigins string) fiber.Handler {
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	return func(c *fiber.Ctx) error {
		origin := allowOrigins
		if origin == "*" && c.Get(fiber.HeaderOrigin) != "" {
			origin = c.Get(fiber.HeaderOrigin)
			c.Vary(fiber.HeaderOrigin)
		}
		c.Set("Access-Control-Allow-Origin", origin)
		c.Set("Access-Control-Allow-Credentials", "true")
		c.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Set("Access-Control-Expose-Headers", "Content-Length, Content-Type, X-Request-ID")
		c.Set("Access-Control-Max-Age", "86400")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
