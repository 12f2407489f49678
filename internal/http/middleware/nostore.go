package middleware

import "github.com/gofiber/fiber/v2"

// NoStore marks responses as not cacheable. Used on routes returning tokens
// or personal data.
func NoStore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store")
		c.Set(fiber.HeaderPragma, "no-cache")
		return c.Next()
	}
}
