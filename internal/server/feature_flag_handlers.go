package server

import (
	"prosphere/internal/featureflags"
	"prosphere/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags lists the configured flags, the built-in defaults and how
// each flag evaluates for the calling admin.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"defaults":  featureflags.Defaults,
		"evaluated": s.featureFlags.Snapshot(middleware.UserID(c)),
	})
}
