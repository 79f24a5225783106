package server

import (
	"inkwell/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns configured feature flags and their evaluated state for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	subject := ""
	if p := middleware.PrincipalFrom(c); p.HasActor() {
		subject = p.Actor.String()
	}

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	resp := fiber.Map{"evaluated": s.featureFlags.Snapshot(subject)}
	if middleware.PrincipalFrom(c).Admin {
		resp["raw"] = s.featureFlags.Raw()
	}
	return c.JSON(resp)
}
