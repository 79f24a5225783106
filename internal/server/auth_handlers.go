package server

import (
	"time"

	"inkwell/internal/identity"
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

const clientIDCookieMaxAge = 365 * 24 * time.Hour

// GetClientID returns the caller's anonymous client id, issuing and persisting a new
// one in a cookie when the request carried none.
func (s *Server) GetClientID(c *fiber.Ctx) error {
	p := middleware.PrincipalFrom(c)
	if p.Actor != nil && p.Actor.Kind == models.ActorClient {
		return c.JSON(fiber.Map{"client_id": p.Actor.ID, "issued": false})
	}

	id := identity.NewClientID(nowUTC())
	c.Cookie(&fiber.Cookie{
		Name:     identity.ClientIDCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(clientIDCookieMaxAge.Seconds()),
		HTTPOnly: false,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"client_id": id, "issued": true})
}

// AdminLoginRequest is the body of POST /api/admin/auth.
type AdminLoginRequest struct {
	Password string `json:"password"`
}

// AdminLogin exchanges the admin password for a session token.
func (s *Server) AdminLogin(c *fiber.Ctx) error {
	var req AdminLoginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Password == "" {
		return respondError(c, models.NewValidationError("password is required"))
	}

	token, expiresAt, err := s.auth.Login(req.Password)
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "admin login rejected", "ip", middleware.ClientIP(c))
		return respondError(c, models.NewUnauthorizedError("Invalid password"))
	}
	return c.JSON(fiber.Map{
		"authenticated": true,
		"token":         token,
		"expires_at":    expiresAt,
	})
}

// ValidateAdminRequest is the body of POST /api/auth/validate-admin.
type ValidateAdminRequest struct {
	Secret string `json:"secret"`
}

// ValidateAdmin checks a candidate admin secret.
func (s *Server) ValidateAdmin(c *fiber.Ctx) error {
	var req ValidateAdminRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Secret == "" {
		return respondError(c, models.NewValidationError("secret is required"))
	}
	return c.JSON(fiber.Map{"valid": s.auth.CheckSecret(req.Secret)})
}
