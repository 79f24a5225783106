// Package middleware provides identity, rate limiting, logging and tracing middleware.
package middleware

import (
	"inkwell/internal/identity"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// PrincipalLocal is the Fiber locals key holding the resolved identity.Principal.
const PrincipalLocal = "principal"

// AdminSecretHeader carries the shared admin secret.
const AdminSecretHeader = "x-admin-secret"

// Identify resolves the caller from the bearer token, admin secret header and anonymous
// client id, and stores the principal in locals. It never rejects a request.
func Identify(auth *identity.Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientID := c.Get(identity.ClientIDHeader)
		if clientID == "" {
			clientID = c.Cookies(identity.ClientIDCookie)
		}
		if clientID == "" {
			clientID = c.Query("client_id")
		}
		if clientID == "" {
			clientID = bodyClientID(c)
		}

		p := auth.Resolve(identity.Credentials{
			Authorization: c.Get(fiber.HeaderAuthorization),
			AdminSecret:   c.Get(AdminSecretHeader),
			ClientID:      clientID,
		})
		c.Locals(PrincipalLocal, p)
		return c.Next()
	}
}

// bodyClientID reads the client_id field of a JSON request body. The body stays intact for
// the handler.
func bodyClientID(c *fiber.Ctx) string {
	body := c.Body()
	if len(body) == 0 || !c.Is("json") {
		return ""
	}
	var payload struct {
		ClientID string `json:"client_id"`
	}
	if err := c.App().Config().JSONDecoder(body, &payload); err != nil {
		return ""
	}
	return payload.ClientID
}

// PrincipalFrom returns the principal resolved by Identify, or the anonymous principal.
func PrincipalFrom(c *fiber.Ctx) identity.Principal {
	if p, ok := c.Locals(PrincipalLocal).(identity.Principal); ok {
		return p
	}
	return identity.Anonymous
}

// RequireAdmin rejects callers without an admin secret or admin session.
func RequireAdmin(c *fiber.Ctx) error {
	if !PrincipalFrom(c).Admin {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Admin credentials required"))
	}
	return c.Next()
}

// RequireActor rejects callers that carry neither a user session nor a client id.
func RequireActor(c *fiber.Ctx) error {
	if !PrincipalFrom(c).HasActor() {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("A session or client id is required"))
	}
	return c.Next()
}
