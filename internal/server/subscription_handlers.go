package server

import (
	"encoding/json"
	"strings"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SubscribeRequest is the body of POST /api/mailing-list/subscribe. Email is the legacy
// name of Contact. Subscribed stays raw so a non-boolean value can be rejected.
type SubscribeRequest struct {
	Contact    string          `json:"contact"`
	Email      string          `json:"email"`
	Subscribed json.RawMessage `json:"subscribed"`
}

// Subscribe handles POST /api/mailing-list/subscribe
func (s *Server) Subscribe(c *fiber.Ctx) error {
	var req SubscribeRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	contact := req.Contact
	if strings.TrimSpace(contact) == "" {
		contact = req.Email
	}

	subscribed := true
	if raw := strings.TrimSpace(string(req.Subscribed)); raw != "" && raw != "null" {
		if err := json.Unmarshal(req.Subscribed, &subscribed); err != nil {
			return respondError(c, models.NewValidationError("subscribed must be a boolean"))
		}
	}

	sub, err := s.subscriptionService.Subscribe(c.UserContext(), contact, subscribed)
	if err != nil {
		return respondError(c, err)
	}

	message := "Successfully subscribed!"
	if !sub.Subscribed {
		message = "Successfully unsubscribed."
	}
	return c.JSON(fiber.Map{"success": true, "message": message, "kind": sub.Kind})
}
