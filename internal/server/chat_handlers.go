package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SendChatRequest is the body of POST /api/chat/messages.
type SendChatRequest struct {
	Channel  string  `json:"channel"`
	Nickname string  `json:"nickname"`
	Content  string  `json:"content"`
	PostID   *string `json:"post_id"`
}

// HeartbeatRequest is the body of POST /api/chat/presence.
type HeartbeatRequest struct {
	Channel  string `json:"channel"`
	Nickname string `json:"nickname"`
}

// GetChatHistory handles GET /api/chat/messages
func (s *Server) GetChatHistory(c *fiber.Ctx) error {
	before, err := parseTimeQuery(c, "before")
	if err != nil {
		return nil
	}
	after, err := parseTimeQuery(c, "after")
	if err != nil {
		return nil
	}

	page, err := s.chatService.History(c.UserContext(), service.HistoryInput{
		Channel: c.Query("channel", models.DefaultChatChannel),
		Limit:   c.QueryInt("limit", models.DefaultHistoryLimit),
		Before:  before,
		After:   after,
		Viewer:  middleware.PrincipalFrom(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// SendChatMessage handles POST /api/chat/messages
func (s *Server) SendChatMessage(c *fiber.Ctx) error {
	var req SendChatRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	msg, err := s.chatService.Send(c.UserContext(), service.SendMessageInput{
		Channel:   req.Channel,
		Nickname:  req.Nickname,
		Content:   req.Content,
		PostID:    req.PostID,
		Principal: middleware.PrincipalFrom(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// DeleteChatMessage handles DELETE /api/chat/messages/:id
func (s *Server) DeleteChatMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.chatService.Delete(c.UserContext(), id, middleware.PrincipalFrom(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// Heartbeat handles POST /api/chat/presence
func (s *Server) Heartbeat(c *fiber.Ctx) error {
	var req HeartbeatRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.chatService.Heartbeat(c.UserContext(), req.Channel, req.Nickname, middleware.PrincipalFrom(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetOnline handles GET /api/chat/presence
func (s *Server) GetOnline(c *fiber.Ctx) error {
	online, err := s.chatService.Online(c.UserContext(), c.Query("channel"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"online": online, "count": len(online)})
}
