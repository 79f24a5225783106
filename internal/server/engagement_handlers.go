package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ShareRequest is the body of POST /api/posts/:id/share.
type ShareRequest struct {
	Channel string `json:"channel"`
}

// GetLikeStatus handles GET /api/posts/:id/like
func (s *Server) GetLikeStatus(c *fiber.Ctx) error {
	state, err := s.engagementService.LikeStatus(c.UserContext(), c.Params("id"), middleware.PrincipalFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(state)
}

// ToggleLike handles POST /api/posts/:id/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	state, err := s.engagementService.ToggleLike(c.UserContext(), c.Params("id"), middleware.PrincipalFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(state)
}

// SharePost handles POST /api/posts/:id/share
func (s *Server) SharePost(c *fiber.Ctx) error {
	var req ShareRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	total, err := s.engagementService.LogShare(c.UserContext(), service.ShareInput{
		PostID:    c.Params("id"),
		Channel:   req.Channel,
		Principal: middleware.PrincipalFrom(c),
		IP:        middleware.ClientIP(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "shares_count": total})
}
