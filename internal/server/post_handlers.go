package server

import (
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePostRequest is the body of POST /api/posts.
type CreatePostRequest struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Excerpt    string     `json:"excerpt"`
	Content    string     `json:"content"`
	Tags       []string   `json:"tags"`
	AuthorName string     `json:"author_name"`
	CoverImage string     `json:"cover_image"`
	Status     string     `json:"status"`
	PublishAt  *time.Time `json:"publish_at"`
}

// UpdatePostRequest is the body of PATCH /api/posts/:id. Absent fields are unchanged.
type UpdatePostRequest struct {
	Title      *string    `json:"title"`
	Excerpt    *string    `json:"excerpt"`
	Content    *string    `json:"content"`
	Tags       *[]string  `json:"tags"`
	AuthorName *string    `json:"author_name"`
	CoverImage *string    `json:"cover_image"`
	Status     *string    `json:"status"`
	PublishAt  *time.Time `json:"publish_at"`
}

// PublishPostRequest is the optional body of POST /api/posts/:id/publish.
type PublishPostRequest struct {
	PublishAt *time.Time `json:"publish_at"`
}

// ListPosts handles GET /api/posts
func (s *Server) ListPosts(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	posts, err := s.postService.ListPublic(c.UserContext(), page.Limit, page.Offset, c.Query("tag"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts, "limit": page.Limit, "offset": page.Offset})
}

// GetPost handles GET /api/posts/:id. Admins see drafts and scheduled posts as an
// uncached preview.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id := c.Params("id")
	if middleware.PrincipalFrom(c).Admin {
		post, err := s.postService.GetForAdmin(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(post)
	}

	post, err := s.postService.GetPublic(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req CreatePostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		ID:         req.ID,
		Title:      req.Title,
		Excerpt:    req.Excerpt,
		Content:    req.Content,
		Tags:       req.Tags,
		AuthorName: req.AuthorName,
		CoverImage: req.CoverImage,
		Status:     req.Status,
		PublishAt:  req.PublishAt,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PATCH /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	var req UpdatePostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.Update(c.UserContext(), c.Params("id"), service.UpdatePostInput{
		Title:      req.Title,
		Excerpt:    req.Excerpt,
		Content:    req.Content,
		Tags:       req.Tags,
		AuthorName: req.AuthorName,
		CoverImage: req.CoverImage,
		Status:     req.Status,
		PublishAt:  req.PublishAt,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	if err := s.postService.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// PublishPost handles POST /api/posts/:id/publish
func (s *Server) PublishPost(c *fiber.Ctx) error {
	var req PublishPostRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}
	post, err := s.postService.Publish(c.UserContext(), c.Params("id"), req.PublishAt)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// UnpublishPost handles POST /api/posts/:id/unpublish
func (s *Server) UnpublishPost(c *fiber.Ctx) error {
	post, err := s.postService.Unpublish(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// PublishDue handles POST /api/posts/publish-due for external schedulers.
func (s *Server) PublishDue(c *fiber.Ctx) error {
	published, err := s.postService.Sweep(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"published": published, "count": len(published)})
}

// ListAllPosts handles GET /api/admin/posts
func (s *Server) ListAllPosts(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	posts, err := s.postService.ListAll(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(fiber.Map{"posts": posts, "limit": page.Limit, "offset": page.Offset})
}

// GetAdminOverview handles GET /api/admin/overview
func (s *Server) GetAdminOverview(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(s.adminService.Overview(c.UserContext()))
}
