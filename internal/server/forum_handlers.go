package server

import (
	"opcdiary/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetForumPosts handles GET /api/forum/posts?q=&mine=
func (s *Server) GetForumPosts(c *fiber.Ctx) error {
	var author string
	if c.QueryBool("mine") {
		author = actorFrom(c).Name
	}
	return respond(c, s.svcs.Forum.List(c.UserContext(), c.Query("q"), author), nil)
}

// CreateForumPost handles POST /api/forum/posts
func (s *Server) CreateForumPost(c *fiber.Ctx) error {
	var req service.PostInput
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	profile, err := sessionFrom(c).Profile()
	if err != nil {
		return respondError(c, err)
	}
	post, err := s.svcs.Forum.Create(c.UserContext(), profile, req)
	return respondStatus(c, fiber.StatusCreated, post, err)
}

// UpdateForumPost handles PUT /api/forum/posts/:id
func (s *Server) UpdateForumPost(c *fiber.Ctx) error {
	var req service.PostInput
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	post, err := s.svcs.Forum.Edit(c.UserContext(), actorFrom(c).Name, c.Params("id"), req)
	return respond(c, post, err)
}

// DeleteForumPost handles DELETE /api/forum/posts/:id
func (s *Server) DeleteForumPost(c *fiber.Ctx) error {
	id := c.Params("id")
	err := s.svcs.Forum.Delete(c.UserContext(), actorFrom(c).Name, id)
	return respond(c, fiber.Map{"deleted": id}, err)
}

// ToggleForumLike handles POST /api/forum/posts/:id/like
func (s *Server) ToggleForumLike(c *fiber.Ctx) error {
	post, err := s.svcs.Forum.ToggleLike(c.UserContext(), actorFrom(c).Name, c.Params("id"))
	return respond(c, post, err)
}

// AddForumComment handles POST /api/forum/posts/:id/comments
func (s *Server) AddForumComment(c *fiber.Ctx) error {
	var req ContentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	profile, err := sessionFrom(c).Profile()
	if err != nil {
		return respondError(c, err)
	}
	post, err := s.svcs.Forum.AddComment(c.UserContext(), profile, c.Params("id"), req.Content)
	return respondStatus(c, fiber.StatusCreated, post, err)
}
