package server

import (
	"opcdiary/internal/middleware"
	"opcdiary/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUsers handles GET /api/users. Passwords never leave the server.
func (s *Server) GetUsers(c *fiber.Ctx) error {
	users := s.svcs.Users.List(c.UserContext())
	out := make([]models.PublicProfile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return respond(c, out, nil)
}

// GetUser handles GET /api/users/:name
func (s *Server) GetUser(c *fiber.Ctx) error {
	u, err := s.svcs.Users.Get(c.UserContext(), param(c, "name"))
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, u.Public(), nil)
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var patch models.ProfilePatch
	if err := parseBody(c, &patch); err != nil {
		return respondError(c, err)
	}
	u, err := sessionFrom(c).UpdateProfile(c.UserContext(), patch)
	return respond(c, u.Public(), err)
}

// UpdateUser handles PUT /api/users/:name (supervisor only)
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	var patch models.ProfilePatch
	if err := parseBody(c, &patch); err != nil {
		return respondError(c, err)
	}
	u, err := s.svcs.Users.UpdateProfile(c.UserContext(), actorFrom(c), param(c, "name"), patch)
	return respond(c, u.Public(), err)
}

// DeleteUser handles DELETE /api/users/:name (supervisor only). Sessions
// everywhere rescan since friend and request lists may have changed.
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	name := param(c, "name")
	err := s.svcs.Users.Delete(c.UserContext(), actorFrom(c), name)
	if err != nil && !models.IsQuota(err) {
		return respondError(c, err)
	}

	if err := s.notifier.PublishBroadcast(c.UserContext()); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to broadcast nudge", "error", err)
	}
	return respond(c, fiber.Map{"deleted": name}, err)
}
