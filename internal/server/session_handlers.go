package server

import "github.com/gofiber/fiber/v2"

// GetSession handles GET /api/session
func (s *Server) GetSession(c *fiber.Ctx) error {
	return respond(c, sessionFrom(c).State(), nil)
}

// VisitGuest handles POST /api/session/visit/:name
func (s *Server) VisitGuest(c *fiber.Ctx) error {
	st, err := sessionFrom(c).VisitGuest(c.UserContext(), param(c, "name"))
	return respond(c, st, err)
}

// Impersonate handles POST /api/session/impersonate/:name
func (s *Server) Impersonate(c *fiber.Ctx) error {
	st, err := sessionFrom(c).Impersonate(c.UserContext(), param(c, "name"))
	return respond(c, st, err)
}

// ReturnHome handles POST /api/session/home
func (s *Server) ReturnHome(c *fiber.Ctx) error {
	st, err := sessionFrom(c).ReturnHome(c.UserContext())
	return respond(c, st, err)
}
