package server

import (
	"opcdiary/internal/middleware"
	"opcdiary/internal/models"
	"opcdiary/internal/session"

	"github.com/gofiber/fiber/v2"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	CompanyName string `json:"companyName"`
	Password    string `json:"password"`
}

// AuthResponse is returned by login and onboarding.
type AuthResponse struct {
	Token   string        `json:"token"`
	Session session.State `json:"session"`
}

// LastUser handles GET /api/auth/last-user. It returns the profile the login
// form should be prefilled with, or null.
func (s *Server) LastUser(c *fiber.Ctx) error {
	u, ok := s.svcs.Users.Remembered(c.UserContext())
	if !ok {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": u.Public()})
}

// Onboard handles POST /api/auth/onboard
func (s *Server) Onboard(c *fiber.Ctx) error {
	var req models.UserProfile
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	id, m := s.sessions.Create()
	st, err := m.CompleteOnboarding(c.UserContext(), req)
	if err != nil && !models.IsQuota(err) {
		s.sessions.Remove(id)
		return respondError(c, err)
	}
	return s.issueSession(c, fiber.StatusCreated, id, st, err)
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	id, m := s.sessions.Create()
	st, err := m.Login(c.UserContext(), req.CompanyName, req.Password)
	if err != nil {
		s.sessions.Remove(id)
		return respondError(c, err)
	}
	return s.issueSession(c, fiber.StatusOK, id, st, nil)
}

func (s *Server) issueSession(c *fiber.Ctx, status int, id string, st session.State, warn error) error {
	ttl := s.config.SessionTTL
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	token, err := middleware.IssueToken(s.config.JWTSecret, st.Self.CompanyName, id, ttl)
	if err != nil {
		s.sessions.Remove(id)
		return respondError(c, models.NewInternalError(err))
	}
	return respondStatus(c, status, AuthResponse{Token: token, Session: st}, warn)
}

// Logout handles POST /api/auth/logout. It succeeds for expired sessions too.
func (s *Server) Logout(c *fiber.Ctx) error {
	sid, _ := c.Locals(middleware.LocalSessionID).(string)
	if m, ok := s.sessions.Get(sid); ok {
		if err := m.Logout(c.UserContext()); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to clear last active user", "error", err)
		}
	}
	s.sessions.Remove(sid)
	return c.JSON(fiber.Map{"message": "Logged out"})
}
