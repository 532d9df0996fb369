package server

import (
	"opcdiary/internal/models"
	"opcdiary/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetSupervisorThread handles GET /api/messages/supervisor. Opening the
// mailbox marks the supervisor's messages read.
func (s *Server) GetSupervisorThread(c *fiber.Ctx) error {
	actor := actorFrom(c)
	if actor.Supervisor {
		return respondError(c, models.NewForbiddenError("The supervisor reads mailboxes per user"))
	}
	thread, err := s.svcs.Chat.OpenSupervisorThread(c.UserContext(), actor.Name, false)
	sessionFrom(c).Nudge()
	return respond(c, thread, err)
}

// SendToSupervisor handles POST /api/messages/supervisor
func (s *Server) SendToSupervisor(c *fiber.Ctx) error {
	actor := actorFrom(c)
	if actor.Supervisor {
		return respondError(c, models.NewForbiddenError("The supervisor replies per user"))
	}
	var req ContentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	thread, err := s.svcs.Chat.SendToSupervisor(c.UserContext(), actor.Name, req.Content)
	if err != nil && !models.IsQuota(err) {
		return respondError(c, err)
	}
	s.nudge(c, service.SupervisorName)
	return respondStatus(c, fiber.StatusCreated, thread, err)
}

// GetMailbox handles GET /api/messages/supervisor/:name (supervisor only)
func (s *Server) GetMailbox(c *fiber.Ctx) error {
	name := param(c, "name")
	if _, err := s.svcs.Users.Get(c.UserContext(), name); err != nil {
		return respondError(c, err)
	}
	thread, err := s.svcs.Chat.OpenSupervisorThread(c.UserContext(), name, true)
	sessionFrom(c).Nudge()
	return respond(c, thread, err)
}

// ReplyToMailbox handles POST /api/messages/supervisor/:name (supervisor only)
func (s *Server) ReplyToMailbox(c *fiber.Ctx) error {
	var req ContentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	name := param(c, "name")
	thread, err := s.svcs.Chat.ReplyAsSupervisor(c.UserContext(), name, req.Content)
	if err != nil && !models.IsQuota(err) {
		return respondError(c, err)
	}
	s.nudge(c, name)
	return respondStatus(c, fiber.StatusCreated, thread, err)
}

// GetPeerThread handles GET /api/messages/peers/:name
func (s *Server) GetPeerThread(c *fiber.Ctx) error {
	thread, err := s.svcs.Chat.OpenPeerThread(c.UserContext(), actorFrom(c).Name, param(c, "name"))
	sessionFrom(c).Nudge()
	return respond(c, thread, err)
}

// SendPeerMessage handles POST /api/messages/peers/:name. Only friends can
// message each other.
func (s *Server) SendPeerMessage(c *fiber.Ctx) error {
	var req ContentRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	name := param(c, "name")
	thread, err := s.svcs.Chat.SendPeer(c.UserContext(), actorFrom(c).Name, name, req.Content)
	if err != nil && !models.IsQuota(err) {
		return respondError(c, err)
	}
	s.nudge(c, name)
	return respondStatus(c, fiber.StatusCreated, thread, err)
}
