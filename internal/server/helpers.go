package server

import (
	"strings"

	"opcdiary/internal/middleware"
	"opcdiary/internal/models"
	"opcdiary/internal/service"
	"opcdiary/internal/session"

	"github.com/gofiber/fiber/v2"
)

// localSession is the fiber local holding the request's *session.Manager.
const localSession = "session"

// quotaWarning accompanies a mutation that was applied but could not be
// persisted because the store is full.
const quotaWarning = "Storage is full. Your change is kept for now but may be lost on reload."

// SessionRequired resolves the session named by the token. It must run after
// the auth middleware. A session whose identity no longer matches the token
// is treated as expired.
func (s *Server) SessionRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid, _ := c.Locals(middleware.LocalSessionID).(string)
		identity, _ := c.Locals(middleware.LocalIdentity).(string)

		m, ok := s.sessions.Get(sid)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Session expired"))
		}
		actor, err := m.Actor()
		if err != nil || actor.Name != identity {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Session expired"))
		}

		c.Locals(localSession, m)
		return c.Next()
	}
}

// SupervisorRequired rejects sessions not logged in with the master credential.
func (s *Server) SupervisorRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !sessionFrom(c).IsSupervisor() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Supervisor access required"))
		}
		return c.Next()
	}
}

func sessionFrom(c *fiber.Ctx) *session.Manager {
	m, _ := c.Locals(localSession).(*session.Manager)
	return m
}

// actorFrom returns the identity of an authenticated request.
func actorFrom(c *fiber.Ctx) service.Actor {
	actor, _ := sessionFrom(c).Actor()
	return actor
}

// param returns a trimmed path parameter. The app is built with
// UnescapePath, so names with spaces arrive decoded.
func param(c *fiber.Ctx, name string) string {
	return strings.TrimSpace(c.Params(name))
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// respond writes {"data": data}. A quota error still answers with the data
// plus a warning; any other error is mapped to its status.
func respond(c *fiber.Ctx, data any, err error) error {
	return respondStatus(c, fiber.StatusOK, data, err)
}

func respondStatus(c *fiber.Ctx, status int, data any, err error) error {
	if err != nil && !models.IsQuota(err) {
		return respondError(c, err)
	}
	body := fiber.Map{"data": data}
	if err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "change kept in memory only",
			"path", c.Path(), "error", err)
		body["warning"] = quotaWarning
	}
	return c.Status(status).JSON(body)
}

func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request error", "path", c.Path(), "error", err)
		if !models.HasCode(err, models.CodeInternal) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

// nudge asks the sessions of each name to rescan their badges now. Polling
// catches up anyway, so a failed publish is only logged.
func (s *Server) nudge(c *fiber.Ctx, names ...string) {
	for _, name := range names {
		if err := s.notifier.PublishUser(c.UserContext(), name); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to publish nudge",
				"identity", name, "error", err)
		}
	}
}
