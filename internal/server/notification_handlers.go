package server

import (
	"opcdiary/internal/middleware"
	"opcdiary/internal/notifications"
	"opcdiary/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// GetNotifications handles GET /api/notifications
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	return respond(c, sessionFrom(c).Notifications().Latest(), nil)
}

// WebSocketUpgrade lets only WebSocket handshakes through.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// NotificationsWebSocket streams the session's badge view-models. The stream
// ends on logout, since stopping the poller closes the subscription.
func (s *Server) NotificationsWebSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		m, ok := conn.Locals(localSession).(*session.Manager)
		if !ok {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		identity, _ := conn.Locals(middleware.LocalIdentity).(string)
		notifications.NewStream(conn, m.Notifications(), identity).Run(s.shutdownCtx)
	})
}
