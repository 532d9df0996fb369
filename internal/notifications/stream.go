package notifications

import (
	"context"
	"time"

	"opcdiary/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames; anything larger is a protocol error.
	maxMessageSize = 512
)

// Stream pushes every view-model a Source publishes to one WebSocket
// connection, as JSON text frames.
type Stream struct {
	Conn     *websocket.Conn
	Source   Source
	Identity string

	log *observability.WSLogger
}

// NewStream creates a Stream.
func NewStream(conn *websocket.Conn, src Source, identity string) *Stream {
	return &Stream{
		Conn:     conn,
		Source:   src,
		Identity: identity,
		log:      observability.NewWSLogger("notifications"),
	}
}

// Run blocks until the client disconnects, ctx is done or the source stops.
func (s *Stream) Run(ctx context.Context) {
	observability.WebSocketConnections.Inc()
	defer observability.WebSocketConnections.Dec()
	s.log.LogConnect(ctx, s.Identity)

	updates, cancel := s.Source.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go s.readPump(closed)

	reason := s.writePump(ctx, updates, closed)
	_ = s.Conn.Close()
	s.log.LogDisconnect(ctx, s.Identity, reason)
}

// readPump discards client frames and reports when the connection drops.
func (s *Stream) readPump(closed chan<- struct{}) {
	defer close(closed)

	s.Conn.SetReadLimit(maxMessageSize)
	_ = s.Conn.SetReadDeadline(time.Now().Add(pongWait))
	s.Conn.SetPongHandler(func(string) error { return s.Conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if _, _, err := s.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Stream) writePump(ctx context.Context, updates <-chan ViewModel, closed <-chan struct{}) string {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "server shutdown"
		case <-closed:
			return "client closed"
		case vm, ok := <-updates:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				return "session ended"
			}
			if err := s.Conn.WriteJSON(vm); err != nil {
				return "write failed"
			}
		case <-ticker.C:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return "ping failed"
			}
		}
	}
}
