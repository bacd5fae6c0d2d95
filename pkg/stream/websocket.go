package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HatiCode/healthwatch/pkg/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebSocketHandler streams the given topics over a WebSocket connection as
// JSON text messages, starting with the connected envelope.
func (m *Manager) WebSocketHandler(topics ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			m.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		session := m.Open(ctx, TransportWebSocket, topics...)
		defer m.Close(session)

		go m.readPump(conn, cancel)
		m.writePump(ctx, conn, session)
	})
}

// readPump discards client messages and handles pongs. It cancels the
// session when the peer goes away.
func (m *Manager) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				m.logger.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}

func (m *Manager) writePump(ctx context.Context, conn *websocket.Conn, session *Session) {
	pingPeriod := m.opts.KeepAlive
	if pingPeriod >= pongWait {
		pingPeriod = (pongWait * 9) / 10
	}
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(events.Connected()); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-m.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case env := <-session.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				m.logger.Debug().Err(err).Str("session", session.ID()).Msg("WebSocket write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
