// internal/realtime/websocket.go
package realtime

import (
	"log/slog"
	"time"

	"github.com/gofiber/websocket/v2"
)

const writeWait = 10 * time.Second

// WebSocketConn wraps websocket.Conn so the hub does not depend on the transport.
type WebSocketConn struct {
	Conn *websocket.Conn
}

func NewWebSocketConn(c *websocket.Conn) *WebSocketConn {
	return &WebSocketConn{Conn: c}
}

// WritePump drains send into the socket until the channel is closed or a write fails.
// It is the only writer on the connection.
func (w *WebSocketConn) WritePump(send <-chan []byte) {
	for msg := range send {
		_ = w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := w.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			slog.Debug("websocket write failed", "error", err)
			return
		}
	}
	_ = w.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
