package gateway

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"racehub/internal/roommanager"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn adapts a *websocket.Conn to the gateway's transport-neutral
// Conn interface.
type wsConn struct{ conn *websocket.Conn }

func (w wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.conn.ReadMessage()
	return data, err
}

func (w wsConn) WriteMessage(data []byte) error {
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w wsConn) Close() error { return w.conn.Close() }

// WebSocketHandler upgrades /ws connections and runs a Session per
// connection. A client that reconnects within the room's disconnect
// grace period (spec §4.5) may pass its prior session id back via
// ?sessionId= to resume the same room membership instead of rejoining.
func WebSocketHandler(hub *Hub, manager *roommanager.Manager, catalog TrackCatalog, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		id := r.URL.Query().Get("sessionId")
		reconnecting := id != ""
		if id == "" {
			id = uuid.NewString()
		}

		if reconnecting {
			if rm, ok := manager.RoomForSession(id); ok {
				rm.SubmitReconnect(id)
			}
		}

		NewSession(id, wsConn{conn: conn}, hub, manager, catalog, log).Run()
	}
}
