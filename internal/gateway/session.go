// Package gateway is the session layer between transports (gRPC
// bidirectional streams and browser WebSockets) and the room registry.
// A Session owns exactly one connection; all room mutation still goes
// through internal/room's inbox, so the gateway never touches a Room's
// internal maps directly (spec §4.5).
package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"racehub/internal/protocol"
	"racehub/internal/room"
	"racehub/internal/roommanager"
)

// Conn abstracts the two transports a Session can ride: a gRPC bidi
// stream or a browser WebSocket. Both carry the same tagged JSON
// frames (spec §9).
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// TrackCatalog lets the gateway answer request_track_list without
// depending on internal/storage directly.
type TrackCatalog interface {
	TrackSummaries() []protocol.TrackSummary
}

const outboxCapacity = 64

// Session is one connected player (or spectator) and its current room
// membership, if any.
type Session struct {
	ID       string
	conn     Conn
	hub      *Hub
	manager  *roommanager.Manager
	catalog  TrackCatalog
	log      zerolog.Logger
	limiter  *inputLimiter

	outbox chan protocol.ServerMessage
	done   chan struct{}
	closeOnce sync.Once
}

// NewSession wires a freshly accepted connection into the gateway. Run
// blocks until the connection closes or the session is kicked.
func NewSession(id string, conn Conn, hub *Hub, manager *roommanager.Manager, catalog TrackCatalog, log zerolog.Logger) *Session {
	return &Session{
		ID:      id,
		conn:    conn,
		hub:     hub,
		manager: manager,
		catalog: catalog,
		log:     log.With().Str("session", id).Logger(),
		limiter: newInputLimiter(),
		outbox:  make(chan protocol.ServerMessage, outboxCapacity),
		done:    make(chan struct{}),
	}
}

// Run registers the session, starts its writer, and blocks reading
// frames until the connection errors out or closes.
func (s *Session) Run() {
	s.hub.Register(s)
	defer s.teardown()

	go s.writeLoop()

	s.Send(protocol.NewWelcome(s.ID, time.Now().UnixMilli()))

	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.DecodeClientMessage(data)
		if err != nil {
			s.Send(protocol.NewError(protocol.ErrJoinFailed, "malformed message"))
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Session) teardown() {
	if r, ok := s.manager.RoomForSession(s.ID); ok {
		r.SubmitDisconnect(s.ID)
	}
	s.hub.Unregister(s.ID)
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// Send implements room.Sender: it queues msg for delivery without
// blocking the room's own goroutine on network I/O.
func (s *Session) Send(msg protocol.ServerMessage) {
	select {
	case s.outbox <- msg:
	default:
		s.log.Warn().Str("type", msg.ServerMessageType()).Msg("outbox full, dropping message")
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.outbox:
			data, err := json.Marshal(msg)
			if err != nil {
				s.log.Error().Err(err).Msg("encode outgoing message")
				continue
			}
			if err := s.conn.WriteMessage(data); err != nil {
				return
			}
		}
	}
}

var _ room.Sender = (*Hub)(nil)
