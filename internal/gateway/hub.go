package gateway

import (
	"sync"

	"racehub/internal/protocol"
)

// Hub is the process-wide session registry. It implements room.Sender
// by forwarding to whichever Session is currently registered for a
// given id, so a Room never needs to know about transports at all.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub constructs an empty session registry.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*Session)}
}

// Register adds a session, keyed by its id.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID] = s
}

// Unregister removes a session. Safe to call more than once.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

// Send implements room.Sender. A missing session (already
// disconnected) is a silent no-op: the room will learn about the
// disconnect via its own inbox shortly.
func (h *Hub) Send(sessionID string, msg protocol.ServerMessage) {
	h.mu.RLock()
	s, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	s.Send(msg)
}
