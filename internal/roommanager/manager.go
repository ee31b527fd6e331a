// Package roommanager owns the set of live rooms: creation, lookup by
// id or by human-friendly join code, the session->room index used to
// route a disconnecting session to its room, and the idle-room sweep.
//
// Grounded on yatahunt-airaces's top-level room/session bookkeeping in
// server.go, generalized from a single implicit room into a registry
// of many, each still run by its own goroutine (internal/room).
package roommanager

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"racehub/internal/protocol"
	"racehub/internal/room"
	"racehub/internal/track"
)

// codeAlphabet excludes visually confusable characters (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// idleSweepInterval is how often the manager checks for rooms to reap:
// empty rooms outside the waiting state, and waiting rooms with no
// activity for room.RoomIdleTimeout.
const idleSweepInterval = 60 * time.Second

var (
	// ErrRoomNotFound is returned when a room id or code has no match.
	ErrRoomNotFound = errors.New("roommanager: room not found")
	// ErrTrackNotFound is returned when CreateRoom names an unknown track.
	ErrTrackNotFound = errors.New("roommanager: track not found")
)

// TrackProvider resolves a track id to a loaded Track, letting the
// manager stay agnostic of storage (spec §4.4 "Track catalog").
type TrackProvider interface {
	Track(id string) (*track.Track, error)
}

// Manager is the process-wide room registry. Safe for concurrent use;
// it only ever touches its own maps, never a Room's internal state,
// which stays owned by that Room's actor goroutine.
type Manager struct {
	mu          sync.RWMutex
	rooms       map[string]*room.Room // by room id
	byCode      map[string]string     // join code -> room id
	sessionRoom map[string]string     // session id -> room id

	tracks       TrackProvider
	leaderboards room.LeaderboardRecorder
	log          zerolog.Logger

	// eg supervises every room's actor goroutine plus the idle sweeper,
	// in the style of niceyeti-tabular/tabular/v2's errgroup-backed
	// server fleet, so Close can wait for all of them to exit. Every
	// goroutine in the group returns nil, so Wait never reports an
	// error; a panic inside a room is handled by room.recoverCrash, and
	// the group itself does not catch panics.
	eg        *errgroup.Group
	stopSweep chan struct{}
}

// New constructs a Manager and starts its idle-room sweeper.
// leaderboards may be nil, in which case rooms never record finishes.
func New(tracks TrackProvider, leaderboards room.LeaderboardRecorder, log zerolog.Logger) *Manager {
	eg := &errgroup.Group{}
	m := &Manager{
		rooms:        make(map[string]*room.Room),
		byCode:       make(map[string]string),
		sessionRoom:  make(map[string]string),
		tracks:       tracks,
		leaderboards: leaderboards,
		log:          log.With().Str("component", "roommanager").Logger(),
		eg:           eg,
		stopSweep:    make(chan struct{}),
	}
	eg.Go(func() error {
		m.sweepLoop()
		return nil
	})
	return m
}

// Close stops the idle sweeper and every room's actor goroutine, then
// waits for all of them to exit.
func (m *Manager) Close() {
	close(m.stopSweep)

	m.mu.Lock()
	for _, r := range m.rooms {
		r.Stop()
	}
	m.mu.Unlock()

	if err := m.eg.Wait(); err != nil {
		m.log.Error().Err(err).Msg("room fleet shutdown reported an error")
	}
}

// CreateRoom builds and launches a new room, hosted by hostSessionID.
func (m *Manager) CreateRoom(hostSessionID string, settings protocol.RoomSettings, sender room.Sender) (*room.Room, error) {
	trk, err := m.tracks.Track(settings.TrackID)
	if err != nil {
		return nil, ErrTrackNotFound
	}
	if settings.MaxPlayers <= 0 {
		settings.MaxPlayers = 8
	}
	if settings.LapCount <= 0 {
		settings.LapCount = trk.DefaultLapCount
	}

	id := uuid.NewString()
	code := m.uniqueCode()
	r := room.New(id, code, hostSessionID, settings, trk, sender, m.leaderboards, m.log)

	m.mu.Lock()
	m.rooms[id] = r
	m.byCode[code] = id
	m.mu.Unlock()

	m.eg.Go(func() error {
		r.Run()
		return nil
	})
	return r, nil
}

// uniqueCode draws a random 6-character code, retrying on collision.
// Callers must already be outside m.mu (it takes its own read lock).
func (m *Manager) uniqueCode() string {
	for {
		b := make([]byte, 6)
		for i := range b {
			b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(b)

		m.mu.RLock()
		_, taken := m.byCode[code]
		m.mu.RUnlock()
		if !taken {
			return code
		}
	}
}

// RoomByID looks up a room by its internal id.
func (m *Manager) RoomByID(id string) (*room.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// RoomByCode looks up a room by its human-friendly join code.
func (m *Manager) RoomByCode(code string) (*room.Room, error) {
	m.mu.RLock()
	id, ok := m.byCode[code]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	return m.RoomByID(id)
}

// BindSession records that sessionID is now a member of roomID, so a
// later disconnect can be routed without the caller tracking it.
func (m *Manager) BindSession(sessionID, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionRoom[sessionID] = roomID
}

// UnbindSession removes the session->room association.
func (m *Manager) UnbindSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessionRoom, sessionID)
}

// RoomForSession returns the room a session last joined, if any.
func (m *Manager) RoomForSession(sessionID string) (*room.Room, bool) {
	m.mu.RLock()
	roomID, ok := m.sessionRoom[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	r, err := m.RoomByID(roomID)
	return r, err == nil
}

// Summaries lists every non-private room for the room_list response.
func (m *Manager) Summaries() []protocol.RoomSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]protocol.RoomSummary, 0, len(m.rooms))
	for _, r := range m.rooms {
		s := r.Summary()
		if !s.Settings.IsPrivate {
			out = append(out, s)
		}
	}
	return out
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(idleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopSweep:
			return
		case <-ticker.C:
			m.sweepIdleRooms()
		}
	}
}

func (m *Manager) sweepIdleRooms() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.rooms {
		if (r.IsEmpty() && r.State() != room.StateWaiting) || r.IdleFor() >= room.RoomIdleTimeout {
			r.Stop()
			delete(m.rooms, id)
			for code, roomID := range m.byCode {
				if roomID == id {
					delete(m.byCode, code)
				}
			}
			m.log.Info().Str("room", id).Msg("reaped idle room")
		}
	}
}
