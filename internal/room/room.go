// Package room implements the single-actor room runtime: the state
// machine (waiting -> countdown -> racing -> results), the fixed-tick
// physics loop, the lower-rate broadcast loop, and the message inbox
// that is the only way external callers mutate room state (spec §4.3).
//
// A Room is a goroutine-owned actor, grounded in the same
// ticker-driven select loop as FenixDeveloper-vector-racer-v2's
// Room.gameLoop, but replacing its RWMutex-guarded player map with an
// inbox: all mutation happens on the room's own goroutine, so the room
// never needs to lock its own state. Countdown and results timers post
// back into the same inbox rather than adding extra select cases, so
// the actor loop has exactly one place state changes.
package room

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"racehub/internal/physics"
	"racehub/internal/protocol"
	"racehub/internal/raceengine"
	"racehub/internal/storage"
	"racehub/internal/track"
)

// Tick/broadcast/timeout constants, per spec §4.3 and §5.
const (
	PhysicsTickRate         = 60
	StateBroadcastRate      = 20
	CountdownSeconds        = 3
	GameStartDelay          = 500 * time.Millisecond
	MinPlayersToStart       = 1
	RoomIdleTimeout         = 5 * time.Minute
	PlayerDisconnectTimeout = 15 * time.Second
)

// Sender delivers one server message to one session. The gateway
// supplies the concrete implementation; the room only knows session
// ids, never transport details (spec §4.5 ownership split).
type Sender interface {
	Send(sessionID string, msg protocol.ServerMessage)
}

// LeaderboardRecorder submits a finisher's time to the persistent
// per-track leaderboard, letting the room stay agnostic of storage the
// same way Sender keeps it agnostic of transport (spec §4.4, §8
// scenario 6). Nil is valid: a room with no recorder simply doesn't
// record finishes, as in tests.
type LeaderboardRecorder interface {
	Submit(trackID string, entry storage.LeaderboardEntry) ([]storage.LeaderboardEntry, error)
}

// Room is a single race room: one track, one car set, one physics
// integrator, one arbiter, run by exactly one goroutine.
type Room struct {
	ID       string
	Code     string
	HostID   string
	Settings protocol.RoomSettings
	track    *track.Track

	state State

	players       map[string]*Player
	cars          map[string]*physics.Car
	pendingInputs map[string]physics.Input // keyed by car id

	arbiter         *raceengine.Arbiter
	wrap            *physics.WrapBounds
	nextSpawnIndex  int
	snapshotSeq     uint64
	raceStartedAt   time.Time
	elapsed         float64
	firstFinishTime float64 // -1 until a car finishes
	pendingEvents   []protocol.WireEvent

	countdownValue int

	lastActivity time.Time

	inbox  chan inboxMessage
	stopCh chan struct{}
	done   chan struct{}

	sender      Sender
	leaderboard LeaderboardRecorder
	log         zerolog.Logger

	// pub is a read-only snapshot the room's own goroutine republishes
	// after every loop iteration, so the room manager's idle sweep and
	// listings can query state without a round trip through the inbox.
	pub struct {
		mu          sync.RWMutex
		state       State
		hostID      string
		playerCount int
		lastActive  time.Time
	}
}

// New constructs a room. It does not start its goroutine; call Run.
func New(id, code, hostID string, settings protocol.RoomSettings, trk *track.Track, sender Sender, leaderboard LeaderboardRecorder, log zerolog.Logger) *Room {
	var wrap *physics.WrapBounds
	if trk.WrapAround {
		wrap = &physics.WrapBounds{Width: float64(trk.Width), Height: float64(trk.Height)}
	}

	r := &Room{
		ID:              id,
		Code:            code,
		HostID:          hostID,
		Settings:        settings,
		track:           trk,
		state:           StateWaiting,
		players:         make(map[string]*Player),
		cars:            make(map[string]*physics.Car),
		pendingInputs:   make(map[string]physics.Input),
		arbiter:         raceengine.New(trk, settings.LapCount),
		wrap:            wrap,
		firstFinishTime: -1,
		lastActivity:    time.Now(),
		inbox:           make(chan inboxMessage, 256),
		stopCh:          make(chan struct{}),
		done:            make(chan struct{}),
		sender:          sender,
		leaderboard:     leaderboard,
		log:             log.With().Str("room", id).Logger(),
	}
	r.publish()
	return r
}

// Run is the room's actor loop. It owns all room state from this
// point on and must be called exactly once, from its own goroutine.
func (r *Room) Run() {
	defer close(r.done)
	defer r.recoverCrash()

	physicsTicker := time.NewTicker(time.Second / PhysicsTickRate)
	broadcastTicker := time.NewTicker(time.Second / StateBroadcastRate)
	defer physicsTicker.Stop()
	defer broadcastTicker.Stop()

	for {
		select {
		case <-r.stopCh:
			return

		case msg := <-r.inbox:
			r.handleInbox(msg)

		case <-physicsTicker.C:
			if r.state == StateRacing {
				r.tickPhysics()
			}

		case <-broadcastTicker.C:
			if r.state == StateRacing || r.state == StateResults {
				r.broadcastSnapshot(nil)
			}
		}

		r.publish()
	}
}

// publish refreshes the externally-readable snapshot. Called once per
// actor loop iteration; the fields it copies are otherwise touched
// only from this same goroutine.
func (r *Room) publish() {
	r.pub.mu.Lock()
	r.pub.state = r.state
	r.pub.hostID = r.HostID
	r.pub.playerCount = len(r.players)
	r.pub.lastActive = r.lastActivity
	r.pub.mu.Unlock()
}

// Stop terminates the room's actor loop. Safe to call once.
func (r *Room) Stop() {
	close(r.stopCh)
	<-r.done
}

// recoverCrash isolates a panic within this room's tick to this room
// alone, per spec §7 "Fatal errors": log it, notify members, and let
// the process continue.
func (r *Room) recoverCrash() {
	if rec := recover(); rec != nil {
		r.log.Error().Interface("panic", rec).Msg("room crashed, shutting down")
		for sid := range r.players {
			r.sender.Send(sid, &protocol.RoomLeftMsg{Type: protocol.TypeRoomLeft, Reason: "crash"})
		}
	}
}

// State returns the room's current state machine value. Safe to call
// from any goroutine; it reads the actor's published snapshot.
func (r *Room) State() State {
	r.pub.mu.RLock()
	defer r.pub.mu.RUnlock()
	return r.pub.state
}

// IsEmpty reports whether the room has no players. Safe to call from
// any goroutine.
func (r *Room) IsEmpty() bool {
	r.pub.mu.RLock()
	defer r.pub.mu.RUnlock()
	return r.pub.playerCount == 0
}

// IdleFor reports how long the room has been idle (waiting, no recent
// activity), for the room manager's GC sweep (spec §4.3). Safe to call
// from any goroutine.
func (r *Room) IdleFor() time.Duration {
	r.pub.mu.RLock()
	defer r.pub.mu.RUnlock()
	if r.pub.state != StateWaiting {
		return 0
	}
	return time.Since(r.pub.lastActive)
}

// Summary produces the listing shape shared by room_joined/room_list.
// Safe to call from any goroutine; ID/Code/Settings never change after
// construction, HostID/State/PlayerCount come from the published
// snapshot.
func (r *Room) Summary() protocol.RoomSummary {
	r.pub.mu.RLock()
	defer r.pub.mu.RUnlock()
	return protocol.RoomSummary{
		ID:          r.ID,
		Code:        r.Code,
		HostID:      r.pub.hostID,
		Settings:    r.Settings,
		State:       string(r.pub.state),
		PlayerCount: r.pub.playerCount,
	}
}

