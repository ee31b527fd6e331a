package room

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"racehub/internal/physics"
	"racehub/internal/protocol"
	"racehub/internal/storage"
	"racehub/internal/track"
)

// recordingSender is a Sender that stores every message delivered, for
// assertions, and is safe for concurrent use from the room's goroutine.
type recordingSender struct {
	mu   sync.Mutex
	sent map[string][]protocol.ServerMessage
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(map[string][]protocol.ServerMessage)}
}

func (s *recordingSender) Send(sessionID string, msg protocol.ServerMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[sessionID] = append(s.sent[sessionID], msg)
}

func (s *recordingSender) last(sessionID string) protocol.ServerMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.sent[sessionID]
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func (s *recordingSender) count(sessionID string, msgType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.sent[sessionID] {
		if m.ServerMessageType() == msgType {
			n++
		}
	}
	return n
}

func straightTestTrack() *track.Track {
	return &track.Track{
		ID: "t1", Width: 800, Height: 600, DefaultLapCount: 2,
		Elements: []track.Element{
			{ID: "spawn1", Type: track.ElementSpawn, X: 100, Y: 100},
			{ID: "finish", Type: track.ElementFinish, X: 700, Y: 100, Width: 20, Height: 120},
		},
	}
}

func newTestRoom(t *testing.T) (*Room, *recordingSender) {
	t.Helper()
	sender := newRecordingSender()
	settings := protocol.RoomSettings{MaxPlayers: 4, LapCount: 2, EnableChat: true}
	r := New("room-1", "ABC123", "", settings, straightTestTrack(), sender, nil, zerolog.Nop())
	go r.Run()
	t.Cleanup(r.Stop)
	return r, sender
}

func TestJoinAcceptsValidNicknameAndReturnsRoster(t *testing.T) {
	r, _ := newTestRoom(t)

	out, err := r.SubmitJoin("p1", "Racer1", "red")
	require.NoError(t, err)
	require.Equal(t, "p1", out.Player.SessionID)
	require.Empty(t, out.Roster)

	out2, err := r.SubmitJoin("p2", "Racer2", "blue")
	require.NoError(t, err)
	require.Len(t, out2.Roster, 1)
	require.Equal(t, "p1", out2.Roster[0].PlayerID)
}

func TestJoinRejectsInvalidNickname(t *testing.T) {
	r, _ := newTestRoom(t)

	_, err := r.SubmitJoin("p1", "x", "red")
	require.Error(t, err)
	var joinErr *JoinError
	require.ErrorAs(t, err, &joinErr)
	require.Equal(t, protocol.ErrInvalidNickname, joinErr.Code)
}

func TestJoinRejectsWhenRoomFull(t *testing.T) {
	sender := newRecordingSender()
	settings := protocol.RoomSettings{MaxPlayers: 1, LapCount: 1}
	r := New("room-1", "ABC123", "", settings, straightTestTrack(), sender, nil, zerolog.Nop())
	go r.Run()
	t.Cleanup(r.Stop)

	_, err := r.SubmitJoin("p1", "Racer1", "red")
	require.NoError(t, err)

	_, err = r.SubmitJoin("p2", "Racer2", "blue")
	require.Error(t, err)
	var joinErr *JoinError
	require.ErrorAs(t, err, &joinErr)
	require.Equal(t, protocol.ErrJoinFailed, joinErr.Code)
}

func TestOnlyHostCanStartGame(t *testing.T) {
	r, sender := newTestRoom(t)
	r.HostID = "p1"
	_, err := r.SubmitJoin("p1", "Racer1", "red")
	require.NoError(t, err)

	r.SubmitStartGame("p2")
	require.Eventually(t, func() bool {
		msg := sender.last("p2")
		return msg != nil && msg.ServerMessageType() == protocol.TypeError
	}, time.Second, time.Millisecond)
}

func TestStartGameTransitionsThroughCountdownToRacing(t *testing.T) {
	r, _ := newTestRoom(t)
	r.HostID = "p1"
	_, err := r.SubmitJoin("p1", "Racer1", "red")
	require.NoError(t, err)

	r.SubmitStartGame("p1")

	require.Eventually(t, func() bool {
		return r.State() == StateRacing
	}, 6*time.Second, 10*time.Millisecond)
}

func TestChatDisabledWhenSettingOff(t *testing.T) {
	sender := newRecordingSender()
	settings := protocol.RoomSettings{MaxPlayers: 4, LapCount: 1, EnableChat: false}
	r := New("room-1", "ABC123", "", settings, straightTestTrack(), sender, nil, zerolog.Nop())
	go r.Run()
	t.Cleanup(r.Stop)

	_, err := r.SubmitJoin("p1", "Racer1", "red")
	require.NoError(t, err)
	_, err = r.SubmitJoin("p2", "Racer2", "blue")
	require.NoError(t, err)

	r.SubmitChat("p1", "gl hf")
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, sender.count("p2", protocol.TypeServerChat))
}

func TestLeaveReassignsHost(t *testing.T) {
	r, _ := newTestRoom(t)
	r.HostID = "p1"
	_, err := r.SubmitJoin("p1", "Racer1", "red")
	require.NoError(t, err)
	_, err = r.SubmitJoin("p2", "Racer2", "blue")
	require.NoError(t, err)

	r.SubmitLeave("p1")

	require.Eventually(t, func() bool {
		return r.HostID == "p2"
	}, time.Second, time.Millisecond)
}

func TestSinglePlayerRaceStartsWithoutAWaitForOthers(t *testing.T) {
	sender := newRecordingSender()
	settings := protocol.RoomSettings{MaxPlayers: 1, LapCount: 1}
	r := New("room-1", "ABC123", "", settings, straightTestTrack(), sender, nil, zerolog.Nop())
	r.HostID = "p1"
	go r.Run()
	t.Cleanup(r.Stop)

	_, err := r.SubmitJoin("p1", "Racer1", "red")
	require.NoError(t, err)
	r.SubmitStartGame("p1")

	require.Eventually(t, func() bool {
		return r.State() == StateRacing
	}, 6*time.Second, 10*time.Millisecond)
}

// fakeLeaderboard is a LeaderboardRecorder that stores every submitted
// entry, for asserting the room calls it on finish.
type fakeLeaderboard struct {
	mu      sync.Mutex
	entries []storage.LeaderboardEntry
}

func (f *fakeLeaderboard) Submit(trackID string, entry storage.LeaderboardEntry) ([]storage.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return f.entries, nil
}

func TestEnterResultsRecordsFinishersOnLeaderboard(t *testing.T) {
	sender := newRecordingSender()
	lb := &fakeLeaderboard{}
	settings := protocol.RoomSettings{MaxPlayers: 1, LapCount: 1}
	r := New("room-1", "ABC123", "", settings, straightTestTrack(), sender, lb, zerolog.Nop())
	r.players["p1"] = &Player{SessionID: "p1", Nickname: "Racer1", CarID: "car-p1"}
	r.cars["car-p1"] = &physics.Car{Finished: true, FinishTime: 42.5, Rank: 1}

	r.enterResults()

	lb.mu.Lock()
	defer lb.mu.Unlock()
	require.Len(t, lb.entries, 1)
	require.Equal(t, "Racer1", lb.entries[0].Nickname)
	require.Equal(t, 42.5, lb.entries[0].TimeSecs)
}
