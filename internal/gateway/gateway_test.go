package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"racehub/internal/protocol"
	"racehub/internal/roommanager"
	"racehub/internal/track"
)

type fakeConn struct {
	in     chan []byte
	out    chan []byte
	mu     sync.Mutex
	closed bool
	closeCh chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), out: make(chan []byte, 16), closeCh: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case d := <-f.in:
		return d, nil
	case <-f.closeCh:
		return nil, io.EOF
	}
}

func (f *fakeConn) WriteMessage(data []byte) error {
	select {
	case f.out <- data:
		return nil
	case <-f.closeCh:
		return errors.New("closed")
	}
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.closeCh)
	}
	return nil
}

func (f *fakeConn) send(t *testing.T, v protocol.ClientMessage) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	f.in <- data
}

func (f *fakeConn) recv(t *testing.T) map[string]any {
	t.Helper()
	select {
	case data := <-f.out:
		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outgoing message")
		return nil
	}
}

type stubCatalog struct{}

func (stubCatalog) TrackSummaries() []protocol.TrackSummary {
	return []protocol.TrackSummary{{ID: "oval", Name: "Oval", Difficulty: "easy"}}
}

type stubTracks struct{ t *track.Track }

func (s stubTracks) Track(id string) (*track.Track, error) {
	if id == "" || id == s.t.ID {
		return s.t, nil
	}
	return nil, errors.New("not found")
}

func testTrack() *track.Track {
	return &track.Track{
		ID: "oval", Width: 800, Height: 600, DefaultLapCount: 2,
		Elements: []track.Element{
			{ID: "s1", Type: track.ElementSpawn, X: 100, Y: 100},
			{ID: "f", Type: track.ElementFinish, X: 700, Y: 100, Width: 20, Height: 120},
		},
	}
}

func newTestGateway(t *testing.T) (*Hub, *roommanager.Manager) {
	t.Helper()
	hub := NewHub()
	manager := roommanager.New(stubTracks{t: testTrack()}, nil, zerolog.Nop())
	t.Cleanup(manager.Close)
	return hub, manager
}

func TestSessionWelcomeThenCreateRoomJoins(t *testing.T) {
	hub, manager := newTestGateway(t)
	conn := newFakeConn()
	sess := NewSession("sess-1", conn, hub, manager, stubCatalog{}, zerolog.Nop())
	go sess.Run()
	defer conn.Close()

	welcome := conn.recv(t)
	require.Equal(t, protocol.TypeWelcome, welcome["type"])

	conn.send(t, &protocol.CreateRoomMsg{
		Type:     protocol.TypeCreateRoom,
		Settings: protocol.RoomSettings{TrackID: "oval", MaxPlayers: 4, LapCount: 1},
		Nickname: "Racer1",
	})

	joined := conn.recv(t)
	require.Equal(t, protocol.TypeRoomJoined, joined["type"])
	require.Equal(t, "sess-1", joined["playerId"])
}

func TestSessionRejectsInvalidNicknameOnJoin(t *testing.T) {
	hub, manager := newTestGateway(t)
	_, err := manager.CreateRoom("host", protocol.RoomSettings{TrackID: "oval", MaxPlayers: 4, LapCount: 1}, hub)
	require.NoError(t, err)

	conn := newFakeConn()
	sess := NewSession("sess-2", conn, hub, manager, stubCatalog{}, zerolog.Nop())
	go sess.Run()
	defer conn.Close()

	conn.recv(t) // welcome

	rooms := manager.Summaries()
	require.Len(t, rooms, 1)

	conn.send(t, &protocol.JoinRoomMsg{
		Type:     protocol.TypeJoinRoom,
		RoomID:   rooms[0].ID,
		Nickname: "x",
	})

	errMsg := conn.recv(t)
	require.Equal(t, protocol.TypeError, errMsg["type"])
	require.Equal(t, protocol.ErrInvalidNickname, errMsg["code"])
}

func TestSessionPingPong(t *testing.T) {
	hub, manager := newTestGateway(t)
	conn := newFakeConn()
	sess := NewSession("sess-3", conn, hub, manager, stubCatalog{}, zerolog.Nop())
	go sess.Run()
	defer conn.Close()

	conn.recv(t) // welcome

	conn.send(t, &protocol.PingMsg{Type: protocol.TypePing, Timestamp: 12345})
	pong := conn.recv(t)
	require.Equal(t, protocol.TypePong, pong["type"])
	require.Equal(t, float64(12345), pong["clientTimestamp"])
}
