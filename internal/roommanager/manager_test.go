package roommanager

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"racehub/internal/protocol"
	"racehub/internal/track"
)

type stubTracks struct {
	t *track.Track
}

func (s stubTracks) Track(id string) (*track.Track, error) {
	if id == "" || id == s.t.ID {
		return s.t, nil
	}
	return nil, errors.New("not found")
}

type noopSender struct{}

func (noopSender) Send(string, protocol.ServerMessage) {}

func testTrack() *track.Track {
	return &track.Track{
		ID: "oval", Width: 800, Height: 600, DefaultLapCount: 3,
		Elements: []track.Element{
			{ID: "s1", Type: track.ElementSpawn, X: 100, Y: 100},
			{ID: "f", Type: track.ElementFinish, X: 700, Y: 100, Width: 20, Height: 120},
		},
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := New(stubTracks{t: testTrack()}, nil, zerolog.Nop())
	t.Cleanup(m.Close)
	return m
}

func TestCreateRoomAssignsCodeAndIsLookupable(t *testing.T) {
	m := newTestManager(t)

	r, err := m.CreateRoom("host-1", protocol.RoomSettings{TrackID: "oval"}, noopSender{})
	require.NoError(t, err)
	require.Len(t, r.Code, 6)

	byID, err := m.RoomByID(r.ID)
	require.NoError(t, err)
	require.Same(t, r, byID)

	byCode, err := m.RoomByCode(r.Code)
	require.NoError(t, err)
	require.Same(t, r, byCode)
}

func TestCreateRoomRejectsUnknownTrack(t *testing.T) {
	m := newTestManager(t)
	_, err := m.CreateRoom("host-1", protocol.RoomSettings{TrackID: "nonexistent"}, noopSender{})
	require.ErrorIs(t, err, ErrTrackNotFound)
}

func TestRoomByCodeUnknownReturnsNotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.RoomByCode("ZZZZZZ")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestSessionBindingRoundTrips(t *testing.T) {
	m := newTestManager(t)
	r, err := m.CreateRoom("host-1", protocol.RoomSettings{TrackID: "oval"}, noopSender{})
	require.NoError(t, err)

	m.BindSession("s1", r.ID)
	got, ok := m.RoomForSession("s1")
	require.True(t, ok)
	require.Same(t, r, got)

	m.UnbindSession("s1")
	_, ok = m.RoomForSession("s1")
	require.False(t, ok)
}

func TestSummariesExcludesPrivateRooms(t *testing.T) {
	m := newTestManager(t)
	_, err := m.CreateRoom("host-1", protocol.RoomSettings{TrackID: "oval"}, noopSender{})
	require.NoError(t, err)
	_, err = m.CreateRoom("host-2", protocol.RoomSettings{TrackID: "oval", IsPrivate: true}, noopSender{})
	require.NoError(t, err)

	summaries := m.Summaries()
	require.Len(t, summaries, 1)
}
