package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"racehub/internal/track"
)

func sampleTrack(id string) *track.Track {
	return &track.Track{
		ID:              id,
		Name:            "Test Track",
		DefaultLapCount: 2,
		Width:           800,
		Height:          600,
		Elements: []track.Element{
			{ID: "s1", Type: track.ElementSpawn, X: 100, Y: 100},
			{ID: "f", Type: track.ElementFinish, X: 700, Y: 100, Width: 20, Height: 120},
		},
	}
}

func TestTracksPutAndLookup(t *testing.T) {
	tracks, err := NewTracks(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, tracks.Put(sampleTrack("oval")))

	got, err := tracks.Track("oval")
	require.NoError(t, err)
	require.Equal(t, "Test Track", got.Name)
}

func TestTracksDeleteRefusesProtectedDefaults(t *testing.T) {
	tracks, err := NewTracks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, tracks.Put(sampleTrack("oval-circuit")))

	err = tracks.Delete("oval-circuit")
	require.Error(t, err)

	_, err = tracks.Track("oval-circuit")
	require.NoError(t, err)
}

func TestTracksDeleteAllowsNonProtected(t *testing.T) {
	tracks, err := NewTracks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, tracks.Put(sampleTrack("custom")))

	require.NoError(t, tracks.Delete("custom"))

	_, err = tracks.Track("custom")
	require.ErrorContains(t, err, "not found")
}

func TestTracksPutRejectsInvalidTrack(t *testing.T) {
	tracks, err := NewTracks(t.TempDir())
	require.NoError(t, err)

	err = tracks.Put(&track.Track{ID: "bad", Width: 0, Height: 0})
	require.Error(t, err)
}

func TestTrackSummariesReflectsStoredTracks(t *testing.T) {
	tracks, err := NewTracks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, tracks.Put(sampleTrack("oval")))

	summaries := tracks.TrackSummaries()
	require.Len(t, summaries, 1)
	require.Equal(t, "oval", summaries[0].ID)
}
