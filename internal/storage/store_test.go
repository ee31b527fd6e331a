package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type widget struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCollectionPutGetDeleteRoundTrip(t *testing.T) {
	col, err := NewCollection(t.TempDir(), "widgets")
	require.NoError(t, err)

	require.NoError(t, col.Put("gizmo", widget{Name: "gizmo", Count: 3}))

	var got widget
	require.NoError(t, col.Get("gizmo", &got))
	require.Equal(t, widget{Name: "gizmo", Count: 3}, got)

	keys, err := col.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"gizmo"}, keys)

	require.NoError(t, col.Delete("gizmo"))
	require.ErrorIs(t, col.Get("gizmo", &got), ErrNotFound)
}

func TestCollectionGetMissingKeyReturnsErrNotFound(t *testing.T) {
	col, err := NewCollection(t.TempDir(), "widgets")
	require.NoError(t, err)

	var got widget
	require.ErrorIs(t, col.Get("missing", &got), ErrNotFound)
}

func TestCollectionPutOverwritesAtomically(t *testing.T) {
	col, err := NewCollection(t.TempDir(), "widgets")
	require.NoError(t, err)

	require.NoError(t, col.Put("gizmo", widget{Name: "gizmo", Count: 1}))
	require.NoError(t, col.Put("gizmo", widget{Name: "gizmo", Count: 2}))

	var got widget
	require.NoError(t, col.Get("gizmo", &got))
	require.Equal(t, 2, got.Count)

	keys, err := col.Keys()
	require.NoError(t, err)
	require.Len(t, keys, 1)
}

func TestCollectionKeySanitizesPathSeparators(t *testing.T) {
	col, err := NewCollection(t.TempDir(), "widgets")
	require.NoError(t, err)

	require.NoError(t, col.Put("../../etc/passwd", widget{Name: "x"}))

	keys, err := col.Keys()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.NotContains(t, keys[0], "..")
}

func TestLeaderboardSubmitReplacesSlowerTimeForSameNicknameCaseInsensitive(t *testing.T) {
	lb, err := NewLeaderboards(t.TempDir())
	require.NoError(t, err)

	_, err = lb.Submit("oval", LeaderboardEntry{Nickname: "Racer1", TimeSecs: 30.5})
	require.NoError(t, err)
	entries, err := lb.Submit("oval", LeaderboardEntry{Nickname: "racer1", TimeSecs: 28.1})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	require.Equal(t, 28.1, entries[0].TimeSecs)
}

func TestLeaderboardSubmitKeepsExistingFasterTime(t *testing.T) {
	lb, err := NewLeaderboards(t.TempDir())
	require.NoError(t, err)

	_, err = lb.Submit("oval", LeaderboardEntry{Nickname: "Racer1", TimeSecs: 20.0})
	require.NoError(t, err)
	entries, err := lb.Submit("oval", LeaderboardEntry{Nickname: "Racer1", TimeSecs: 25.0})
	require.NoError(t, err)

	require.Equal(t, 20.0, entries[0].TimeSecs)
}

func TestLeaderboardStaysSortedAndCappedAt100(t *testing.T) {
	lb, err := NewLeaderboards(t.TempDir())
	require.NoError(t, err)

	var entries []LeaderboardEntry
	for i := 0; i < 105; i++ {
		entries, err = lb.Submit("oval", LeaderboardEntry{
			Nickname: rune32Name(i),
			TimeSecs: float64(200 - i),
		})
		require.NoError(t, err)
	}

	require.Len(t, entries, MaxLeaderboardEntries)
	for i := 1; i < len(entries); i++ {
		require.LessOrEqual(t, entries[i-1].TimeSecs, entries[i].TimeSecs)
	}
}

func rune32Name(i int) string {
	return string(rune('A'+i%26)) + string(rune('a'+(i/26)%26))
}
