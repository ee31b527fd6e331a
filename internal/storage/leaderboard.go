package storage

import (
	"fmt"
	"sort"
	"strings"
)

// MaxLeaderboardEntries caps each track's leaderboard at its 100
// fastest distinct nicknames (spec.md §8 scenario 6).
const MaxLeaderboardEntries = 100

// LeaderboardEntry is one nickname's best recorded time on a track.
type LeaderboardEntry struct {
	Nickname  string  `json:"nickname"`
	TimeSecs  float64 `json:"timeSecs"`
	Car       string  `json:"car,omitempty"`
	Recorded  string  `json:"recordedAt,omitempty"`
}

// Leaderboards is the leaderboards collection, one entity per track.
type Leaderboards struct {
	col *Collection
}

// NewLeaderboards opens the leaderboards collection under root.
func NewLeaderboards(root string) (*Leaderboards, error) {
	col, err := NewCollection(root, "leaderboards")
	if err != nil {
		return nil, err
	}
	return &Leaderboards{col: col}, nil
}

// For returns a track's leaderboard, fastest time first. A track with
// no recorded times returns an empty slice, not an error.
func (l *Leaderboards) For(trackID string) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	if err := l.col.Get(trackID, &entries); err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

// Submit records a lap time for nickname on trackID, per spec.md §8
// scenario 6: one entry per nickname (case-insensitive), the better of
// the new and any existing time wins, order stays sorted ascending by
// time, and the list is capped at MaxLeaderboardEntries.
func (l *Leaderboards) Submit(trackID string, entry LeaderboardEntry) ([]LeaderboardEntry, error) {
	entries, err := l.For(trackID)
	if err != nil {
		return nil, fmt.Errorf("storage: submit leaderboard entry: %w", err)
	}

	key := strings.ToLower(entry.Nickname)
	replaced := false
	for i, e := range entries {
		if strings.ToLower(e.Nickname) == key {
			if entry.TimeSecs < e.TimeSecs {
				entries[i] = entry
			}
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].TimeSecs < entries[j].TimeSecs })
	if len(entries) > MaxLeaderboardEntries {
		entries = entries[:MaxLeaderboardEntries]
	}

	if err := l.col.Put(trackID, entries); err != nil {
		return nil, err
	}
	return entries, nil
}
