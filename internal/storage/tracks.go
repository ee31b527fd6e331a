package storage

import (
	"fmt"

	"racehub/internal/protocol"
	"racehub/internal/track"
)

// protectedTrackIDs may never be deleted through the HTTP API (spec.md
// §6 "except protected defaults"): they are the bundled tracks shipped
// under /tracks at the repo root.
var protectedTrackIDs = map[string]bool{
	"oval-circuit":   true,
	"wraparound-loop": true,
}

// Tracks is the tracks collection, backing both the room manager's
// track lookups and the HTTP control surface's CRUD endpoints.
type Tracks struct {
	col *Collection
}

// NewTracks opens the tracks collection under root.
func NewTracks(root string) (*Tracks, error) {
	col, err := NewCollection(root, "tracks")
	if err != nil {
		return nil, err
	}
	return &Tracks{col: col}, nil
}

// Track implements internal/roommanager.TrackProvider.
func (t *Tracks) Track(id string) (*track.Track, error) {
	var tr track.Track
	if err := t.col.Get(id, &tr); err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("storage: track %q not found", id)
		}
		return nil, err
	}
	return &tr, nil
}

// List returns every stored track, for GET /tracks and for the
// catalog summaries advertised over the gateway.
func (t *Tracks) List() ([]*track.Track, error) {
	keys, err := t.col.Keys()
	if err != nil {
		return nil, err
	}
	tracks := make([]*track.Track, 0, len(keys))
	for _, k := range keys {
		tr, err := t.Track(k)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, tr)
	}
	return tracks, nil
}

// Put validates and stores a track (POST /tracks).
func (t *Tracks) Put(tr *track.Track) error {
	if err := tr.Validate(); err != nil {
		return fmt.Errorf("storage: invalid track: %w", err)
	}
	return t.col.Put(tr.ID, tr)
}

// TrackSummaries implements internal/gateway.TrackCatalog, letting the
// store back request_track_list directly. A track store that cannot
// be read logs nothing and simply advertises no tracks; callers should
// prefer HTTP GET /tracks for surfacing storage errors.
func (t *Tracks) TrackSummaries() []protocol.TrackSummary {
	tracks, err := t.List()
	if err != nil {
		return nil
	}
	out := make([]protocol.TrackSummary, 0, len(tracks))
	for _, tr := range tracks {
		out = append(out, protocol.TrackSummary{ID: tr.ID, Name: tr.Name, Difficulty: string(tr.Difficulty)})
	}
	return out
}

// Delete removes a track, refusing to remove a protected default
// (spec.md §6 "except protected defaults").
func (t *Tracks) Delete(id string) error {
	if protectedTrackIDs[id] {
		return fmt.Errorf("storage: track %q is a protected default and cannot be deleted", id)
	}
	return t.col.Delete(id)
}
