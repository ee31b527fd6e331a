// Package httpapi implements the collection-style HTTP control surface
// from spec.md §6: tracks, leaderboards, room listings, and health,
// routed with github.com/gorilla/mux in the idiom of niceyeti-tabular's
// server package (one *mux.Router, handlers as bound methods).
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"racehub/internal/roommanager"
	"racehub/internal/storage"
	"racehub/internal/track"
)

// API wires the storage layer and the room manager into HTTP handlers.
type API struct {
	tracks       *storage.Tracks
	leaderboards *storage.Leaderboards
	manager      *roommanager.Manager
	log          zerolog.Logger
}

// New constructs the HTTP control surface.
func New(tracks *storage.Tracks, leaderboards *storage.Leaderboards, manager *roommanager.Manager, log zerolog.Logger) *API {
	return &API{tracks: tracks, leaderboards: leaderboards, manager: manager, log: log}
}

// Router builds the mux.Router exposing every endpoint in spec.md §6.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/tracks", a.handleListTracks).Methods(http.MethodGet)
	r.HandleFunc("/tracks/{id}", a.handleGetTrack).Methods(http.MethodGet)
	r.HandleFunc("/tracks", a.handleCreateTrack).Methods(http.MethodPost)
	r.HandleFunc("/tracks/{id}", a.handleDeleteTrack).Methods(http.MethodDelete)
	r.HandleFunc("/leaderboards/{trackId}", a.handleLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/rooms", a.handleListRooms).Methods(http.MethodGet)
	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := a.tracks.List()
	if err != nil {
		a.log.Error().Err(err).Msg("list tracks")
		writeError(w, http.StatusInternalServerError, "failed to list tracks", nil)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (a *API) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tr, err := a.tracks.Track(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "track not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (a *API) handleCreateTrack(w http.ResponseWriter, r *http.Request) {
	var tr track.Track
	if err := json.NewDecoder(r.Body).Decode(&tr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}
	if err := a.tracks.Put(&tr); err != nil {
		writeError(w, http.StatusBadRequest, "track validation failed", []string{err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, tr)
}

func (a *API) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.tracks.Delete(id); err != nil {
		writeError(w, http.StatusForbidden, "track cannot be deleted", []string{err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	trackID := mux.Vars(r)["trackId"]
	entries, err := a.leaderboards.For(trackID)
	if err != nil {
		a.log.Error().Err(err).Str("trackId", trackID).Msg("read leaderboard")
		writeError(w, http.StatusInternalServerError, "failed to read leaderboard", nil)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.manager.Summaries())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the {error, errors?} shape spec.md §6 requires for
// every HTTP error response.
type errorBody struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string, details []string) {
	writeJSON(w, status, errorBody{Error: message, Errors: details})
}
