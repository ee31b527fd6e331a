// Package protocol defines the wire message taxonomy for the session
// gateway: a tagged union of client->server and server->client message
// kinds (spec §6), and the quantized snapshot codec used by the
// broadcast loop. Every message keeps the legacy "string tag + flat
// optional fields" JSON shape described in spec §9, rather than a
// nested Go-idiomatic sum type, so existing browser clients
// interoperate without translation.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Client -> server message type tags.
const (
	TypeCreateRoom       = "create_room"
	TypeJoinRoom         = "join_room"
	TypeLeaveRoom        = "leave_room"
	TypeSetReady         = "set_ready"
	TypeStartGame        = "start_game"
	TypeInput            = "input"
	TypeChat             = "chat"
	TypeEmote            = "emote"
	TypeRequestRoomList  = "request_room_list"
	TypeRequestTrackList = "request_track_list"
	TypePing             = "ping"
)

// Server -> client message type tags.
const (
	TypeWelcome          = "welcome"
	TypeRoomJoined       = "room_joined"
	TypeRoomLeft         = "room_left"
	TypePlayerJoined     = "player_joined"
	TypePlayerLeft       = "player_left"
	TypePlayerReady      = "player_ready"
	TypeGameStarting     = "game_starting"
	TypeCountdown        = "countdown"
	TypeGameStarted      = "game_started"
	TypeGameState        = "game_state"
	TypeCheckpointPassed = "checkpoint_passed"
	TypeLapCompleted     = "lap_completed"
	TypePlayerFinished   = "player_finished"
	TypeRaceFinished     = "race_finished"
	TypeCollision        = "collision"
	TypeServerChat       = "chat"
	TypeServerEmote      = "emote"
	TypeRoomList         = "room_list"
	TypeTrackList        = "track_list"
	TypeError            = "error"
	TypePong             = "pong"
)

// RoomSettings mirrors spec §3's Room.settings.
type RoomSettings struct {
	MaxPlayers        int    `json:"maxPlayers"`
	LapCount          int    `json:"lapCount"`
	IsPrivate         bool   `json:"isPrivate"`
	AllowMidRaceJoin  bool   `json:"allowMidRaceJoin"`
	EnableChat        bool   `json:"enableChat"`
	TrackID           string `json:"trackId"`
}

// PlayerProfile is the public-facing subset of Session fields shared
// with other players in a room.
type PlayerProfile struct {
	PlayerID        string `json:"playerId"`
	Nickname        string `json:"nickname"`
	PreferredColor  string `json:"preferredColor"`
	Ready           bool   `json:"ready"`
}

// ClientMessage is implemented by every client->server message kind.
type ClientMessage interface {
	ClientMessageType() string
}

type CreateRoomMsg struct {
	Type           string       `json:"type"`
	Settings       RoomSettings `json:"settings"`
	Nickname       string       `json:"nickname"`
	PreferredColor string       `json:"preferredColor"`
}

func (m *CreateRoomMsg) ClientMessageType() string { return TypeCreateRoom }

type JoinRoomMsg struct {
	Type           string `json:"type"`
	RoomID         string `json:"roomId,omitempty"`
	Code           string `json:"code,omitempty"`
	Nickname       string `json:"nickname"`
	PreferredColor string `json:"preferredColor"`
}

func (m *JoinRoomMsg) ClientMessageType() string { return TypeJoinRoom }

type LeaveRoomMsg struct {
	Type string `json:"type"`
}

func (m *LeaveRoomMsg) ClientMessageType() string { return TypeLeaveRoom }

type SetReadyMsg struct {
	Type  string `json:"type"`
	Ready bool   `json:"ready"`
}

func (m *SetReadyMsg) ClientMessageType() string { return TypeSetReady }

type StartGameMsg struct {
	Type string `json:"type"`
}

func (m *StartGameMsg) ClientMessageType() string { return TypeStartGame }

// InputMsg is the per-tick control record from spec §3. The legacy
// aliases (turnLeft/turnRight, boost) are intentionally absent: per
// spec §9's open question, a rewrite drops them from the wire rather
// than silently reconciling conflicting values.
type InputMsg struct {
	Type       string  `json:"type"`
	PlayerID   string  `json:"playerId"`
	Sequence   uint32  `json:"sequence"`
	Timestamp  int64   `json:"timestamp"`
	Accelerate bool    `json:"accelerate"`
	Brake      bool    `json:"brake"`
	SteerLeft  bool    `json:"steerLeft"`
	SteerRight bool    `json:"steerRight"`
	SteerValue float64 `json:"steerValue,omitempty"`
	Nitro      bool    `json:"nitro"`
	Handbrake  bool    `json:"handbrake"`
	Respawn    bool    `json:"respawn"`
}

func (m *InputMsg) ClientMessageType() string { return TypeInput }

type ChatMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (m *ChatMsg) ClientMessageType() string { return TypeChat }

type EmoteMsg struct {
	Type  string `json:"type"`
	Emote string `json:"emote"`
}

func (m *EmoteMsg) ClientMessageType() string { return TypeEmote }

type RequestRoomListMsg struct {
	Type string `json:"type"`
}

func (m *RequestRoomListMsg) ClientMessageType() string { return TypeRequestRoomList }

type RequestTrackListMsg struct {
	Type string `json:"type"`
}

func (m *RequestTrackListMsg) ClientMessageType() string { return TypeRequestTrackList }

type PingMsg struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func (m *PingMsg) ClientMessageType() string { return TypePing }

// DecodeClientMessage inspects the "type" tag and decodes into the
// matching concrete message, per spec §9's tagged-union requirement.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("protocol: decode tag: %w", err)
	}

	var msg ClientMessage
	switch tag.Type {
	case TypeCreateRoom:
		msg = &CreateRoomMsg{}
	case TypeJoinRoom:
		msg = &JoinRoomMsg{}
	case TypeLeaveRoom:
		msg = &LeaveRoomMsg{}
	case TypeSetReady:
		msg = &SetReadyMsg{}
	case TypeStartGame:
		msg = &StartGameMsg{}
	case TypeInput:
		msg = &InputMsg{}
	case TypeChat:
		msg = &ChatMsg{}
	case TypeEmote:
		msg = &EmoteMsg{}
	case TypeRequestRoomList:
		msg = &RequestRoomListMsg{}
	case TypeRequestTrackList:
		msg = &RequestTrackListMsg{}
	case TypePing:
		msg = &PingMsg{}
	default:
		return nil, fmt.Errorf("protocol: unknown client message type %q", tag.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("protocol: decode %s: %w", tag.Type, err)
	}
	return msg, nil
}
