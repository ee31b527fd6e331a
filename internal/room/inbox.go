package room

import (
	"time"

	"racehub/internal/physics"
	"racehub/internal/protocol"
)

type inboxKind int

const (
	inboxJoin inboxKind = iota
	inboxLeave
	inboxSetReady
	inboxStartGame
	inboxInput
	inboxChat
	inboxEmote
	inboxDisconnect
	inboxDisconnectTimeout
	inboxReconnect
	inboxCountdownTick
	inboxBeginRacing
	inboxResetToWaiting
)

// joinResult is delivered back over joinReply by the room goroutine,
// since joining mutates the player map and must happen on-actor.
type joinResult struct {
	profile PlayerProfileError
}

// PlayerProfileError pairs a join outcome with an error code, matching
// the error codes table in spec §7. Roster is a snapshot of every
// player already in the room, taken on-actor at join time, since
// reading Room.players from outside the actor goroutine is unsafe.
type PlayerProfileError struct {
	Player  Player
	Roster  []protocol.PlayerProfile
	RoomSummary protocol.RoomSummary
	ErrCode string
	ErrMsg  string
}

type inboxMessage struct {
	kind inboxKind

	sessionID      string
	nickname       string
	preferredColor string
	ready          bool
	input          physics.Input
	text           string

	joinReply chan joinResult
}

// JoinOutcome is what a gateway needs to reply with room_joined: the
// caller's own accepted profile plus a roster snapshot taken on-actor.
type JoinOutcome struct {
	Player Player
	Roster []protocol.PlayerProfile
	Room   protocol.RoomSummary
}

// SubmitJoin enqueues a join request and blocks for the room's
// synchronous accept/reject decision. Safe to call concurrently from
// any gateway goroutine; the decision itself runs on the room's own
// goroutine.
func (r *Room) SubmitJoin(sessionID, nickname, preferredColor string) (JoinOutcome, error) {
	reply := make(chan joinResult, 1)
	r.inbox <- inboxMessage{
		kind:           inboxJoin,
		sessionID:      sessionID,
		nickname:       nickname,
		preferredColor: preferredColor,
		joinReply:      reply,
	}
	res := <-reply
	if res.profile.ErrCode != "" {
		return JoinOutcome{}, &JoinError{Code: res.profile.ErrCode, Message: res.profile.ErrMsg}
	}
	return JoinOutcome{Player: res.profile.Player, Roster: res.profile.Roster, Room: res.profile.RoomSummary}, nil
}

// JoinError carries a spec §7 error code alongside a human message.
type JoinError struct {
	Code    string
	Message string
}

func (e *JoinError) Error() string { return e.Message }

func (r *Room) SubmitLeave(sessionID string) {
	r.inbox <- inboxMessage{kind: inboxLeave, sessionID: sessionID}
}

func (r *Room) SubmitSetReady(sessionID string, ready bool) {
	r.inbox <- inboxMessage{kind: inboxSetReady, sessionID: sessionID, ready: ready}
}

func (r *Room) SubmitStartGame(sessionID string) {
	r.inbox <- inboxMessage{kind: inboxStartGame, sessionID: sessionID}
}

func (r *Room) SubmitInput(sessionID string, input physics.Input) {
	r.inbox <- inboxMessage{kind: inboxInput, sessionID: sessionID, input: input}
}

func (r *Room) SubmitChat(sessionID, text string) {
	r.inbox <- inboxMessage{kind: inboxChat, sessionID: sessionID, text: text}
}

func (r *Room) SubmitEmote(sessionID, emote string) {
	r.inbox <- inboxMessage{kind: inboxEmote, sessionID: sessionID, text: emote}
}

func (r *Room) SubmitDisconnect(sessionID string) {
	r.inbox <- inboxMessage{kind: inboxDisconnect, sessionID: sessionID}
}

func (r *Room) SubmitReconnect(sessionID string) {
	r.inbox <- inboxMessage{kind: inboxReconnect, sessionID: sessionID}
}

func (r *Room) handleInbox(msg inboxMessage) {
	r.lastActivity = time.Now()

	switch msg.kind {
	case inboxJoin:
		r.handleJoin(msg)
	case inboxLeave:
		reason := msg.text
		if reason == "" {
			reason = "left"
		}
		r.handleLeave(msg.sessionID, reason)
	case inboxSetReady:
		r.handleSetReady(msg.sessionID, msg.ready)
	case inboxStartGame:
		r.handleStartGame(msg.sessionID)
	case inboxInput:
		r.handleInput(msg.sessionID, msg.input)
	case inboxChat:
		r.handleChat(msg.sessionID, msg.text)
	case inboxEmote:
		r.handleEmote(msg.sessionID, msg.text)
	case inboxDisconnect:
		r.handleDisconnect(msg.sessionID)
	case inboxDisconnectTimeout:
		r.handleDisconnectTimeout(msg.sessionID)
	case inboxReconnect:
		r.handleReconnect(msg.sessionID)
	case inboxCountdownTick:
		r.handleCountdownTick()
	case inboxBeginRacing:
		r.beginRacing()
	case inboxResetToWaiting:
		r.resetToWaiting()
	}
}
