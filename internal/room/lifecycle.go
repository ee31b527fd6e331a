package room

import (
	"fmt"
	"regexp"
	"time"

	"racehub/internal/physics"
	"racehub/internal/protocol"
	"racehub/internal/storage"
)

var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{2,16}$`)

// emoteCooldown bounds how often a player may emote, per spec §9's
// anti-spam note.
const emoteCooldown = 2 * time.Second

func (r *Room) handleJoin(msg inboxMessage) {
	reject := func(code, text string) {
		msg.joinReply <- joinResult{profile: PlayerProfileError{ErrCode: code, ErrMsg: text}}
	}

	if !nicknamePattern.MatchString(msg.nickname) {
		reject(protocol.ErrInvalidNickname, "nickname must be 2-16 characters of letters, digits, _ or -")
		return
	}
	if _, exists := r.players[msg.sessionID]; exists {
		reject(protocol.ErrJoinFailed, "already joined")
		return
	}
	if len(r.players) >= r.Settings.MaxPlayers {
		reject(protocol.ErrJoinFailed, "room is full")
		return
	}
	if r.state == StateRacing && !r.Settings.AllowMidRaceJoin {
		reject(protocol.ErrJoinFailed, "race already in progress")
		return
	}

	roster := make([]protocol.PlayerProfile, 0, len(r.players))
	for _, existing := range r.players {
		roster = append(roster, r.profileOf(existing))
	}

	p := &Player{
		SessionID:      msg.sessionID,
		Nickname:       msg.nickname,
		PreferredColor: msg.preferredColor,
		Connected:      true,
	}
	r.players[msg.sessionID] = p

	if r.state == StateRacing {
		r.spawnCarFor(p)
	}

	msg.joinReply <- joinResult{profile: PlayerProfileError{
		Player:      *p,
		Roster:      roster,
		RoomSummary: r.Summary(),
	}}

	r.broadcast(&protocol.PlayerJoinedMsg{
		Type:   protocol.TypePlayerJoined,
		Player: r.profileOf(p),
	}, msg.sessionID)
}

func (r *Room) handleLeave(sessionID, reason string) {
	p, ok := r.players[sessionID]
	if !ok {
		return
	}
	delete(r.players, sessionID)
	if p.CarID != "" {
		delete(r.cars, p.CarID)
		delete(r.pendingInputs, p.CarID)
	}

	r.broadcast(&protocol.PlayerLeftMsg{
		Type:     protocol.TypePlayerLeft,
		PlayerID: sessionID,
		Reason:   reason,
	}, "")

	if sessionID == r.HostID && len(r.players) > 0 {
		for id := range r.players {
			r.HostID = id
			break
		}
	}
}

func (r *Room) handleSetReady(sessionID string, ready bool) {
	p, ok := r.players[sessionID]
	if !ok {
		return
	}
	p.Ready = ready
	r.broadcast(&protocol.PlayerReadyMsg{Type: protocol.TypePlayerReady, PlayerID: sessionID, Ready: ready}, "")
}

func (r *Room) handleChat(sessionID, text string) {
	p, ok := r.players[sessionID]
	if !ok || !r.Settings.EnableChat || text == "" {
		return
	}
	r.broadcast(&protocol.ServerChatMsg{
		Type:     protocol.TypeServerChat,
		PlayerID: sessionID,
		Nickname: p.Nickname,
		Message:  text,
	}, "")
}

func (r *Room) handleEmote(sessionID, emote string) {
	p, ok := r.players[sessionID]
	if !ok {
		return
	}
	now := time.Now().UnixMilli()
	if now-p.LastEmoteAt < emoteCooldown.Milliseconds() {
		return
	}
	p.LastEmoteAt = now
	r.broadcast(&protocol.ServerEmoteMsg{Type: protocol.TypeServerEmote, PlayerID: sessionID, Emote: emote}, "")
}

func (r *Room) handleDisconnect(sessionID string) {
	p, ok := r.players[sessionID]
	if !ok {
		return
	}
	p.Connected = false
	time.AfterFunc(PlayerDisconnectTimeout, func() {
		r.inbox <- inboxMessage{kind: inboxDisconnectTimeout, sessionID: sessionID}
	})
}

// handleDisconnectTimeout drops a player whose disconnect grace period
// expired without a reconnect. If they reconnected in the meantime,
// Connected is back to true and this is a no-op.
func (r *Room) handleDisconnectTimeout(sessionID string) {
	p, ok := r.players[sessionID]
	if !ok || p.Connected {
		return
	}
	r.handleLeave(sessionID, "disconnect_timeout")
}

func (r *Room) handleReconnect(sessionID string) {
	if p, ok := r.players[sessionID]; ok {
		p.Connected = true
	}
}

func (r *Room) handleInput(sessionID string, input physics.Input) {
	p, ok := r.players[sessionID]
	if !ok || r.state != StateRacing {
		return
	}
	car, ok := r.cars[p.CarID]
	if !ok {
		return
	}
	if input.Sequence != 0 && input.Sequence <= car.LastInputSequence {
		return
	}
	r.pendingInputs[p.CarID] = input
}

func (r *Room) handleStartGame(sessionID string) {
	if sessionID != r.HostID {
		r.sender.Send(sessionID, protocol.NewError(protocol.ErrNotHost, "only the host can start the race"))
		return
	}
	if r.state != StateWaiting {
		r.sender.Send(sessionID, protocol.NewError(protocol.ErrCannotStart, "race already started"))
		return
	}
	if len(r.players) < MinPlayersToStart {
		r.sender.Send(sessionID, protocol.NewError(protocol.ErrCannotStart, "not enough players"))
		return
	}

	r.spawnAllCars()
	r.state = StateCountdown
	r.countdownValue = CountdownSeconds

	r.broadcast(&protocol.GameStartingMsg{
		Type:      protocol.TypeGameStarting,
		Countdown: r.countdownValue,
		Cars:      r.carSnapshots(),
	}, "")

	r.scheduleCountdownTick()
}

func (r *Room) scheduleCountdownTick() {
	time.AfterFunc(time.Second, func() {
		r.inbox <- inboxMessage{kind: inboxCountdownTick}
	})
}

func (r *Room) handleCountdownTick() {
	if r.state != StateCountdown {
		return
	}
	r.countdownValue--
	r.broadcast(&protocol.CountdownMsg{Type: protocol.TypeCountdown, Count: r.countdownValue}, "")

	if r.countdownValue <= 0 {
		time.AfterFunc(GameStartDelay, func() {
			r.inbox <- inboxMessage{kind: inboxBeginRacing}
		})
		return
	}
	r.scheduleCountdownTick()
}

func (r *Room) beginRacing() {
	if r.state != StateCountdown {
		return
	}
	r.state = StateRacing
	r.raceStartedAt = time.Now()
	r.elapsed = 0
	r.firstFinishTime = -1
	r.broadcast(&protocol.GameStartedMsg{Type: protocol.TypeGameStarted, StartTime: r.raceStartedAt.UnixMilli()}, "")
}

func (r *Room) enterResults() {
	r.state = StateResults
	results := make([]protocol.ResultEntry, 0, len(r.cars))
	for sid, p := range r.players {
		car, ok := r.cars[p.CarID]
		if !ok {
			continue
		}
		results = append(results, protocol.ResultEntry{
			PlayerID:  sid,
			Position:  car.Rank,
			Finished:  car.Finished,
			TotalTime: car.FinishTime,
			Laps:      car.Lap,
		})
		if car.Finished {
			r.recordLeaderboardFinish(p, car.FinishTime)
		}
	}
	r.broadcast(&protocol.RaceFinishedMsg{Type: protocol.TypeRaceFinished, Results: results}, "")

	time.AfterFunc(10*time.Second, func() {
		r.inbox <- inboxMessage{kind: inboxResetToWaiting}
	})
}

func (r *Room) resetToWaiting() {
	if r.state != StateResults {
		return
	}
	r.state = StateWaiting
	r.cars = make(map[string]*physics.Car)
	r.pendingInputs = make(map[string]physics.Input)
	r.pendingEvents = nil
	r.elapsed = 0
	r.firstFinishTime = -1
	for _, p := range r.players {
		p.Ready = false
		p.CarID = ""
	}
}

// recordLeaderboardFinish submits a finisher's time to the persistent
// per-track leaderboard (spec §8 scenario 6). Best-effort: a storage
// error is logged, never surfaced to players, since the race result
// itself already broadcast successfully.
func (r *Room) recordLeaderboardFinish(p *Player, finishTime float64) {
	if r.leaderboard == nil {
		return
	}
	_, err := r.leaderboard.Submit(r.track.ID, storage.LeaderboardEntry{
		Nickname: p.Nickname,
		TimeSecs: finishTime,
	})
	if err != nil {
		r.log.Error().Err(err).Str("player", p.SessionID).Msg("record leaderboard finish")
	}
}

func (r *Room) spawnAllCars() {
	r.cars = make(map[string]*physics.Car, len(r.players))
	r.pendingInputs = make(map[string]physics.Input, len(r.players))
	r.nextSpawnIndex = 0
	for _, p := range r.players {
		r.spawnCarFor(p)
	}
}

func (r *Room) spawnCarFor(p *Player) {
	spawns := r.track.Spawns()
	var spawn physics.Vec2
	var rotation float64
	if len(spawns) > 0 {
		el := spawns[r.nextSpawnIndex%len(spawns)]
		x, y := el.X, el.Y
		spawn = physics.Vec2{X: x, Y: y}
		rotation = el.Rotation
		r.nextSpawnIndex++
	}

	carID := fmt.Sprintf("car-%s", p.SessionID)
	p.CarID = carID
	r.cars[carID] = &physics.Car{
		Position:       spawn,
		Rotation:       rotation,
		SpawnPosition:  spawn,
		LastPositionAt: time.Now(),
	}
}

func (r *Room) profileOf(p *Player) protocol.PlayerProfile {
	return protocol.PlayerProfile{
		PlayerID:       p.SessionID,
		Nickname:       p.Nickname,
		PreferredColor: p.PreferredColor,
		Ready:          p.Ready,
	}
}

func (r *Room) broadcast(msg protocol.ServerMessage, exceptSessionID string) {
	for sid := range r.players {
		if sid == exceptSessionID {
			continue
		}
		r.sender.Send(sid, msg)
	}
}
