package gateway

import (
	"time"

	"racehub/internal/physics"
	"racehub/internal/protocol"
	"racehub/internal/room"
)

func (s *Session) dispatch(msg protocol.ClientMessage) {
	switch m := msg.(type) {
	case *protocol.CreateRoomMsg:
		s.handleCreateRoom(m)
	case *protocol.JoinRoomMsg:
		s.handleJoinRoom(m)
	case *protocol.LeaveRoomMsg:
		s.handleLeaveRoom()
	case *protocol.SetReadyMsg:
		s.withRoom(func(r *room.Room) { r.SubmitSetReady(s.ID, m.Ready) })
	case *protocol.StartGameMsg:
		s.withRoom(func(r *room.Room) { r.SubmitStartGame(s.ID) })
	case *protocol.InputMsg:
		s.handleInput(m)
	case *protocol.ChatMsg:
		s.withRoom(func(r *room.Room) { r.SubmitChat(s.ID, m.Message) })
	case *protocol.EmoteMsg:
		s.withRoom(func(r *room.Room) { r.SubmitEmote(s.ID, m.Emote) })
	case *protocol.RequestRoomListMsg:
		s.Send(&protocol.RoomListMsg{Type: protocol.TypeRoomList, Rooms: s.manager.Summaries()})
	case *protocol.RequestTrackListMsg:
		s.Send(&protocol.TrackListMsg{Type: protocol.TypeTrackList, Tracks: s.catalog.TrackSummaries()})
	case *protocol.PingMsg:
		s.Send(&protocol.PongMsg{Type: protocol.TypePong, ClientTimestamp: m.Timestamp, ServerTimestamp: time.Now().UnixMilli()})
	}
}

func (s *Session) withRoom(fn func(r *room.Room)) {
	r, ok := s.manager.RoomForSession(s.ID)
	if !ok {
		s.Send(protocol.NewError(protocol.ErrNoRoom, "not in a room"))
		return
	}
	fn(r)
}

func (s *Session) handleCreateRoom(m *protocol.CreateRoomMsg) {
	r, err := s.manager.CreateRoom(s.ID, m.Settings, s.hub)
	if err != nil {
		s.Send(protocol.NewError(protocol.ErrCreateFailed, err.Error()))
		return
	}
	s.manager.BindSession(s.ID, r.ID)
	s.completeJoin(r, m.Nickname, m.PreferredColor)
}

func (s *Session) handleJoinRoom(m *protocol.JoinRoomMsg) {
	var r *room.Room
	var err error
	switch {
	case m.RoomID != "":
		r, err = s.manager.RoomByID(m.RoomID)
	case m.Code != "":
		r, err = s.manager.RoomByCode(m.Code)
	default:
		s.Send(protocol.NewError(protocol.ErrJoinFailed, "roomId or code required"))
		return
	}
	if err != nil {
		s.Send(protocol.NewError(protocol.ErrJoinFailed, "no such room"))
		return
	}
	s.manager.BindSession(s.ID, r.ID)
	s.completeJoin(r, m.Nickname, m.PreferredColor)
}

func (s *Session) completeJoin(r *room.Room, nickname, color string) {
	outcome, err := r.SubmitJoin(s.ID, nickname, color)
	if err != nil {
		s.manager.UnbindSession(s.ID)
		var joinErr *room.JoinError
		if asJoinError(err, &joinErr) {
			s.Send(protocol.NewError(joinErr.Code, joinErr.Message))
			return
		}
		s.Send(protocol.NewError(protocol.ErrJoinFailed, err.Error()))
		return
	}
	s.Send(&protocol.RoomJoinedMsg{
		Type:     protocol.TypeRoomJoined,
		Room:     outcome.Room,
		Players:  outcome.Roster,
		PlayerID: s.ID,
	})
}

func asJoinError(err error, target **room.JoinError) bool {
	je, ok := err.(*room.JoinError)
	if ok {
		*target = je
	}
	return ok
}

func (s *Session) handleLeaveRoom() {
	s.withRoom(func(r *room.Room) {
		r.SubmitLeave(s.ID)
		s.manager.UnbindSession(s.ID)
	})
}

func (s *Session) handleInput(m *protocol.InputMsg) {
	if !s.limiter.Allow() {
		return
	}
	s.withRoom(func(r *room.Room) {
		r.SubmitInput(s.ID, physics.Input{
			Sequence:   m.Sequence,
			Timestamp:  time.UnixMilli(m.Timestamp),
			Accelerate: m.Accelerate,
			Brake:      m.Brake,
			SteerLeft:  m.SteerLeft,
			SteerRight: m.SteerRight,
			SteerValue: m.SteerValue,
			Nitro:      m.Nitro,
			Handbrake:  m.Handbrake,
			Respawn:    m.Respawn,
		})
	})
}
