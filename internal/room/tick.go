package room

import (
	"time"

	"racehub/internal/physics"
	"racehub/internal/protocol"
	"racehub/internal/raceengine"
)

// tickPhysics advances every car by one fixed physics tick, runs
// arbitration, and stages any fired events for the next broadcast.
// Called only while racing, at PhysicsTickRate (spec §4.1, §4.3).
func (r *Room) tickPhysics() {
	for carID, car := range r.cars {
		input := r.pendingInputs[carID]
		physics.Step(car, input, physics.TickDT, r.wrap)
		if input.Sequence != 0 {
			car.LastInputSequence = input.Sequence
		}
	}
	r.elapsed += physics.TickDT

	events := r.arbiter.Tick(r.carsBySession(), r.inputsBySession(), r.elapsed)
	r.stageEvents(events)

	for _, ev := range events {
		if ev.Type == raceengine.EventFinish && r.firstFinishTime < 0 {
			r.firstFinishTime = ev.Time
		}
	}

	if raceengine.RaceShouldEnd(r.cars, r.firstFinishTime, r.elapsed) {
		r.enterResults()
	}
}

// carsBySession reindexes cars (keyed by car id) by session id, so the
// arbiter's events and the wire's playerId agree with the id every
// other room message already uses (spec §6).
func (r *Room) carsBySession() map[string]*physics.Car {
	bySession := make(map[string]*physics.Car, len(r.players))
	for sid, p := range r.players {
		if car, ok := r.cars[p.CarID]; ok {
			bySession[sid] = car
		}
	}
	return bySession
}

// inputsBySession reindexes pendingInputs (keyed by car id) by session
// id, so a mid-tick respawn request can be matched back to its player.
func (r *Room) inputsBySession() map[string]physics.Input {
	bySession := make(map[string]physics.Input, len(r.pendingInputs))
	for sid, p := range r.players {
		if in, ok := r.pendingInputs[p.CarID]; ok {
			bySession[sid] = in
		}
	}
	return bySession
}

func (r *Room) stageEvents(events []raceengine.Event) {
	for _, ev := range events {
		wire := protocol.WireEvent{
			Type:       string(ev.Type),
			PlayerID:   ev.PlayerID,
			Checkpoint: ev.Checkpoint,
			Lap:        ev.Lap,
			LapTime:    ev.LapTime,
			Time:       ev.Time,
		}
		r.pendingEvents = append(r.pendingEvents, wire)

		switch ev.Type {
		case raceengine.EventCheckpoint:
			r.broadcast(&protocol.CheckpointPassedMsg{
				Type: protocol.TypeCheckpointPassed, PlayerID: ev.PlayerID, Checkpoint: ev.Checkpoint, Time: ev.Time,
			}, "")
		case raceengine.EventLap:
			r.broadcast(&protocol.LapCompletedMsg{
				Type: protocol.TypeLapCompleted, PlayerID: ev.PlayerID, Lap: ev.Lap, LapTime: ev.LapTime,
			}, "")
		case raceengine.EventFinish:
			car := r.cars[r.players[ev.PlayerID].CarID]
			r.broadcast(&protocol.PlayerFinishedMsg{
				Type: protocol.TypePlayerFinished, PlayerID: ev.PlayerID, Position: car.Rank, TotalTime: car.FinishTime,
			}, "")
		}
	}
}

// broadcastSnapshot sends the authoritative GameStateSnapshot to every
// player, at StateBroadcastRate (spec §4.1, §6).
func (r *Room) broadcastSnapshot(extra []protocol.WireEvent) {
	r.snapshotSeq++

	snapshot := protocol.GameStateSnapshot{
		Sequence:  r.snapshotSeq,
		Timestamp: time.Now().UnixMilli(),
		GameState: string(r.state),
		Cars:      r.carSnapshots(),
		Events:    r.pendingEvents,
	}
	r.pendingEvents = nil

	r.broadcast(&protocol.GameStateMsg{Type: protocol.TypeGameState, Snapshot: snapshot}, "")
}

func (r *Room) carSnapshots() []protocol.CarStateSnapshot {
	out := make([]protocol.CarStateSnapshot, 0, len(r.players))
	for sid, p := range r.players {
		car, ok := r.cars[p.CarID]
		if !ok {
			continue
		}
		steering := r.pendingInputs[p.CarID]
		out = append(out, protocol.EncodeCarState(
			p.CarID, sid,
			car.Position.X, car.Position.Y, car.Rotation,
			car.Velocity.X, car.Velocity.Y, car.AngularVelocity,
			steerSign(steering), car.Speed,
			int(car.Nitro), car.Lap, car.CheckpointIndex, car.Rank, car.Finished, car.Layer,
			car.LastInputSequence,
		))
	}
	return out
}

func steerSign(in physics.Input) float64 {
	if in.SteerValue != 0 {
		return in.SteerValue
	}
	v := 0.0
	if in.SteerLeft {
		v -= 1
	}
	if in.SteerRight {
		v += 1
	}
	return v
}
