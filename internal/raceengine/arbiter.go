// Package raceengine arbitrates race progress for a single room:
// checkpoint ordering, lap counting, finish detection, live ranking,
// and respawn-to-last-checkpoint. It never mutates a Track; it only
// reads element geometry and mutates the cars it is given (spec §4.2).
package raceengine

import (
	"math"
	"sort"

	"racehub/internal/physics"
	"racehub/internal/track"
	"racehub/internal/vec2"
)

// FinishGracePeriod is how long a room keeps racing after the first
// finisher before forcing remaining cars into the results, per
// spec §4.2 "Race end".
const FinishGracePeriod = 15.0 // seconds

// EventType tags an Event emitted by a single arbiter tick.
type EventType string

const (
	EventCheckpoint EventType = "checkpoint"
	EventLap        EventType = "lap"
	EventFinish     EventType = "finish"
	EventRespawn    EventType = "respawn"
)

// Event is a single arbitration outcome fired during one tick. Events
// within a tick preserve emit order, per spec §5.
type Event struct {
	Type       EventType
	PlayerID   string
	Checkpoint int
	Lap        int
	LapTime    float64
	Time       float64
	Rank       int
}

// Arbiter holds the per-room geometry needed to judge race progress.
// It is immutable after construction; all mutable state lives on the
// cars it is handed each tick.
type Arbiter struct {
	checkpoints []track.Element
	finish      track.Element
	lapCount    int
}

// New builds an Arbiter for a track and a target lap count.
func New(t *track.Track, lapCount int) *Arbiter {
	finish, _ := t.Finish()
	return &Arbiter{
		checkpoints: t.Checkpoints(),
		finish:      finish,
		lapCount:    lapCount,
	}
}

// Tick advances arbitration for every car by one tick and returns the
// events fired, in emit order. elapsed is the race clock in seconds.
func (a *Arbiter) Tick(cars map[string]*physics.Car, inputs map[string]physics.Input, elapsed float64) []Event {
	var events []Event

	for playerID, car := range cars {
		if car.Finished {
			continue
		}

		if in, ok := inputs[playerID]; ok && in.Respawn {
			a.respawn(car)
			events = append(events, Event{Type: EventRespawn, PlayerID: playerID, Time: elapsed})
			continue
		}

		events = append(events, a.judge(playerID, car, elapsed)...)
	}

	a.rank(cars)

	return events
}

// judge checks one car against the next checkpoint, then the finish
// line, advancing lap/finish state as proximity triggers fire.
func (a *Arbiter) judge(playerID string, car *physics.Car, elapsed float64) []Event {
	var events []Event

	if car.CheckpointIndex < len(a.checkpoints) {
		cp := a.checkpoints[car.CheckpointIndex]
		if withinRadius(car.Position, cp) {
			car.LastCheckpointPosition = car.Position
			car.CheckpointIndex++
			events = append(events, Event{
				Type:       EventCheckpoint,
				PlayerID:   playerID,
				Checkpoint: car.CheckpointIndex - 1,
				Time:       elapsed,
			})
		}
	}

	if car.CheckpointIndex == len(a.checkpoints) {
		atFinish := withinRadius(car.Position, a.finish)
		if atFinish && !car.PassedFinishLine() {
			car.SetPassedFinishLine(true)
			lapTime := elapsed - sumLapTimes(car.LapTimes)
			car.Lap++
			car.LapTimes = append(car.LapTimes, lapTime)
			car.CheckpointIndex = 0
			events = append(events, Event{
				Type:     EventLap,
				PlayerID: playerID,
				Lap:      car.Lap,
				LapTime:  lapTime,
				Time:     elapsed,
			})

			if car.Lap >= a.lapCount {
				car.Finished = true
				car.FinishTime = elapsed
				events = append(events, Event{
					Type:     EventFinish,
					PlayerID: playerID,
					Time:     elapsed,
				})
			}
		} else if !atFinish {
			car.SetPassedFinishLine(false)
		}
	}

	return events
}

// respawn teleports a car back to its last fully-passed checkpoint,
// or its spawn point if none has been passed yet, and zeroes motion.
func (a *Arbiter) respawn(car *physics.Car) {
	if car.LastCheckpointPosition != (vec2.Vec2{}) {
		car.Position = car.LastCheckpointPosition
	} else {
		car.Position = car.SpawnPosition
	}
	car.Velocity = vec2.Vec2{}
	car.AngularVelocity = 0
}

// rank recomputes the total order over cars every tick: finished
// before unfinished; among finished, ascending finish time; among
// unfinished, descending lap then descending checkpoint progress.
func (a *Arbiter) rank(cars map[string]*physics.Car) {
	ids := make([]string, 0, len(cars))
	for id := range cars {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ci, cj := cars[ids[i]], cars[ids[j]]
		if ci.Finished != cj.Finished {
			return ci.Finished
		}
		if ci.Finished {
			return ci.FinishTime < cj.FinishTime
		}
		if ci.Lap != cj.Lap {
			return ci.Lap > cj.Lap
		}
		return ci.CheckpointIndex > cj.CheckpointIndex
	})
	for i, id := range ids {
		cars[id].Rank = i + 1
	}
}

// RaceShouldEnd reports whether the room should transition to results:
// either every car has finished, or FinishGracePeriod has elapsed
// since the first finisher, per spec §4.2.
func RaceShouldEnd(cars map[string]*physics.Car, firstFinishTime float64, elapsed float64) bool {
	if len(cars) == 0 {
		return false
	}
	allFinished := true
	for _, c := range cars {
		if !c.Finished {
			allFinished = false
			break
		}
	}
	if allFinished {
		return true
	}
	if firstFinishTime >= 0 && elapsed-firstFinishTime >= FinishGracePeriod {
		return true
	}
	return false
}

func withinRadius(pos vec2.Vec2, e track.Element) bool {
	cx, cy := track.Center(e)
	dx := pos.X - cx
	dy := pos.Y - cy
	return math.Hypot(dx, dy) <= e.Radius()
}

func sumLapTimes(times []float64) float64 {
	var sum float64
	for _, t := range times {
		sum += t
	}
	return sum
}
