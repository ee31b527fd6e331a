package physics

import (
	"time"

	"racehub/internal/vec2"
)

// MaxNitro is the maximum value of Car.Nitro.
const MaxNitro = 100.0

// Car is the per-player runtime state mutated only by Step and by the
// race arbiter, per spec §3. The same struct is used server-side
// (authoritative, tick-owned) and client-side (predicted).
type Car struct {
	Position Vec2
	Rotation float64 // radians
	Velocity Vec2
	AngularVelocity float64

	Speed float64 // scalar cache, refreshed by Step

	Nitro float64 // 0..MaxNitro

	CheckpointIndex int // next checkpoint expected
	Lap             int
	LapTimes        []float64
	Finished        bool
	FinishTime      float64
	Rank            int
	Layer           int

	LastInputSequence uint32

	LastPositionAt time.Time
	StuckSince     time.Time

	// SpawnPosition and LastCheckpointPosition back respawn-to-last-
	// checkpoint (spec §4.2): SpawnPosition is set once at race start,
	// LastCheckpointPosition updates every time the arbiter advances
	// CheckpointIndex.
	SpawnPosition          Vec2
	LastCheckpointPosition Vec2

	// passedFinishLine latches true while the car is inside the finish
	// element's radius, to give lap completion a rising-edge trigger.
	passedFinishLine bool
}

// PassedFinishLine reports the finish-line rising-edge latch used by
// the race arbiter to detect lap completion (spec §4.2).
func (c *Car) PassedFinishLine() bool { return c.passedFinishLine }

// SetPassedFinishLine updates the finish-line latch.
func (c *Car) SetPassedFinishLine(v bool) { c.passedFinishLine = v }

// Vec2 is a local alias so callers of this package don't need a second
// import for the vector type. It is identical to vec2.Vec2.
type Vec2 = vec2.Vec2

// Input is one player's control record for a single tick. The server
// keeps only the most recent one per player; the client predictor
// keeps a bounded FIFO of unconfirmed ones (see internal/predictor).
type Input struct {
	Sequence  uint32
	Timestamp time.Time

	Accelerate  bool
	Brake       bool
	SteerLeft   bool
	SteerRight  bool
	Nitro       bool
	Handbrake   bool
	Respawn     bool
	SteerValue  float64 // optional analog override, in [-1,1]
}

// steer resolves the scalar steering input in [-1,1]: the analog value
// if nonzero, else the boolean left/right pair.
func (in Input) steer() float64 {
	if in.SteerValue != 0 {
		if in.SteerValue > 1 {
			return 1
		}
		if in.SteerValue < -1 {
			return -1
		}
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
