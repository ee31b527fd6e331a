package protocol

import "math"

// Quantization steps from spec §6's CarStateSnapshot wire layout.
const (
	quantPosition = 0.01
	quantRotation = 0.001
	quantVelocity = 0.01
	quantAngular  = 0.001
	quantSteering = 0.001
	quantSpeed    = 0.1
)

// Quantize rounds v to the nearest multiple of step. EncodeCarState
// applies it on the encode path; decoding does not re-quantize.
func Quantize(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}

// CarStateSnapshot is one car's wire record within a GameStateSnapshot
// (spec §6). All float fields are pre-quantized before being set.
type CarStateSnapshot struct {
	ID                string  `json:"id"`
	PlayerID          string  `json:"playerId"`
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
	Rotation          float64 `json:"rotation"`
	VX                float64 `json:"vx"`
	VY                float64 `json:"vy"`
	AngularVelocity   float64 `json:"angularVelocity"`
	SteeringAngle     float64 `json:"steeringAngle"`
	Speed             float64 `json:"speed"`
	Nitro             int     `json:"nitro"`
	Damage            int     `json:"damage"`
	Lap               int     `json:"lap"`
	Checkpoint        int     `json:"checkpoint"`
	PositionRank      int     `json:"positionRank"`
	Finished          bool    `json:"finished"`
	Layer             int     `json:"layer"`
	LastInputSequence uint32  `json:"lastInputSequence"`
}

// WireEvent is an arbitration event as broadcast with a snapshot.
type WireEvent struct {
	Type       string  `json:"type"`
	PlayerID   string  `json:"playerId"`
	Checkpoint int     `json:"checkpoint,omitempty"`
	Lap        int     `json:"lap,omitempty"`
	LapTime    float64 `json:"lapTime,omitempty"`
	Time       float64 `json:"time"`
}

// GameStateSnapshot is the authoritative broadcast payload (spec §6).
type GameStateSnapshot struct {
	Sequence  uint64              `json:"sequence"`
	Timestamp int64               `json:"timestamp"`
	GameState string              `json:"gameState"`
	Cars      []CarStateSnapshot  `json:"cars"`
	Events    []WireEvent         `json:"events"`
}

// EncodeCarState quantizes a car's live float fields into wire form.
// steeringAngle is the steering input value supplied by the caller
// (the room passes its held input's analog or left/right value),
// passed explicitly since the physics.Car type does not retain the raw
// steering input between ticks.
func EncodeCarState(id, playerID string, x, y, rotation, vx, vy, angularVelocity, steeringAngle, speed float64,
	nitro int, lap, checkpoint, positionRank int, finished bool, layer int, lastInputSequence uint32) CarStateSnapshot {
	return CarStateSnapshot{
		ID:                id,
		PlayerID:          playerID,
		X:                 Quantize(x, quantPosition),
		Y:                 Quantize(y, quantPosition),
		Rotation:          Quantize(rotation, quantRotation),
		VX:                Quantize(vx, quantVelocity),
		VY:                Quantize(vy, quantVelocity),
		AngularVelocity:   Quantize(angularVelocity, quantAngular),
		SteeringAngle:     Quantize(steeringAngle, quantSteering),
		Speed:             Quantize(speed, quantSpeed),
		Nitro:             nitro,
		Damage:            0, // no vehicle-damage model; spec §1 Non-goals excludes tire/suspension dynamics
		Lap:               lap,
		Checkpoint:        checkpoint,
		PositionRank:      positionRank,
		Finished:          finished,
		Layer:             layer,
		LastInputSequence: lastInputSequence,
	}
}
