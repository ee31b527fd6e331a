// Package predictor implements the client-side mirror of the server's
// physics integrator: it applies local input immediately for
// responsiveness, then reconciles against each authoritative snapshot
// (spec §4.6). It shares physics.Step with the server so the two stay
// numerically identical given identical inputs.
package predictor

import (
	"math"

	"racehub/internal/physics"
	"racehub/internal/protocol"
	"racehub/internal/vec2"
)

// Tuning constants from spec §4.6.
const (
	MaxPendingInputs = 120
	SnapThreshold    = 150.0
	VelocityBlend    = 0.15
	AngularBlend     = 0.15
	RotationBlend    = 0.3
	PositionBlend    = 0.1
	PositionEpsilon  = 0.5
)

// pendingInput is one not-yet-acknowledged local input, recorded so it
// can be discarded once the server confirms it.
type pendingInput struct {
	sequence uint32
	input    physics.Input
}

// Predictor holds one local player's predicted state. It is owned by
// the session that created it; nothing shared, nothing global (the
// Non-goals note in spec §9 explicitly rejects module-level predictor
// singletons).
type Predictor struct {
	Car *physics.Car

	wrap *physics.WrapBounds

	pending       []pendingInput
	nextSequence  uint32
	heldInput     physics.Input
	accumulator   float64
}

// New constructs a predictor seeded with a car's initial state. wrap
// is non-nil only so the predictor knows the track's (W,H) for
// unwrapping snapshots; the predictor itself never wraps its own
// position (spec §4.1 edge case 9, §4.6).
func New(initial physics.Car, wrap *physics.WrapBounds) *Predictor {
	car := initial
	return &Predictor{Car: &car, wrap: wrap}
}

// ApplyLocalInput appends an input to the pending FIFO (trimming the
// oldest entry past MaxPendingInputs), makes it the held input for
// subsequent fixed-step ticks, and applies one immediate step so the
// local player feels instant control response.
func (p *Predictor) ApplyLocalInput(input physics.Input) uint32 {
	p.nextSequence++
	input.Sequence = p.nextSequence

	p.pending = append(p.pending, pendingInput{sequence: input.Sequence, input: input})
	if len(p.pending) > MaxPendingInputs {
		p.pending = p.pending[len(p.pending)-MaxPendingInputs:]
	}
	p.heldInput = input

	physics.Step(p.Car, input, physics.TickDT, nil)
	return input.Sequence
}

// Advance feeds elapsed real time into the fixed-timestep accumulator,
// running as many physics.TickDT steps as have accrued (spec §4.6
// "On each render frame").
func (p *Predictor) Advance(dtReal float64) {
	p.accumulator += dtReal
	for p.accumulator >= physics.TickDT {
		physics.Step(p.Car, p.heldInput, physics.TickDT, nil)
		p.accumulator -= physics.TickDT
	}
}

// Reconcile applies one authoritative snapshot entry for this
// player's car: dropping acknowledged pending inputs, then blending or
// snapping the predicted state toward the server's value.
func (p *Predictor) Reconcile(snap protocol.CarStateSnapshot) {
	p.dropAcknowledged(snap.LastInputSequence)

	target := physics.Vec2{X: snap.X, Y: snap.Y}
	if p.wrap != nil {
		target = p.unwrapTowardPredicted(target)
	}

	dist := target.Sub(p.Car.Position).Length()

	if dist > SnapThreshold {
		p.Car.Position = target
		p.Car.Rotation = snap.Rotation
		p.Car.Velocity = physics.Vec2{X: snap.VX, Y: snap.VY}
		p.Car.AngularVelocity = snap.AngularVelocity
		return
	}

	p.Car.Velocity.X += (snap.VX - p.Car.Velocity.X) * VelocityBlend
	p.Car.Velocity.Y += (snap.VY - p.Car.Velocity.Y) * VelocityBlend
	p.Car.AngularVelocity += (snap.AngularVelocity - p.Car.AngularVelocity) * AngularBlend
	p.Car.Rotation = vec2.LerpAngle(p.Car.Rotation, snap.Rotation, RotationBlend)

	if dist > PositionEpsilon {
		p.Car.Position = vec2.Lerp(p.Car.Position, target, PositionBlend)
	}
}

// ReconcileRespawn handles a respawn event for the local player: the
// car snaps via the usual snapshot-distance check, but velocity must
// also be zeroed and every unconfirmed input discarded immediately,
// since they were all issued against a position that no longer exists
// (spec §4.6, edge case 4).
func (p *Predictor) ReconcileRespawn() {
	p.Car.Velocity = physics.Vec2{}
	p.Car.AngularVelocity = 0
	p.pending = nil
}

// dropAcknowledged removes every pending input the server has now
// acted upon (spec invariant: no pending input may outlive the
// snapshot that confirms it).
func (p *Predictor) dropAcknowledged(lastInputSequence uint32) {
	i := 0
	for i < len(p.pending) && p.pending[i].sequence <= lastInputSequence {
		i++
	}
	p.pending = p.pending[i:]
}

// unwrapTowardPredicted picks the (kx,ky) integer wrap-count offset
// that places target nearest the predictor's current (unbounded)
// position, per spec §4.6 "On snapshot".
func (p *Predictor) unwrapTowardPredicted(target physics.Vec2) physics.Vec2 {
	w, h := p.wrap.Width, p.wrap.Height
	kx := math.Round((p.Car.Position.X - target.X) / w)
	ky := math.Round((p.Car.Position.Y - target.Y) / h)
	return physics.Vec2{X: target.X + kx*w, Y: target.Y + ky*h}
}

// PendingCount reports how many local inputs await server
// acknowledgement, mainly for tests and debug overlays.
func (p *Predictor) PendingCount() int { return len(p.pending) }
