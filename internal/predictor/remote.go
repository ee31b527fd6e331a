package predictor

import (
	"math"

	"racehub/internal/physics"
	"racehub/internal/protocol"
	"racehub/internal/vec2"
)

// TeleportThreshold is the distance past which a remote car's display
// state snaps to its new target instead of interpolating (spec §4.7).
const TeleportThreshold = 200.0

// RemoteCar smooths one other player's car toward the positions
// reported by each snapshot, since those arrive at the broadcast rate
// (20Hz) rather than the render rate. It holds no server-side state
// and is owned entirely by the client session displaying it.
type RemoteCar struct {
	TargetPosition physics.Vec2
	TargetRotation float64

	DisplayPosition physics.Vec2
	DisplayRotation float64

	wrap *physics.WrapBounds

	initialized bool
}

// NewRemoteCar seeds a remote car's display state directly from its
// first snapshot, with no interpolation, so it doesn't visibly slide
// in from the origin on join. wrap is non-nil only so the car knows
// the track's (W,H) for unwrapping later snapshots, matching
// Predictor's own handling of its local car (spec §4.7).
func NewRemoteCar(snap protocol.CarStateSnapshot, wrap *physics.WrapBounds) *RemoteCar {
	pos := physics.Vec2{X: snap.X, Y: snap.Y}
	return &RemoteCar{
		TargetPosition: pos, TargetRotation: snap.Rotation,
		DisplayPosition: pos, DisplayRotation: snap.Rotation,
		wrap:        wrap,
		initialized: true,
	}
}

// OnSnapshot records a new authoritative target. It does not move the
// display position itself; call Tick to advance the interpolation.
func (rc *RemoteCar) OnSnapshot(snap protocol.CarStateSnapshot) {
	target := physics.Vec2{X: snap.X, Y: snap.Y}
	if rc.wrap != nil {
		target = rc.unwrapTowardDisplay(target)
	}
	if !rc.initialized {
		rc.DisplayPosition = target
		rc.DisplayRotation = snap.Rotation
		rc.initialized = true
	}
	rc.TargetPosition = target
	rc.TargetRotation = snap.Rotation
}

// unwrapTowardDisplay picks the (kx,ky) integer wrap-count offset that
// places target nearest the car's current (unbounded) display
// position, so a wrap-around crossing interpolates continuously
// instead of snapping at the boundary (spec §4.7).
func (rc *RemoteCar) unwrapTowardDisplay(target physics.Vec2) physics.Vec2 {
	w, h := rc.wrap.Width, rc.wrap.Height
	kx := math.Round((rc.DisplayPosition.X - target.X) / w)
	ky := math.Round((rc.DisplayPosition.Y - target.Y) / h)
	return physics.Vec2{X: target.X + kx*w, Y: target.Y + ky*h}
}

// Tick advances the display state toward the current target by one
// render frame of dtSeconds, snapping instead of interpolating when
// the target jumped further than TeleportThreshold (a respawn, or a
// wrap-around crossing on a car created without wrap bounds), per
// spec §4.7.
func (rc *RemoteCar) Tick(dtSeconds float64) {
	if !rc.DisplayPosition.Finite() || !rc.TargetPosition.Finite() {
		rc.DisplayPosition = vec2.Zero
		rc.DisplayRotation = 0
	}

	dist := rc.TargetPosition.Sub(rc.DisplayPosition).Length()
	if dist > TeleportThreshold {
		rc.DisplayPosition = rc.TargetPosition
		rc.DisplayRotation = rc.TargetRotation
		return
	}

	t := vec2.Clamp01(dtSeconds * 60)
	rc.DisplayPosition = vec2.Lerp(rc.DisplayPosition, rc.TargetPosition, t)
	rc.DisplayRotation = vec2.LerpAngle(rc.DisplayRotation, rc.TargetRotation, t)

	rc.clampToWorldBounds()
}

// worldBound is a generous safety net against a corrupted or malicious
// snapshot driving the display position to infinity; it is not a track
// boundary (spec §4.7 edge case).
const worldBound = 1_000_000.0

func (rc *RemoteCar) clampToWorldBounds() {
	rc.DisplayPosition.X = clamp(rc.DisplayPosition.X, -worldBound, worldBound)
	rc.DisplayPosition.Y = clamp(rc.DisplayPosition.Y, -worldBound, worldBound)
	if math.IsNaN(rc.DisplayRotation) || math.IsInf(rc.DisplayRotation, 0) {
		rc.DisplayRotation = 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
