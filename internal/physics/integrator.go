// Package physics implements the fixed-tick rigid-body car integrator
// shared, unmodified, by the server simulation and the client
// predictor. Running the exact same Step function on both sides is
// what keeps the two trajectories in agreement (spec §4.1, §9):
// divergent constants or step order would reintroduce the
// reconciliation error the design explicitly tries to avoid.
package physics

import (
	"math"

	"racehub/internal/vec2"
)

// Tuning constants. spec.md fixes the *shape* of the integrator (force
// formulas, step order, the Verlet constants DT/mass/frictionAir) but
// does not supply literal numbers for the remaining tuning constants;
// these values are this implementation's resolution of that open
// question, chosen to produce arcade-appropriate
// speeds on the ~800x600 example tracks in spec §8.
const (
	// DT is the Verlet integration constant in milliseconds, fixed by
	// spec §4.1/§9 at 1000/60 regardless of the server's tick duration.
	DT = 1000.0 / 60.0

	// Mass is density(0.002) * area(30*20), per spec §4.1 step 7.
	Mass = 0.002 * 30 * 20

	// FrictionAir is Matter.js-style per-tick air drag applied to both
	// linear and angular velocity in step 7.
	FrictionAir = 0.01

	EngineForce          = 2.4
	ReverseForce          = 1.6
	DragCoefficient      = 0.0025
	RollingResistance    = 0.015
	MaxSteeringAngle     = 0.9 // radians
	MaxSpeed             = 5.2
	MaxReverseSpeed      = 2.0
	NitroBoostMultiplier = 1.35
	MaxAngularVelocity   = 0.14

	// CollisionRestitution bounds the elastic-with-damping car-car
	// response referenced as an open question in spec §9; no behavior
	// is guaranteed beyond this bound until collisions are specified.
	CollisionRestitution = 0.5

	// TickDT is the fixed server/predictor tick duration in seconds.
	TickDT = 1.0 / 60.0
)

// WrapBounds describes a toroidal world. The server passes these for a
// wrap-around track; the client predictor always passes nil so its
// coordinates stay unbounded (spec §4.1 step 9, §8).
type WrapBounds struct {
	Width  float64
	Height float64
}

// Step advances car by one fixed tick given the latest input, in
// place. dt is the fixed tick duration in seconds (TickDT in
// practice); Step does not read it, since every formula uses the fixed
// DT constant, so passing a different dt does not change the result.
// wrap is nil for the client predictor and non-nil for a wrap-around
// server track.
//
// Step never reports an error: if input is the zero value the car
// simply coasts under drag, per spec §4.1 "Failure".
func Step(car *Car, input Input, dt float64, wrap *WrapBounds) {
	speed := car.Velocity.Length()
	forward := vec2.Forward(car.Rotation)
	signedForwardSpeed := car.Velocity.Dot(forward)

	// 2. Accumulate forces (not yet applied).
	var force vec2.Vec2
	if input.Accelerate && speed < MaxSpeed {
		force = force.Add(forward.Scale(EngineForce * 0.001))
	}
	if input.Nitro && car.Nitro > 0 {
		force = force.Add(forward.Scale(EngineForce * 0.0015))
	}

	// 3. Direct velocity modifications.
	if input.Brake {
		if signedForwardSpeed > 1 {
			car.Velocity = car.Velocity.Scale(0.95)
		} else if speed < MaxReverseSpeed {
			force = force.Sub(forward.Scale(ReverseForce * 0.001))
		}
	}

	// 4. Steering.
	steerInput := input.steer()
	if speed > 0.5 && steerInput != 0 {
		speedFactor := steerSpeedFactor(speed)
		angVel := steerInput * MaxSteeringAngle * 0.18 * speedFactor
		if signedForwardSpeed < 0 {
			angVel = -angVel
		}
		car.AngularVelocity = angVel
	} else {
		car.AngularVelocity *= 0.85
	}
	car.AngularVelocity = clamp(car.AngularVelocity, -MaxAngularVelocity, MaxAngularVelocity)

	// 5. Drag, computed from the pre-drag speed.
	preDragSpeed := car.Velocity.Length()
	dragFactor := 1 - DragCoefficient*preDragSpeed - RollingResistance
	car.Velocity = car.Velocity.Scale(dragFactor)

	// 6. Speed clamp.
	cap := MaxSpeed
	if input.Nitro && car.Nitro > 0 {
		cap = MaxSpeed * NitroBoostMultiplier
	}
	if postDragSpeed := car.Velocity.Length(); postDragSpeed > cap && postDragSpeed > 0 {
		car.Velocity = car.Velocity.Scale(cap / postDragSpeed)
	}

	// 7. Verlet-style integration.
	dtSq := DT * DT
	accel := force.Scale(dtSq / Mass)
	car.Velocity = car.Velocity.Scale(1 - FrictionAir).Add(accel)
	car.AngularVelocity *= 1 - FrictionAir
	car.Rotation += car.AngularVelocity

	// 8. Position update.
	car.Position = car.Position.Add(car.Velocity)

	// 9. Server-side wrap; the client predictor never wraps.
	if wrap != nil {
		car.Position.X = vec2.WrapMod(car.Position.X, wrap.Width)
		car.Position.Y = vec2.WrapMod(car.Position.Y, wrap.Height)
	}

	car.Speed = car.Velocity.Length()
}

// steerSpeedFactor implements the three-tier shape from spec §4.1
// step 4: a linear ramp to 3, a constant plateau to 15, and a
// diminishing tail above 15.
func steerSpeedFactor(speed float64) float64 {
	switch {
	case speed <= 3:
		return speed / 3
	case speed <= 15:
		return 1.0
	default:
		return math.Max(0.5, 15/speed)
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
