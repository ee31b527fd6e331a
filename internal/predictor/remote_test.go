package predictor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"racehub/internal/physics"
	"racehub/internal/protocol"
)

func TestNewRemoteCarSeedsDisplayStateWithoutSliding(t *testing.T) {
	rc := NewRemoteCar(protocol.CarStateSnapshot{X: 50, Y: 60, Rotation: 1.2}, nil)

	require.Equal(t, physics.Vec2{X: 50, Y: 60}, rc.DisplayPosition)
	require.Equal(t, 1.2, rc.DisplayRotation)
}

func TestRemoteCarTickInterpolatesTowardTarget(t *testing.T) {
	rc := NewRemoteCar(protocol.CarStateSnapshot{X: 0, Y: 0}, nil)
	rc.OnSnapshot(protocol.CarStateSnapshot{X: 100, Y: 0})

	rc.Tick(1.0 / 60.0)

	require.Greater(t, rc.DisplayPosition.X, 0.0)
	require.Less(t, rc.DisplayPosition.X, 100.0)
}

func TestRemoteCarTeleportsPastThreshold(t *testing.T) {
	rc := NewRemoteCar(protocol.CarStateSnapshot{X: 0, Y: 0}, nil)
	rc.OnSnapshot(protocol.CarStateSnapshot{X: 500, Y: 0})

	rc.Tick(1.0 / 60.0)

	require.Equal(t, 500.0, rc.DisplayPosition.X)
}

func TestRemoteCarRecoversFromNonFiniteDisplayState(t *testing.T) {
	rc := NewRemoteCar(protocol.CarStateSnapshot{X: 0, Y: 0}, nil)
	rc.DisplayPosition = physics.Vec2{X: math.NaN(), Y: math.Inf(1)}
	rc.OnSnapshot(protocol.CarStateSnapshot{X: 10, Y: 10})

	require.NotPanics(t, func() { rc.Tick(1.0 / 60.0) })
	require.False(t, math.IsNaN(rc.DisplayPosition.X))
}

func TestRemoteCarUnwrapsTowardDisplayOnWrapAroundTrack(t *testing.T) {
	wrap := &physics.WrapBounds{Width: 800, Height: 600}
	rc := NewRemoteCar(protocol.CarStateSnapshot{X: 790, Y: 300}, wrap)

	// Car crosses the wrap boundary; server reports it re-entering near
	// x=0 instead of continuing past x=800.
	rc.OnSnapshot(protocol.CarStateSnapshot{X: 10, Y: 300})

	require.InDelta(t, 810.0, rc.TargetPosition.X, 0.001)

	rc.Tick(1.0 / 60.0)

	// Without unwrapping, the target would read as x=10 and the jump
	// from 790 would exceed TeleportThreshold, snapping instead of
	// interpolating. Unwrapped, the display position moves toward the
	// continuous target (810) and never revisits the raw wire value.
	require.NotEqual(t, 10.0, rc.DisplayPosition.X)
	require.InDelta(t, 810.0, rc.DisplayPosition.X, 0.001)
}
