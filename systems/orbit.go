// Package systems contains ECS systems for the scene around the swarm.
package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fishflock/components"
)

const twoPi = 2 * math.Pi

// OrbitSystem moves entities along their Orbit and records the resulting
// velocity so consumers can orient them.
type OrbitSystem struct {
	filter ecs.Filter3[components.Position, components.Velocity, components.Orbit]
}

// NewOrbitSystem creates a new orbit system.
func NewOrbitSystem(w *ecs.World) *OrbitSystem {
	return &OrbitSystem{
		filter: *ecs.NewFilter3[components.Position, components.Velocity, components.Orbit](w),
	}
}

// Update advances every orbiting entity by dt seconds.
func (s *OrbitSystem) Update(dt float32) {
	if dt <= 0 {
		return
	}
	query := s.filter.Query()
	for query.Next() {
		pos, vel, orb := query.Get()

		orb.Phase = wrapAngle(orb.Phase + orb.Speed*dt)
		orb.BobPhase = wrapAngle(orb.BobPhase + orb.BobSpeed*dt)

		next := OrbitPosition(orb)
		vel.X = (next.X - pos.X) / dt
		vel.Y = (next.Y - pos.Y) / dt
		vel.Z = (next.Z - pos.Z) / dt
		*pos = next
	}
}

// OrbitPosition returns the point on the orbit for its current phases.
func OrbitPosition(orb *components.Orbit) components.Position {
	sin, cos := math.Sincos(float64(orb.Phase))
	return components.Position{
		X: orb.CenterX + orb.Radius*float32(cos),
		Y: orb.CenterY + orb.BobAmplitude*float32(math.Sin(float64(orb.BobPhase))),
		Z: orb.CenterZ + orb.Radius*float32(sin),
	}
}

// wrapAngle keeps an angle in [0, 2π) so long runs do not lose precision.
func wrapAngle(a float32) float32 {
	r := float32(math.Mod(float64(a), twoPi))
	if r < 0 {
		r += twoPi
	}
	return r
}
