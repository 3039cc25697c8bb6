// Package flock drives a fish swarm on a compute device: it owns the swarm
// buffers, dispatches the flocking kernel every tick and publishes the
// smoothed state to a particle renderer.
package flock

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/fishflock/gpu"
)

// Supported agent counts.
const (
	MinAgents = 256
	MaxAgents = 8192
)

// SeedRadius is the half-extent of the cube initial positions are drawn from.
const SeedRadius = 5

var (
	// ErrAgentCount is returned when the agent count is outside [MinAgents, MaxAgents].
	ErrAgentCount = errors.New("flock: agent count out of range")
	// ErrReleased is returned by operations on a swarm that has been shut down.
	ErrReleased = errors.New("flock: swarm released")
)

// Settings holds the swarm's simulation parameters.
type Settings struct {
	Agents           int
	SpeedRange       [2]float32 // min, max
	ForceWeight      gpu.Vec3   // separation, alignment, cohesion
	PerceptionRadius gpu.Vec3   // separation, alignment, cohesion
	MaxForce         float32
	TargetForce      float32
}

// ValidateAgents reports whether n is a supported agent count.
func ValidateAgents(n int) error {
	if n < MinAgents || n > MaxAgents {
		return fmt.Errorf("%d not in [%d, %d]: %w", n, MinAgents, MaxAgents, ErrAgentCount)
	}
	return nil
}

// needsReseed reports whether moving from s to next changes seeded state.
func (s Settings) needsReseed(next Settings) bool {
	return s.Agents != next.Agents || s.SpeedRange != next.SpeedRange
}

// params builds the kernel parameter block for one tick.
func (s Settings) params(n int, target gpu.Vec3, dt float32) gpu.FlockParams {
	return gpu.FlockParams{
		Nums:             uint32(n),
		SpeedRange:       s.SpeedRange,
		ForceWeight:      s.ForceWeight,
		PerceptionRadius: s.PerceptionRadius,
		MaxForce:         s.MaxForce,
		TargetPosition:   target,
		TargetForce:      s.TargetForce,
		DeltaTime:        dt,
	}
}
