package renderer

import (
	"log/slog"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fishflock/flock"
	"github.com/pthm-cable/fishflock/gpu"
)

// FishRenderer draws the swarm from the buffers published to it. It
// implements flock.ParticleSink.
type FishRenderer struct {
	count    int
	position gpu.Buffer
	velocity gpu.Buffer

	// Host copies, reused across frames
	pos []gpu.Vec3
	vel []gpu.Vec3

	// Speed range used for coloring
	minSpeed, maxSpeed float32

	BodyLength float32
	HeadSize   float32
}

// NewFishRenderer creates a fish renderer coloring speeds in speedRange.
func NewFishRenderer(speedRange [2]float32) *FishRenderer {
	return &FishRenderer{
		minSpeed:   speedRange[0],
		maxSpeed:   speedRange[1],
		BodyLength: 0.35,
		HeadSize:   0.08,
	}
}

// Reinit drops the bound buffers. They are rebound by the next publish.
func (r *FishRenderer) Reinit() {
	r.position = nil
	r.velocity = nil
	r.count = 0
}

// SetFloat sets a named scalar.
func (r *FishRenderer) SetFloat(name string, v float32) {
	switch name {
	case flock.SinkAgentCount:
		r.count = int(v)
		if cap(r.pos) < r.count {
			r.pos = make([]gpu.Vec3, r.count)
			r.vel = make([]gpu.Vec3, r.count)
		}
		r.pos, r.vel = r.pos[:r.count], r.vel[:r.count]
	default:
		slog.Debug("fish renderer: unknown float", "name", name)
	}
}

// SetBuffer binds a named buffer.
func (r *FishRenderer) SetBuffer(name string, b gpu.Buffer) {
	switch name {
	case flock.SinkPositionBuffer:
		r.position = b
	case flock.SinkVelocityBuffer:
		r.velocity = b
	default:
		slog.Debug("fish renderer: unknown buffer", "name", name)
	}
}

// SetSpeedRange updates the coloring range.
func (r *FishRenderer) SetSpeedRange(sr [2]float32) {
	r.minSpeed, r.maxSpeed = sr[0], sr[1]
}

// Count returns the agent count of the current binding.
func (r *FishRenderer) Count() int { return r.count }

// readBack copies the bound buffers to host memory. It reports false when
// nothing drawable is bound.
func (r *FishRenderer) readBack() bool {
	if r.count == 0 || r.position == nil || r.velocity == nil {
		return false
	}
	if r.position.Released() || r.velocity.Released() {
		return false
	}
	if err := r.position.GetData(r.pos); err != nil {
		slog.Warn("fish renderer: reading positions", "error", err)
		return false
	}
	if err := r.velocity.GetData(r.vel); err != nil {
		slog.Warn("fish renderer: reading velocities", "error", err)
		return false
	}
	return true
}

// Draw renders every fish as a head with a tail trailing its velocity.
// Must be called between BeginMode3D and EndMode3D.
func (r *FishRenderer) Draw() {
	if !r.readBack() {
		return
	}

	head := rl.Vector3{X: r.HeadSize, Y: r.HeadSize, Z: r.HeadSize}
	span := r.maxSpeed - r.minSpeed
	for i := 0; i < r.count; i++ {
		p, v := r.pos[i], r.vel[i]
		speed := math32.Sqrt(v.Dot(v))

		t := float32(0.5)
		if span > 0 {
			t = clamp01((speed - r.minSpeed) / span)
		}
		// Slow fish are teal, fast ones warm.
		color := rl.ColorFromHSV(190-150*t, 0.7, 0.95)

		hp := rl.Vector3{X: p.X, Y: p.Y, Z: p.Z}
		rl.DrawCubeV(hp, head, color)
		if speed > 0 {
			tail := v.Scale(-r.BodyLength / speed)
			rl.DrawLine3D(hp, rl.Vector3{X: p.X + tail.X, Y: p.Y + tail.Y, Z: p.Z + tail.Z}, rl.Fade(color, 0.6))
		}
	}
}

// DrawTarget marks the attraction target.
func DrawTarget(target gpu.Vec3, radius float32) {
	c := rl.Vector3{X: target.X, Y: target.Y, Z: target.Z}
	rl.DrawSphereWires(c, radius, 6, 8, rl.Fade(rl.Gold, 0.8))
}

// DrawBounds outlines the seeding volume.
func DrawBounds(halfExtent float32) {
	size := 2 * halfExtent
	rl.DrawCubeWires(rl.Vector3{}, size, size, size, rl.Fade(rl.SkyBlue, 0.25))
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
