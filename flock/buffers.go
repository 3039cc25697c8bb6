package flock

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/fishflock/gpu"
)

// Buffers owns the four swarm buffers: working position and velocity, and
// their smoothed counterparts. All four always have the same length; a new
// length only takes effect through a full release and reallocation.
type Buffers struct {
	dev gpu.Device
	rng *rand.Rand

	position         gpu.Buffer
	velocity         gpu.Buffer
	smoothedPosition gpu.Buffer
	smoothedVelocity gpu.Buffer

	count      int
	needsReset bool
}

// NewBuffers creates a manager with nothing allocated and the reset flag set.
func NewBuffers(dev gpu.Device, rng *rand.Rand) *Buffers {
	return &Buffers{dev: dev, rng: rng, needsReset: true}
}

// Allocate creates four Vec3 buffers of length n. On error nothing is left
// allocated.
func (b *Buffers) Allocate(n int) error {
	if err := ValidateAgents(n); err != nil {
		return err
	}
	if b.Allocated() {
		return fmt.Errorf("allocating %d agents: buffers already allocated", n)
	}

	var created []gpu.Buffer
	for i := 0; i < 4; i++ {
		buf, err := b.dev.NewBuffer(n, gpu.Vec3Stride)
		if err != nil {
			for _, c := range created {
				c.Release()
			}
			return fmt.Errorf("allocating swarm buffer %d of 4: %w", i+1, err)
		}
		created = append(created, buf)
	}

	b.position = created[0]
	b.velocity = created[1]
	b.smoothedPosition = created[2]
	b.smoothedVelocity = created[3]
	b.count = n
	return nil
}

// Seed fills the buffers with n agents: positions in a cube of SeedRadius,
// velocities with random directions at the midpoint of speedRange. The
// smoothed buffers start equal to the working buffers.
func (b *Buffers) Seed(n int, speedRange [2]float32) error {
	if !b.Allocated() {
		return fmt.Errorf("seeding %d agents: buffers not allocated", n)
	}
	if n != b.count {
		return fmt.Errorf("seeding %d agents into buffers of %d: %w", n, b.count, gpu.ErrSizeMismatch)
	}

	pos := make([]gpu.Vec3, n)
	vel := make([]gpu.Vec3, n)
	speed := SeedSpeed(speedRange)
	for i := 0; i < n; i++ {
		pos[i] = SeedPosition(b.rng, SeedRadius)
		vel[i] = SeedVelocity(b.rng, speed)
	}

	for _, up := range []struct {
		buf  gpu.Buffer
		data []gpu.Vec3
	}{
		{b.position, pos},
		{b.velocity, vel},
		{b.smoothedPosition, pos},
		{b.smoothedVelocity, vel},
	} {
		if err := up.buf.SetData(up.data); err != nil {
			return fmt.Errorf("uploading seed data: %w", err)
		}
	}
	return nil
}

// Release frees all four buffers and sets the reset flag. It is safe to call
// when nothing is allocated.
func (b *Buffers) Release() {
	for _, buf := range []*gpu.Buffer{&b.position, &b.velocity, &b.smoothedPosition, &b.smoothedVelocity} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
	b.count = 0
	b.needsReset = true
}

// Reset releases, reallocates n agents and reseeds, then clears the flag.
// On error the flag stays set.
func (b *Buffers) Reset(n int, speedRange [2]float32) error {
	b.Release()
	if err := b.Allocate(n); err != nil {
		return err
	}
	if err := b.Seed(n, speedRange); err != nil {
		b.Release()
		return err
	}
	b.needsReset = false
	slog.Info("swarm buffers reset", "agents", n, "speed", SeedSpeed(speedRange))
	return nil
}

// ResetIfNeeded runs Reset when the reset flag is set and reports whether it did.
func (b *Buffers) ResetIfNeeded(n int, speedRange [2]float32) (bool, error) {
	if !b.needsReset {
		return false, nil
	}
	return true, b.Reset(n, speedRange)
}

// MarkReset requests a reset on the next ResetIfNeeded.
func (b *Buffers) MarkReset() { b.needsReset = true }

// NeedsReset reports whether the reset flag is set.
func (b *Buffers) NeedsReset() bool { return b.needsReset }

// Allocated reports whether the buffers currently exist.
func (b *Buffers) Allocated() bool { return b.position != nil }

// Count returns the allocated agent count, or 0.
func (b *Buffers) Count() int { return b.count }

// Position returns the working position buffer, or nil.
func (b *Buffers) Position() gpu.Buffer { return b.position }

// Velocity returns the working velocity buffer, or nil.
func (b *Buffers) Velocity() gpu.Buffer { return b.velocity }

// SmoothedPosition returns the smoothed position buffer, or nil.
func (b *Buffers) SmoothedPosition() gpu.Buffer { return b.smoothedPosition }

// SmoothedVelocity returns the smoothed velocity buffer, or nil.
func (b *Buffers) SmoothedVelocity() gpu.Buffer { return b.smoothedVelocity }

// Bindings binds the buffers for a dispatch with the given parameters.
func (b *Buffers) Bindings(p gpu.FlockParams) *gpu.FlockBindings {
	fb := &gpu.FlockBindings{Params: p}
	// Leave interface fields nil rather than holding typed nils.
	if b.Allocated() {
		fb.Position = b.position
		fb.Velocity = b.velocity
		fb.SmoothedPosition = b.smoothedPosition
		fb.SmoothedVelocity = b.smoothedVelocity
	}
	return fb
}
