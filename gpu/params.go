package gpu

import "fmt"

// FlockingKernel is the entry point name of the flocking compute kernel.
const FlockingKernel = "Flocking"

// Buffer binding names, as declared by the kernel.
const (
	BindPosition         = "_PositionBuffer"
	BindVelocity         = "_VelocityBuffer"
	BindSmoothedPosition = "_SmoothedPositionBuffer"
	BindSmoothedVelocity = "_SmoothedVelocityBuffer"
)

// FlockParams is the uniform block consumed by the flocking kernel. Each field
// maps to one kernel uniform of the same name prefixed with an underscore.
type FlockParams struct {
	Nums             uint32
	SpeedRange       [2]float32 // min, max
	ForceWeight      Vec3       // separation, alignment, cohesion
	MaxForce         float32
	PerceptionRadius Vec3 // separation, alignment, cohesion
	TargetForce      float32
	TargetPosition   Vec3
	DeltaTime        float32
}

// FlockBindings binds the four swarm buffers and the parameter block.
// Position and Velocity are read-write; the smoothed buffers are write targets.
type FlockBindings struct {
	Position         Buffer
	Velocity         Buffer
	SmoothedPosition Buffer
	SmoothedVelocity Buffer
	Params           FlockParams
}

// Buffers returns the bound buffers keyed by binding name.
func (b *FlockBindings) Buffers() map[string]Buffer {
	return map[string]Buffer{
		BindPosition:         b.Position,
		BindVelocity:         b.Velocity,
		BindSmoothedPosition: b.SmoothedPosition,
		BindSmoothedVelocity: b.SmoothedVelocity,
	}
}

// Validate checks that every binding is present, live and sized for Params.Nums.
func (b *FlockBindings) Validate() error {
	if b == nil {
		return fmt.Errorf("flock bindings: %w", ErrBindingNotFound)
	}
	bufs := b.Buffers()
	for _, name := range []string{BindPosition, BindVelocity, BindSmoothedPosition, BindSmoothedVelocity} {
		buf := bufs[name]
		if buf == nil {
			return fmt.Errorf("%s: %w", name, ErrBindingNotFound)
		}
		if buf.Released() {
			return fmt.Errorf("%s: %w", name, ErrBufferReleased)
		}
		if buf.Len() < int(b.Params.Nums) {
			return fmt.Errorf("%s holds %d elements, kernel expects %d: %w",
				name, buf.Len(), b.Params.Nums, ErrSizeMismatch)
		}
	}
	return nil
}
