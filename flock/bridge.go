package flock

import "github.com/pthm-cable/fishflock/gpu"

// Names the particle renderer reads the swarm under.
const (
	SinkPositionBuffer = "PositionBuffer"
	SinkVelocityBuffer = "VelocityBuffer"
	SinkAgentCount     = "Nums"
)

// ParticleSink is a particle renderer consuming swarm buffers by name.
// Buffers are borrowed: the sink must re-read its bindings every frame and
// never use a buffer after the swarm replaces it.
type ParticleSink interface {
	Reinit()
	SetFloat(name string, v float32)
	SetBuffer(name string, b gpu.Buffer)
}

// Bridge publishes the smoothed buffers to a ParticleSink.
type Bridge struct {
	sink ParticleSink
}

// NewBridge creates a bridge to sink. A nil sink discards everything.
func NewBridge(sink ParticleSink) *Bridge {
	return &Bridge{sink: sink}
}

// Reinit resets the sink for a swarm of n agents.
func (br *Bridge) Reinit(n int) {
	if br.sink == nil {
		return
	}
	br.sink.Reinit()
	br.sink.SetFloat(SinkAgentCount, float32(n))
}

// Publish binds the smoothed buffers on the sink. Nil buffers are skipped,
// so publishing before allocation or mid-reset is a no-op.
func (br *Bridge) Publish(smoothedPosition, smoothedVelocity gpu.Buffer) {
	if br.sink == nil {
		return
	}
	if smoothedPosition != nil {
		br.sink.SetBuffer(SinkPositionBuffer, smoothedPosition)
	}
	if smoothedVelocity != nil {
		br.sink.SetBuffer(SinkVelocityBuffer, smoothedVelocity)
	}
}
