package flock

import (
	"fmt"

	"github.com/pthm-cable/fishflock/gpu"
)

// GroupCount returns the number of thread groups of size groupX needed to
// cover n threads.
func GroupCount(n int, groupX uint32) uint32 {
	if n <= 0 || groupX == 0 {
		return 0
	}
	return (uint32(n) + groupX - 1) / groupX
}

// Stepper dispatches the flocking kernel over the swarm buffers.
type Stepper struct {
	dev gpu.Device

	lastGroups uint32
}

// NewStepper creates a stepper dispatching on dev.
func NewStepper(dev gpu.Device) *Stepper {
	return &Stepper{dev: dev}
}

// Step binds bufs, s and the target position to the flocking kernel and
// dispatches enough groups to cover every agent. It returns once the dispatch
// is queued. A missing kernel or binding is returned as is and should be
// treated as fatal.
func (st *Stepper) Step(bufs *Buffers, s Settings, target gpu.Vec3, dt float32) error {
	k, err := st.dev.FindKernel(gpu.FlockingKernel)
	if err != nil {
		return fmt.Errorf("finding flocking kernel: %w", err)
	}
	gx, _, _ := k.ThreadGroupSize()

	n := bufs.Count()
	b := bufs.Bindings(s.params(n, target, dt))

	groups := GroupCount(n, gx)
	if err := st.dev.Dispatch(k, b, groups, 1, 1); err != nil {
		return err
	}
	st.lastGroups = groups
	return nil
}

// LastGroups returns the X group count of the most recent dispatch.
func (st *Stepper) LastGroups() uint32 { return st.lastGroups }
