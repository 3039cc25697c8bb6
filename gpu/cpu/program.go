package cpu

import "github.com/pthm-cable/fishflock/gpu"

// Invocation is the state handed to a Program for one dispatch. The slices
// alias the bound buffers' storage.
type Invocation struct {
	Params gpu.FlockParams

	Position         []gpu.Vec3
	Velocity         []gpu.Vec3
	SmoothedPosition []gpu.Vec3
	SmoothedVelocity []gpu.Vec3

	// Threads is the number of launched threads: groups times group size.
	// Thread ids at or past Params.Nums must be ignored by the program.
	Threads int
	// Workers is the number of distinct worker indices Compute and Commit may see.
	Workers int
	Groups  [3]uint32
}

// Program is a kernel body executed on the CPU device.
//
// A dispatch runs Prepare once, then Compute over every thread id in parallel
// chunks, then Commit over every thread id in parallel chunks. Compute may read
// any element but must only write program-owned scratch; Commit writes the
// element at its own id. This mirrors a barrier between the read and write
// halves of a GPU kernel.
type Program interface {
	gpu.Kernel
	Prepare(inv *Invocation)
	Compute(inv *Invocation, worker, lo, hi int)
	Commit(inv *Invocation, worker, lo, hi int)
}
