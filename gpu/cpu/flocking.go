package cpu

import (
	"github.com/chewxy/math32"

	"github.com/pthm-cable/fishflock/gpu"
)

// FlockingGroupSize is the thread-group width of the reference kernel.
const FlockingGroupSize = 64

// smoothingRate controls how fast the smoothed buffers follow the working
// buffers, in 1/seconds.
const smoothingRate = 8.0

// Flocking is the reference CPU implementation of the flocking kernel:
// separation, alignment and cohesion steering plus attraction to a target.
type Flocking struct {
	grid    *grid
	nextPos []gpu.Vec3
	nextVel []gpu.Vec3
	scratch [][]int32 // per-worker neighbour lists
}

// NewFlocking creates the reference flocking kernel.
func NewFlocking() *Flocking {
	return &Flocking{grid: newGrid()}
}

func (f *Flocking) Name() string { return gpu.FlockingKernel }

func (f *Flocking) ThreadGroupSize() (x, y, z uint32) { return FlockingGroupSize, 1, 1 }

// Prepare sizes scratch space and indexes positions for neighbour queries.
func (f *Flocking) Prepare(inv *Invocation) {
	n := int(inv.Params.Nums)
	if cap(f.nextPos) < n {
		f.nextPos = make([]gpu.Vec3, n)
		f.nextVel = make([]gpu.Vec3, n)
	}
	f.nextPos = f.nextPos[:n]
	f.nextVel = f.nextVel[:n]

	for len(f.scratch) < inv.Workers {
		f.scratch = append(f.scratch, make([]int32, 0, maxNeighbors))
	}

	r := inv.Params.PerceptionRadius
	f.grid.rebuild(inv.Position, n, math32.Max(r.X, math32.Max(r.Y, r.Z)))
}

// Compute integrates one step for agents in [lo, hi) into scratch.
func (f *Flocking) Compute(inv *Invocation, worker, lo, hi int) {
	p := &inv.Params
	n := int(p.Nums)
	if hi > n {
		hi = n
	}
	r := p.PerceptionRadius
	maxRadius := math32.Max(r.X, math32.Max(r.Y, r.Z))
	minSpeed, maxSpeed := p.SpeedRange[0], p.SpeedRange[1]

	for i := lo; i < hi; i++ {
		pos := inv.Position[i]
		vel := inv.Velocity[i]

		neighbors := f.grid.queryInto(f.scratch[worker][:0], inv.Position, pos, maxRadius, int32(i))
		f.scratch[worker] = neighbors

		var sep, ali, coh gpu.Vec3
		var nAli, nCoh int
		for _, j := range neighbors {
			d := pos.Sub(inv.Position[j])
			distSq := d.Dot(d)
			if distSq == 0 {
				continue
			}
			dist := math32.Sqrt(distSq)
			if dist < r.X {
				// Direction away from the neighbour, weighted by 1/dist.
				sep = sep.Add(d.Scale(1 / distSq))
			}
			if dist < r.Y {
				ali = ali.Add(inv.Velocity[j])
				nAli++
			}
			if dist < r.Z {
				coh = coh.Add(inv.Position[j])
				nCoh++
			}
		}

		var force gpu.Vec3
		if sep != (gpu.Vec3{}) {
			force = force.Add(steer(sep, vel, maxSpeed, p.MaxForce).Scale(p.ForceWeight.X))
		}
		if nAli > 0 {
			avg := ali.Scale(1 / float32(nAli))
			force = force.Add(steer(avg, vel, maxSpeed, p.MaxForce).Scale(p.ForceWeight.Y))
		}
		if nCoh > 0 {
			center := coh.Scale(1 / float32(nCoh))
			force = force.Add(steer(center.Sub(pos), vel, maxSpeed, p.MaxForce).Scale(p.ForceWeight.Z))
		}
		force = force.Add(normalize(p.TargetPosition.Sub(pos)).Scale(p.TargetForce))

		vel = clampSpeed(vel.Add(force.Scale(p.DeltaTime)), minSpeed, maxSpeed)
		f.nextPos[i] = pos.Add(vel.Scale(p.DeltaTime))
		f.nextVel[i] = vel
	}
}

// Commit writes the integrated state and eases the smoothed buffers toward it.
func (f *Flocking) Commit(inv *Invocation, worker, lo, hi int) {
	n := int(inv.Params.Nums)
	if hi > n {
		hi = n
	}
	a := 1 - math32.Exp(-inv.Params.DeltaTime*smoothingRate)

	for i := lo; i < hi; i++ {
		inv.Position[i] = f.nextPos[i]
		inv.Velocity[i] = f.nextVel[i]
		inv.SmoothedPosition[i] = lerp(inv.SmoothedPosition[i], f.nextPos[i], a)
		inv.SmoothedVelocity[i] = lerp(inv.SmoothedVelocity[i], f.nextVel[i], a)
	}
}

// steer returns the force turning vel toward desired at full speed, limited to maxForce.
func steer(desired, vel gpu.Vec3, maxSpeed, maxForce float32) gpu.Vec3 {
	return limit(normalize(desired).Scale(maxSpeed).Sub(vel), maxForce)
}

func length(v gpu.Vec3) float32 {
	return math32.Sqrt(v.Dot(v))
}

func normalize(v gpu.Vec3) gpu.Vec3 {
	l := length(v)
	if l == 0 {
		return gpu.Vec3{}
	}
	return v.Scale(1 / l)
}

func limit(v gpu.Vec3, max float32) gpu.Vec3 {
	l := length(v)
	if l > max && l > 0 {
		return v.Scale(max / l)
	}
	return v
}

// clampSpeed keeps a non-zero velocity's magnitude within [min, max].
func clampSpeed(v gpu.Vec3, min, max float32) gpu.Vec3 {
	speed := length(v)
	switch {
	case speed == 0:
		return v
	case speed > max:
		return v.Scale(max / speed)
	case speed < min:
		return v.Scale(min / speed)
	}
	return v
}

func lerp(a, b gpu.Vec3, t float32) gpu.Vec3 {
	return a.Add(b.Sub(a).Scale(t))
}
