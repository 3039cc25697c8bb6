package cpu

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"

	"github.com/pthm-cable/fishflock/gpu"
)

func seedBindings(t *testing.T, d *Device, n int, rng *rand.Rand) *gpu.FlockBindings {
	t.Helper()
	b := newBindings(t, d, n)

	pos := make([]gpu.Vec3, n)
	vel := make([]gpu.Vec3, n)
	for i := range pos {
		pos[i] = gpu.Vec3{X: rng.Float32()*10 - 5, Y: rng.Float32()*10 - 5, Z: rng.Float32()*10 - 5}
		vel[i] = gpu.Vec3{X: 1}
	}
	for _, step := range []struct {
		buf  gpu.Buffer
		data []gpu.Vec3
	}{
		{b.Position, pos},
		{b.Velocity, vel},
		{b.SmoothedPosition, pos},
		{b.SmoothedVelocity, vel},
	} {
		if err := step.buf.SetData(step.data); err != nil {
			t.Fatalf("SetData: %v", err)
		}
	}
	return b
}

func TestFlocking_SpeedStaysInRange(t *testing.T) {
	d := NewDevice(Options{Workers: 4})
	defer d.Close()

	const n = 512
	b := seedBindings(t, d, n, rand.New(rand.NewSource(7)))
	b.Params = gpu.FlockParams{
		Nums:             n,
		SpeedRange:       [2]float32{0.5, 2},
		ForceWeight:      gpu.Vec3{X: 1.5, Y: 1, Z: 1},
		PerceptionRadius: gpu.Vec3{X: 0.5, Y: 1, Z: 1.5},
		MaxForce:         0.5,
		TargetForce:      0.2,
		DeltaTime:        0.02,
	}

	k, _ := d.FindKernel(gpu.FlockingKernel)
	for tick := 0; tick < 20; tick++ {
		if err := d.Dispatch(k, b, uint32((n+FlockingGroupSize-1)/FlockingGroupSize), 1, 1); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
	}

	vel := make([]gpu.Vec3, n)
	if err := b.Velocity.GetData(vel); err != nil {
		t.Fatalf("GetData: %v", err)
	}
	for i, v := range vel {
		speed := math32.Sqrt(v.Dot(v))
		if speed < 0.5-1e-4 || speed > 2+1e-4 {
			t.Fatalf("agent %d: speed %v outside [0.5, 2]", i, speed)
		}
	}
}

func TestFlocking_SmoothedFollowsWorking(t *testing.T) {
	d := NewDevice(Options{Workers: 1})
	defer d.Close()

	const n = 256
	b := seedBindings(t, d, n, rand.New(rand.NewSource(3)))
	b.Params = gpu.FlockParams{
		Nums:       n,
		SpeedRange: [2]float32{1, 1},
		DeltaTime:  0.1,
	}

	k, _ := d.FindKernel(gpu.FlockingKernel)
	if err := d.Dispatch(k, b, 4, 1, 1); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	before := make([]gpu.Vec3, n)
	work := make([]gpu.Vec3, n)
	smooth := make([]gpu.Vec3, n)
	_ = b.Position.GetData(work)
	_ = b.SmoothedPosition.GetData(smooth)

	// No forces: every agent moves 0.1 along +X.
	rng := rand.New(rand.NewSource(3))
	for i := range before {
		before[i] = gpu.Vec3{X: rng.Float32()*10 - 5, Y: rng.Float32()*10 - 5, Z: rng.Float32()*10 - 5}
	}
	for i := 0; i < n; i++ {
		moved := work[i].X - before[i].X
		if math32.Abs(moved-0.1) > 1e-4 {
			t.Fatalf("agent %d: expected working X to advance 0.1, got %v", i, moved)
		}
		lag := smooth[i].X - before[i].X
		if lag <= 0 || lag >= moved {
			t.Fatalf("agent %d: expected smoothed X strictly between old and new, got lag %v", i, lag)
		}
	}
}

func TestFlocking_ZeroSpeedRange(t *testing.T) {
	d := NewDevice(Options{})
	defer d.Close()

	const n = 256
	b := seedBindings(t, d, n, rand.New(rand.NewSource(1)))
	b.Params = gpu.FlockParams{Nums: n, TargetForce: 1, DeltaTime: 0.02}

	k, _ := d.FindKernel(gpu.FlockingKernel)
	if err := d.Dispatch(k, b, 4, 1, 1); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	vel := make([]gpu.Vec3, n)
	_ = b.Velocity.GetData(vel)
	for i, v := range vel {
		if v != (gpu.Vec3{}) {
			t.Fatalf("agent %d: expected zero velocity with [0,0] speed range, got %v", i, v)
		}
	}
}

func TestGrid_QueryExcludesSelfAndRespectsRadius(t *testing.T) {
	pos := []gpu.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 0.5, Y: 0, Z: 0},
		{X: 0, Y: 0.9, Z: 0},
		{X: 3, Y: 0, Z: 0},
		{X: -0.2, Y: -0.2, Z: -0.2},
	}
	g := newGrid()
	g.rebuild(pos, len(pos), 1)

	got := g.queryInto(nil, pos, pos[0], 1, 0)
	want := map[int32]bool{1: true, 2: true, 4: true}
	if len(got) != len(want) {
		t.Fatalf("expected %d neighbours, got %v", len(want), got)
	}
	for _, j := range got {
		if !want[j] {
			t.Errorf("unexpected neighbour %d", j)
		}
	}

	if got := g.queryInto(nil, pos, pos[0], 0, 0); len(got) != 0 {
		t.Errorf("expected no neighbours for zero radius, got %v", got)
	}
}
