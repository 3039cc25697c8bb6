package flock

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fishflock/components"
	"github.com/pthm-cable/fishflock/gpu"
)

func TestSwarm_Lifecycle(t *testing.T) {
	k := &recordingKernel{groupX: 64}
	d := newDevice(t, k)
	sink := newRecordingSink()
	w := NewSwarm(d, sink, testSettings(256), rand.New(rand.NewSource(1)))

	if w.State() != Uninitialized {
		t.Fatalf("expected uninitialized, got %v", w.State())
	}
	if err := w.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if w.State() != Ready || w.Buffers().NeedsReset() {
		t.Fatalf("expected ready with flag clear, got %v flag=%v", w.State(), w.Buffers().NeedsReset())
	}
	if sink.reinits != 1 {
		t.Errorf("expected renderer reinit on init, got %d", sink.reinits)
	}

	for i := 0; i < 3; i++ {
		if err := w.Tick(0.02); err != nil {
			t.Fatalf("Tick %d: %v", i, err)
		}
	}
	if w.Resets() != 1 {
		t.Errorf("expected no extra resets while ready, got %d", w.Resets())
	}
	if sink.buffers[SinkPositionBuffer] != w.Buffers().SmoothedPosition() {
		t.Error("expected smoothed positions published")
	}

	w.Shutdown()
	if w.State() != Released {
		t.Errorf("expected released, got %v", w.State())
	}
	if !w.Buffers().NeedsReset() || w.Buffers().Allocated() {
		t.Error("expected buffers released with flag set")
	}
	if err := w.Tick(0.02); !errors.Is(err, ErrReleased) {
		t.Errorf("expected ErrReleased after shutdown, got %v", err)
	}
	if err := w.Init(); !errors.Is(err, ErrReleased) {
		t.Errorf("expected ErrReleased from Init after shutdown, got %v", err)
	}
	w.Shutdown()
}

func TestSwarm_LazyInitOnFirstTick(t *testing.T) {
	d := newDevice(t, &recordingKernel{groupX: 64})
	w := NewSwarm(d, nil, testSettings(512), rand.New(rand.NewSource(1)))

	if err := w.Tick(0.02); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if w.State() != Ready || w.Buffers().Count() != 512 {
		t.Errorf("expected ready with 512 agents, got %v with %d", w.State(), w.Buffers().Count())
	}
}

func TestSwarm_SettingsChangeTriggersReset(t *testing.T) {
	k := &recordingKernel{groupX: 64}
	d := newDevice(t, k)
	sink := newRecordingSink()
	w := NewSwarm(d, sink, testSettings(256), rand.New(rand.NewSource(1)))
	if err := w.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	firstID := w.Buffers().Position().ID()

	// Weights alone do not reseed.
	s := w.Settings()
	s.MaxForce = 2
	w.SetSettings(s)
	if w.Buffers().NeedsReset() {
		t.Error("expected no reset for a force change")
	}

	// The new count waits for the next tick.
	s.Agents = 1024
	w.SetSettings(s)
	if w.Buffers().Count() != 256 {
		t.Errorf("expected count unchanged until reset, got %d", w.Buffers().Count())
	}
	if err := w.Tick(0.02); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	d.Wait()

	if w.Buffers().Count() != 1024 {
		t.Errorf("expected 1024 agents after reset, got %d", w.Buffers().Count())
	}
	if w.Buffers().Position().ID() == firstID {
		t.Error("expected fresh buffers after reset")
	}
	if sink.reinits != 2 || sink.floats[SinkAgentCount] != 1024 {
		t.Errorf("expected renderer reinit with Nums=1024, got %d reinits Nums=%v", sink.reinits, sink.floats[SinkAgentCount])
	}
	p, groups := k.last()
	if p.Nums != 1024 || groups[0] != 16 || p.MaxForce != 2 {
		t.Errorf("expected dispatch over 1024 agents in 16 groups with MaxForce 2, got %d agents, %d groups, %v", p.Nums, groups[0], p.MaxForce)
	}
}

func TestSwarm_InvalidAgentCountFailsInit(t *testing.T) {
	w := NewSwarm(newDevice(t), nil, testSettings(9000), rand.New(rand.NewSource(1)))
	if err := w.Init(); !errors.Is(err, ErrAgentCount) {
		t.Fatalf("expected ErrAgentCount, got %v", err)
	}
	if w.State() != Uninitialized {
		t.Errorf("expected state to stay uninitialized, got %v", w.State())
	}
}

func TestSwarm_MissingKernelIsFatal(t *testing.T) {
	d := newDevice(t, &namedKernel{recordingKernel{groupX: 64}, "Other"})
	w := NewSwarm(d, nil, testSettings(256), rand.New(rand.NewSource(1)))
	if err := w.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := w.Tick(0.02); !errors.Is(err, gpu.ErrKernelNotFound) {
		t.Errorf("expected ErrKernelNotFound, got %v", err)
	}
}

func TestSwarm_PhaseOrder(t *testing.T) {
	w := NewSwarm(newDevice(t, &recordingKernel{groupX: 64}), nil, testSettings(256), rand.New(rand.NewSource(1)))
	var phases []Phase
	w.OnPhase(func(p Phase) { phases = append(phases, p) })

	if err := w.Tick(0.02); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	want := []Phase{PhaseReset, PhaseDispatch, PhasePublish}
	if len(phases) != len(want) {
		t.Fatalf("expected phases %v, got %v", want, phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phase %d: expected %s, got %s", i, want[i], phases[i])
		}
	}
}

func TestSwarm_Target(t *testing.T) {
	k := &recordingKernel{groupX: 64}
	d := newDevice(t, k)
	w := NewSwarm(d, nil, testSettings(256), rand.New(rand.NewSource(1)))
	if err := w.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	tick := func() gpu.Vec3 {
		t.Helper()
		if err := w.Tick(0.02); err != nil {
			t.Fatalf("Tick: %v", err)
		}
		d.Wait()
		p, _ := k.last()
		return p.TargetPosition
	}

	if got := tick(); got != (gpu.Vec3{}) {
		t.Errorf("expected origin without a target, got %v", got)
	}

	world := ecs.NewWorld()
	mapper := ecs.NewMap[components.Position](world)
	e := mapper.NewEntity(&components.Position{X: 4, Y: -2, Z: 1})
	w.SetTarget(NewEntityTarget(world, e))
	if got := tick(); got != (gpu.Vec3{X: 4, Y: -2, Z: 1}) {
		t.Errorf("expected entity position, got %v", got)
	}

	mapper.Get(e).X = 7
	if got := tick(); got.X != 7 {
		t.Errorf("expected target to follow entity, got %v", got)
	}

	world.RemoveEntity(e)
	if got := tick(); got != (gpu.Vec3{}) {
		t.Errorf("expected origin after entity removal, got %v", got)
	}

	w.SetTarget(FixedTarget{Y: 3})
	if got := tick(); got != (gpu.Vec3{Y: 3}) {
		t.Errorf("expected fixed target, got %v", got)
	}
}

func TestSwarm_SnapshotWithReferenceKernel(t *testing.T) {
	d := newDevice(t)
	w := NewSwarm(d, nil, testSettings(512), rand.New(rand.NewSource(9)))

	pos, vel, err := w.Snapshot(nil, nil)
	if err != nil || len(pos) != 0 || len(vel) != 0 {
		t.Fatalf("expected empty snapshot before init, got %d/%d, %v", len(pos), len(vel), err)
	}

	if err := w.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	before, _, err := w.Snapshot(nil, nil)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := w.Tick(0.02); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	pos, vel, err = w.Snapshot(nil, nil)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(pos) != 512 || len(vel) != 512 {
		t.Fatalf("expected 512 agents, got %d/%d", len(pos), len(vel))
	}
	moved := 0
	for i := range pos {
		if pos[i] != before[i] {
			moved++
		}
	}
	if moved == 0 {
		t.Error("expected smoothed positions to change after ticks")
	}
}
