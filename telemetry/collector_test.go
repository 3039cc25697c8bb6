package telemetry

import (
	"errors"
	"testing"

	"github.com/pthm-cable/fishflock/gpu"
)

type fakeSwarm struct {
	pos, vel []gpu.Vec3
	err      error
}

func (f *fakeSwarm) Snapshot(pos, vel []gpu.Vec3) ([]gpu.Vec3, []gpu.Vec3, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return append(pos[:0], f.pos...), append(vel[:0], f.vel...), nil
}

func TestCollector_WindowFlush(t *testing.T) {
	c := NewCollector(1.0, 0.02)
	if c.WindowDurationTicks() != 50 {
		t.Fatalf("expected 50 ticks per window, got %d", c.WindowDurationTicks())
	}
	if c.ShouldFlush(49) || !c.ShouldFlush(50) {
		t.Error("expected flush at exactly one window")
	}

	c.RecordReset()
	for i := 0; i < 50; i++ {
		c.RecordDispatch()
	}
	swarm := &fakeSwarm{
		pos: []gpu.Vec3{{X: 1}, {X: -1}},
		vel: []gpu.Vec3{{Z: 2}, {Z: 2}},
	}

	s, err := c.Flush(50, swarm, gpu.Vec3{}, [2]float32{1, 3})
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if s.WindowStartTick != 0 || s.WindowEndTick != 50 {
		t.Errorf("expected window [0, 50], got [%d, %d]", s.WindowStartTick, s.WindowEndTick)
	}
	if s.SimTimeSec < 0.999 || s.SimTimeSec > 1.001 {
		t.Errorf("expected 1s of sim time, got %v", s.SimTimeSec)
	}
	if s.Resets != 1 || s.Dispatches != 50 || s.Agents != 2 {
		t.Errorf("unexpected counters %+v", s)
	}

	// Counters restart with the next window.
	if c.ShouldFlush(60) {
		t.Error("expected no flush 10 ticks into the next window")
	}
	s, _ = c.Flush(100, swarm, gpu.Vec3{}, [2]float32{1, 3})
	if s.WindowStartTick != 50 || s.Resets != 0 || s.Dispatches != 0 {
		t.Errorf("expected cleared counters for the second window, got %+v", s)
	}
}

func TestCollector_FlushError(t *testing.T) {
	c := NewCollector(1.0, 0.02)
	want := errors.New("readback failed")
	c.RecordReset()
	c.RecordDispatch()
	if _, err := c.Flush(50, &fakeSwarm{err: want}, gpu.Vec3{}, [2]float32{}); !errors.Is(err, want) {
		t.Errorf("expected readback error, got %v", err)
	}

	// A failed window is dropped, not retried on the next tick.
	if c.ShouldFlush(51) {
		t.Error("expected the window to advance after a failed readback")
	}
	if !c.ShouldFlush(100) {
		t.Error("expected the next window to flush on schedule")
	}
	s, err := c.Flush(100, &fakeSwarm{pos: []gpu.Vec3{{}}, vel: []gpu.Vec3{{X: 1}}}, gpu.Vec3{}, [2]float32{0, 2})
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if s.WindowStartTick != 50 || s.Resets != 0 || s.Dispatches != 0 {
		t.Errorf("expected counters of the failed window dropped, got %+v", s)
	}
}
