package telemetry

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/pthm-cable/fishflock/flock"
	"github.com/pthm-cable/fishflock/gpu"
)

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCollector(window int) (*PerfCollector, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	pc := NewPerfCollector(window)
	pc.now = clk.now
	return pc, clk
}

// slowSnapshot takes d of clock time per readback.
type slowSnapshot struct {
	clk *fakeClock
	d   time.Duration
	err error
}

func (s slowSnapshot) Snapshot(pos, vel []gpu.Vec3) ([]gpu.Vec3, []gpu.Vec3, error) {
	s.clk.advance(s.d)
	return pos, vel, s.err
}

func TestPerfCollector_PhaseTimings(t *testing.T) {
	pc, clk := newTestCollector(10)

	for i := 0; i < 4; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseSystems)
		clk.advance(100 * time.Microsecond)
		pc.StartPhase(flock.PhaseDispatch)
		clk.advance(700 * time.Microsecond)
		pc.StartPhase(flock.PhasePublish)
		clk.advance(200 * time.Microsecond)
		pc.EndTick()
	}

	s := pc.Stats()
	if s.Ticks != 4 || s.AvgTickDuration != time.Millisecond {
		t.Fatalf("expected 4 ticks of 1ms, got %d of %v", s.Ticks, s.AvgTickDuration)
	}
	if s.TicksPerSecond != 1000 {
		t.Errorf("expected 1000 ticks/s, got %v", s.TicksPerSecond)
	}

	tests := []struct {
		phase flock.Phase
		pct   float64
	}{
		{PhaseSystems, 10},
		{flock.PhaseReset, 0},
		{flock.PhaseDispatch, 70},
		{flock.PhasePublish, 20},
		{PhaseTelemetry, 0},
		{PhaseReadback, 0},
	}
	for _, tt := range tests {
		if got := s.Pct(tt.phase); math.Abs(got-tt.pct) > 1e-9 {
			t.Errorf("%s: expected %v%%, got %v%%", tt.phase, tt.pct, got)
		}
	}

	if len(s.Phases) != len(Phases) {
		t.Fatalf("expected every phase listed, got %d", len(s.Phases))
	}
	for i, pt := range s.Phases {
		if pt.Phase != Phases[i] {
			t.Errorf("phase %d: expected %s, got %s", i, Phases[i], pt.Phase)
		}
	}
}

func TestPerfCollector_ReadbackCarvedOutOfPhase(t *testing.T) {
	pc, clk := newTestCollector(10)
	snap := pc.TimeSnapshot(slowSnapshot{clk: clk, d: 600 * time.Microsecond})

	pc.StartTick()
	pc.StartPhase(PhaseTelemetry)
	clk.advance(100 * time.Microsecond)
	if _, _, err := snap.Snapshot(nil, nil); err != nil {
		t.Fatal(err)
	}
	clk.advance(300 * time.Microsecond)
	pc.EndTick()

	s := pc.Stats()
	if s.Readbacks != 1 || s.AvgReadback != 600*time.Microsecond || s.MaxReadback != 600*time.Microsecond {
		t.Errorf("expected one 600us readback, got %d avg=%v max=%v", s.Readbacks, s.AvgReadback, s.MaxReadback)
	}
	if got := s.Pct(PhaseReadback); math.Abs(got-60) > 1e-9 {
		t.Errorf("expected readback 60%%, got %v", got)
	}
	if got := s.Pct(PhaseTelemetry); math.Abs(got-40) > 1e-9 {
		t.Errorf("expected telemetry to resume for 40%%, got %v", got)
	}
}

func TestPerfCollector_ReadbackErrorStillCounted(t *testing.T) {
	pc, clk := newTestCollector(10)
	want := errors.New("device lost")
	snap := pc.TimeSnapshot(slowSnapshot{clk: clk, d: time.Millisecond, err: want})

	pc.StartTick()
	if _, _, err := snap.Snapshot(nil, nil); !errors.Is(err, want) {
		t.Errorf("expected snapshot error passed through, got %v", err)
	}
	pc.EndTick()

	if s := pc.Stats(); s.Readbacks != 1 {
		t.Errorf("expected failed readback counted, got %d", s.Readbacks)
	}
}

func TestPerfCollector_ResetsLandInNextTick(t *testing.T) {
	pc, clk := newTestCollector(3)

	// Init resets before the first tick starts.
	pc.RecordReset()
	for i := 0; i < 3; i++ {
		pc.StartTick()
		pc.StartPhase(flock.PhaseReset)
		if i == 1 {
			pc.RecordReset()
		}
		clk.advance(time.Millisecond)
		pc.EndTick()
	}
	if s := pc.Stats(); s.Resets != 2 {
		t.Errorf("expected 2 resets in window, got %d", s.Resets)
	}

	// Both reset ticks roll out of a 3-tick window.
	for i := 0; i < 2; i++ {
		pc.StartTick()
		clk.advance(time.Millisecond)
		pc.EndTick()
	}
	if s := pc.Stats(); s.Resets != 0 || s.Ticks != 3 {
		t.Errorf("expected resets to roll out of the window, got %d over %d ticks", s.Resets, s.Ticks)
	}
}

func TestPerfCollector_MinMax(t *testing.T) {
	pc, clk := newTestCollector(10)
	for _, d := range []time.Duration{3, 1, 2} {
		pc.StartTick()
		pc.StartPhase(flock.PhaseDispatch)
		clk.advance(d * time.Millisecond)
		pc.EndTick()
	}
	s := pc.Stats()
	if s.MinTickDuration != time.Millisecond || s.MaxTickDuration != 3*time.Millisecond {
		t.Errorf("expected min 1ms max 3ms, got %v/%v", s.MinTickDuration, s.MaxTickDuration)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	s := NewPerfCollector(10).Stats()

	if s.AvgTickDuration != 0 || s.TicksPerSecond != 0 {
		t.Errorf("expected zero timings for empty collector, got %+v", s)
	}
	if len(s.Phases) != len(Phases) {
		t.Errorf("expected every phase listed even when empty, got %d", len(s.Phases))
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc, clk := newTestCollector(10)

	pc.RecordFrame()
	clk.advance(20 * time.Millisecond)
	pc.RecordFrame()

	s := pc.Stats()
	if s.FrameDuration != 20*time.Millisecond || s.FPS != 50 {
		t.Errorf("expected 20ms frames at 50 FPS, got %v at %v", s.FrameDuration, s.FPS)
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	s := PerfStats{
		AvgTickDuration: 1500 * time.Microsecond,
		MaxTickDuration: 3 * time.Millisecond,
		TicksPerSecond:  666,
		Resets:          1,
		Readbacks:       2,
		AvgReadback:     250 * time.Microsecond,
		Phases: []PhaseTiming{
			{Phase: flock.PhaseDispatch, Pct: 70},
			{Phase: flock.PhasePublish, Pct: 20},
			{Phase: PhaseReadback, Pct: 10},
		},
	}

	row := s.ToCSV(500)
	if row.WindowEnd != 500 || row.AvgTickUS != 1500 || row.MaxTickUS != 3000 {
		t.Errorf("unexpected timing columns %+v", row)
	}
	if row.Resets != 1 || row.Readbacks != 2 || row.AvgReadbackUS != 250 {
		t.Errorf("unexpected event columns %+v", row)
	}
	if row.DispatchPct != 70 || row.PublishPct != 20 || row.ReadbackPct != 10 || row.SystemsPct != 0 {
		t.Errorf("unexpected phase columns %+v", row)
	}
}
